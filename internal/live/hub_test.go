package live

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/szlgbiliard/biliard-api/internal/constants"
	"github.com/szlgbiliard/biliard-api/internal/service"
)

func TestHubFansOutToAllSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	matchID := uuid.New()

	sub1 := hub.Subscribe(matchID)
	sub2 := hub.Subscribe(matchID)
	other := hub.Subscribe(uuid.New())

	hub.Publish(matchID, service.Notice{Type: service.NoticeFrameUpdate, Version: 7})

	for _, sub := range []*Subscription{sub1, sub2} {
		payload := <-sub.C()
		var notice service.Notice
		require.NoError(t, json.Unmarshal(payload, &notice))
		assert.Equal(t, service.NoticeFrameUpdate, notice.Type)
		assert.Equal(t, int64(7), notice.Version)
	}

	select {
	case <-other.C():
		t.Fatal("notice leaked to another match's subscriber")
	default:
	}
}

func TestHubDropsWhenBufferIsFull(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	matchID := uuid.New()
	sub := hub.Subscribe(matchID)

	// Publish never blocks, no matter how far behind the subscriber is.
	for i := 0; i < constants.SendBufferSize*2; i++ {
		hub.Publish(matchID, service.Notice{Type: service.NoticeEventCreated, Version: int64(i + 1)})
	}

	received := 0
	for {
		select {
		case <-sub.C():
			received++
			continue
		default:
		}
		break
	}
	assert.Equal(t, constants.SendBufferSize, received)
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	matchID := uuid.New()

	sub := hub.Subscribe(matchID)
	assert.Equal(t, 1, hub.SubscriberCount(matchID))

	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.SubscriberCount(matchID))

	_, open := <-sub.C()
	assert.False(t, open, "mailbox closes on unsubscribe")

	// A second unsubscribe of the same subscription is a no-op.
	hub.Unsubscribe(sub)

	// Publishing to a match with no subscribers is fine.
	hub.Publish(matchID, service.Notice{Type: service.NoticeMatchUpdate})
}
