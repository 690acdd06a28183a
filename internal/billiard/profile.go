package billiard

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     *string   `db:"username" json:"username,omitempty"`
	PasswordHash *string   `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	PfpURL       *string   `db:"pfp_url" json:"pfp_url,omitempty"`
	IsReferee    bool      `db:"is_referee" json:"is_biro"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
}

// DisplayName follows the club convention of "last first".
func (p *Profile) DisplayName() string {
	return strings.TrimSpace(p.LastName + " " + p.FirstName)
}
