package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/szlgbiliard/biliard-api/internal/apperr"
	"github.com/szlgbiliard/biliard-api/internal/middleware"
)

func TestLoginRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	auth := middleware.NewAuthenticator("test-secret")
	authService := NewAuthService(db, auth, zerolog.Nop())
	profileService := NewProfileService(db)

	referee, err := profileService.CreateProfile(context.Background(), CreateProfileInput{
		Username:  "biro1",
		Password:  "titkos-jelszo",
		FirstName: "Erzsébet",
		LastName:  "Varga",
		IsReferee: true,
	})
	require.NoError(t, err)
	assert.True(t, referee.IsReferee)
	require.NotNil(t, referee.PasswordHash)
	assert.NotEqual(t, "titkos-jelszo", *referee.PasswordHash, "password is stored hashed")

	result, err := authService.Login(context.Background(), "biro1", "titkos-jelszo")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.Equal(t, referee.ID, result.Profile.ID)

	claims, err := auth.ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, referee.ID.String(), claims.Subject)
	assert.True(t, claims.IsReferee)

	_, err = authService.Login(context.Background(), "biro1", "rossz-jelszo")
	assert.True(t, apperr.IsValidation(err))

	// Unknown usernames fail the same way as wrong passwords.
	_, err = authService.Login(context.Background(), "nincs-ilyen", "titkos-jelszo")
	assert.True(t, apperr.IsValidation(err))
}

func TestGetProfile(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	profileService := NewProfileService(db)
	ctx := context.Background()

	created, err := profileService.CreateProfile(ctx, CreateProfileInput{
		FirstName: "Réka", LastName: "Farkas",
	})
	require.NoError(t, err)

	fetched, err := profileService.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "Farkas Réka", fetched.DisplayName())

	_, err = profileService.GetProfile(ctx, uuid.New())
	assert.True(t, apperr.IsNotFound(err))
}

func TestCreateProfileValidation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	profileService := NewProfileService(db)
	ctx := context.Background()

	_, err := profileService.CreateProfile(ctx, CreateProfileInput{FirstName: "Csak"})
	assert.True(t, apperr.IsValidation(err))

	_, err = profileService.CreateProfile(ctx, CreateProfileInput{
		FirstName: "Lajos", LastName: "Mészáros", IsReferee: true,
	})
	assert.True(t, apperr.IsValidation(err), "referees need credentials")

	_, err = profileService.CreateProfile(ctx, CreateProfileInput{
		FirstName: "Lajos", LastName: "Mészáros", Username: "lajos",
	})
	assert.True(t, apperr.IsValidation(err), "username without password")

	// Players without credentials are fine.
	player, err := profileService.CreateProfile(ctx, CreateProfileInput{
		FirstName: "Lajos", LastName: "Mészáros",
	})
	require.NoError(t, err)
	assert.Equal(t, "Mészáros Lajos", player.DisplayName())

	_, err = profileService.CreateProfile(ctx, CreateProfileInput{
		FirstName: "Másik", LastName: "Lajos", Username: "lajos2", Password: "pw",
	})
	require.NoError(t, err)
	_, err = profileService.CreateProfile(ctx, CreateProfileInput{
		FirstName: "Harmadik", LastName: "Lajos", Username: "lajos2", Password: "pw",
	})
	assert.True(t, apperr.IsConflict(err), "usernames are unique")
}
