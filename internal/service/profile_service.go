package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/szlgbiliard/biliard-api/internal/apperr"
	"github.com/szlgbiliard/biliard-api/internal/billiard"
	"github.com/szlgbiliard/biliard-api/internal/constants"
	"github.com/szlgbiliard/biliard-api/internal/store"
	"github.com/szlgbiliard/biliard-api/internal/utils"
)

type ProfileService struct {
	profiles *store.ProfileStore
}

func NewProfileService(db *sqlx.DB) *ProfileService {
	return &ProfileService{profiles: store.NewProfileStore(db)}
}

type CreateProfileInput struct {
	Username  string  `json:"username,omitempty"`
	Password  string  `json:"password,omitempty"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	PfpURL    *string `json:"pfp_url,omitempty"`
	IsReferee bool    `json:"is_biro"`
}

// CreateProfile registers a player or referee. Credentials are optional:
// players who never log in only need a name, referees need both.
func (s *ProfileService) CreateProfile(ctx context.Context, input CreateProfileInput) (*billiard.Profile, error) {
	if input.FirstName == "" || input.LastName == "" {
		return nil, apperr.Validation("first and last name are required")
	}
	if input.IsReferee && (input.Username == "" || input.Password == "") {
		return nil, apperr.Validation("referee profiles need credentials")
	}
	if (input.Username == "") != (input.Password == "") {
		return nil, apperr.Validation("username and password go together")
	}

	profile := &billiard.Profile{
		ID:        uuid.New(),
		FirstName: input.FirstName,
		LastName:  input.LastName,
		PfpURL:    input.PfpURL,
		IsReferee: input.IsReferee,
	}
	if input.Username != "" {
		hash, err := HashPassword(input.Password)
		if err != nil {
			return nil, apperr.Transient("failed to hash password", err)
		}
		profile.Username = utils.Ptr(input.Username)
		profile.PasswordHash = utils.Ptr(hash)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		if sqliteErr, ok := err.(sqlite3.Error); ok && sqliteErr.Code == sqlite3.ErrConstraint {
			return nil, apperr.Conflict("username %q is taken", input.Username)
		}
		return nil, apperr.Transient("failed to create profile", err)
	}
	return profile, nil
}

func (s *ProfileService) ListProfiles(ctx context.Context) ([]billiard.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	profiles, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		return nil, apperr.Transient("failed to list profiles", err)
	}
	return profiles, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, id uuid.UUID) (*billiard.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	profile, err := s.profiles.GetProfile(ctx, id)
	if err != nil {
		return nil, mapRowErr(err, "profile", id.String())
	}
	return profile, nil
}
