package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/szlgbiliard/biliard-api/internal/billiard"
)

type ProfileStore struct {
	db *sqlx.DB
}

const (
	getProfileQuery           = "SELECT * FROM profiles WHERE id = ?"
	getProfileByUsernameQuery = "SELECT * FROM profiles WHERE username = ?"
	listProfilesQuery         = "SELECT * FROM profiles ORDER BY last_name ASC, first_name ASC"
	createProfileQuery        = `
		INSERT INTO profiles (id, username, password_hash, first_name, last_name, pfp_url, is_referee)
		VALUES (:id, :username, :password_hash, :first_name, :last_name, :pfp_url, :is_referee)
	`
)

func NewProfileStore(db *sqlx.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) GetProfile(ctx context.Context, id interface{}) (*billiard.Profile, error) {
	var profile billiard.Profile
	err := s.db.GetContext(ctx, &profile, getProfileQuery, id)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *ProfileStore) GetProfileByUsername(ctx context.Context, username string) (*billiard.Profile, error) {
	var profile billiard.Profile
	err := s.db.GetContext(ctx, &profile, getProfileByUsernameQuery, username)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *ProfileStore) ListProfiles(ctx context.Context) ([]billiard.Profile, error) {
	var profiles []billiard.Profile
	err := s.db.SelectContext(ctx, &profiles, listProfilesQuery)
	return profiles, err
}

func (s *ProfileStore) CreateProfile(ctx context.Context, profile *billiard.Profile) error {
	_, err := s.db.NamedExecContext(ctx, createProfileQuery, profile)
	return err
}
