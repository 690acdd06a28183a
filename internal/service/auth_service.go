package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/szlgbiliard/biliard-api/internal/apperr"
	"github.com/szlgbiliard/biliard-api/internal/billiard"
	"github.com/szlgbiliard/biliard-api/internal/constants"
	"github.com/szlgbiliard/biliard-api/internal/middleware"
	"github.com/szlgbiliard/biliard-api/internal/store"
)

type AuthService struct {
	profiles *store.ProfileStore
	auth     *middleware.Authenticator
	logger   zerolog.Logger
}

func NewAuthService(db *sqlx.DB, auth *middleware.Authenticator, logger zerolog.Logger) *AuthService {
	return &AuthService{
		profiles: store.NewProfileStore(db),
		auth:     auth,
		logger:   logger.With().Str("component", "auth_service").Logger(),
	}
}

type LoginResult struct {
	Token   string            `json:"token"`
	Profile *billiard.Profile `json:"profile"`
}

// Login verifies credentials and issues a token carrying the referee flag.
// Unknown usernames and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, apperr.Validation("username and password are required")
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	profile, err := s.profiles.GetProfileByUsername(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Validation("invalid credentials")
	}
	if err != nil {
		return nil, apperr.Transient("failed to load profile", err)
	}
	if profile.PasswordHash == nil {
		return nil, apperr.Validation("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*profile.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn().Str("username", username).Msg("failed login attempt")
		return nil, apperr.Validation("invalid credentials")
	}

	token, err := s.auth.IssueToken(profile.ID, profile.IsReferee)
	if err != nil {
		return nil, apperr.Transient("failed to issue token", err)
	}
	return &LoginResult{Token: token, Profile: profile}, nil
}

// HashPassword wraps bcrypt for profile creation.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
