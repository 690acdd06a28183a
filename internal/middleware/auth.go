package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/szlgbiliard/biliard-api/internal/constants"
)

type ContextKey string

const ProfileIDKey ContextKey = "profileID"
const RefereeKey ContextKey = "isReferee"

// Claims carries the authenticated profile and its referee flag.
type Claims struct {
	IsReferee bool `json:"is_biro"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies the signed tokens used by both the REST
// surface and the websocket channels.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) IssueToken(profileID uuid.UUID, isReferee bool) (string, error) {
	now := time.Now()
	claims := Claims{
		IsReferee: isReferee,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profileID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(constants.TokenLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Authenticator) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// TokenFromRequest reads the token from the Authorization header, falling
// back to the token query parameter. Browsers cannot set headers on a
// websocket dial, so the referee channel authenticates via the query string.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// RequireAuth rejects requests without a valid token and stores the profile
// id and referee flag on the context.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := TokenFromRequest(r)
		if tokenString == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		claims, err := a.ParseToken(tokenString)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		profileID, err := uuid.Parse(claims.Subject)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ProfileIDKey, profileID)
		ctx = context.WithValue(ctx, RefereeKey, claims.IsReferee)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireReferee layers on RequireAuth and rejects non-referee profiles.
func (a *Authenticator) RequireReferee(next http.Handler) http.Handler {
	return a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsReferee(r.Context()) {
			http.Error(w, "referee access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func GetProfileIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(ProfileIDKey)
	if val == nil {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok
}

func IsReferee(ctx context.Context) bool {
	val, ok := ctx.Value(RefereeKey).(bool)
	return ok && val
}
