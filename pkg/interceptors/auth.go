// Package interceptors holds the HTTP middleware shared by every route:
// bearer-token authentication, per-client rate limiting, CORS and request logging.
package interceptors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const userIDKey contextKey = "user_id"

// DevOwnerID is attached to every request when authentication is disabled.
var DevOwnerID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// WithUserID stores the authenticated owner in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserIDFromContext returns the authenticated owner, if any.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}

// TokenVerifier validates HS256 access tokens whose subject is the owner UUID.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret}
}

// Verify parses the token and returns its subject.
func (v *TokenVerifier) Verify(tokenString string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	ownerID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a UUID", ErrInvalidToken)
	}
	return ownerID, nil
}

// AuthConfig controls the authentication middleware.
type AuthConfig struct {
	Verifier    *TokenVerifier
	Disabled    bool
	PublicPaths []string
}

// Auth rejects requests without a valid bearer token and stores the owner ID
// for handlers.
func Auth(cfg AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	public := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := public[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if cfg.Disabled {
				next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), DevOwnerID.String())))
				return
			}

			token, err := bearerToken(r)
			if err == nil {
				var ownerID uuid.UUID
				ownerID, err = cfg.Verifier.Verify(token)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), ownerID.String())))
					return
				}
			}

			logger.Debug("rejected unauthenticated request",
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}
