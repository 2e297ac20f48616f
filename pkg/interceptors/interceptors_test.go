package interceptors

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func echoOwner() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := GetUserIDFromContext(r.Context())
		_, _ = w.Write([]byte(id))
	})
}

func TestAuth(t *testing.T) {
	ownerID := uuid.New()
	valid := jwt.RegisteredClaims{
		Subject:   ownerID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, valid), http.StatusOK, ownerID.String()},
		{"lowercase scheme", "bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, valid), http.StatusOK, ownerID.String()},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), valid), http.StatusUnauthorized, ""},
		{"wrong algorithm", "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, valid), http.StatusUnauthorized, ""},
		{"expired", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
			Subject:   ownerID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}), http.StatusUnauthorized, ""},
		{"no expiry", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
			Subject: ownerID.String(),
		}), http.StatusUnauthorized, ""},
		{"subject not a uuid", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}), http.StatusUnauthorized, ""},
	}

	h := Auth(AuthConfig{Verifier: NewTokenVerifier(testSecret)}, discardLogger())(echoOwner())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/imports", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestAuth_PublicAndDisabled(t *testing.T) {
	t.Run("public path skips auth", func(t *testing.T) {
		h := Auth(AuthConfig{Verifier: NewTokenVerifier(testSecret), PublicPaths: []string{"/healthz"}}, discardLogger())(echoOwner())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("disabled uses the dev owner", func(t *testing.T) {
		h := Auth(AuthConfig{Disabled: true}, discardLogger())(echoOwner())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/imports", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, DevOwnerID.String(), rec.Body.String())
	})
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.Allow("10.0.0.2"), "clients have separate buckets")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "bucket refills")

	now = now.Add(time.Hour)
	rl.Allow("10.0.0.3")
	assert.Len(t, rl.limiters, 1, "idle clients are evicted")
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 5)
	for i := range 5 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{
		http.StatusNoContent, http.StatusNoContent,
		http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests,
	}, codes)
	assert.Len(t, rl.limiters, 1)
}

func TestRateLimiter_SweepsOncePerTTL(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	ttl := rl.ttl

	rl.Allow("10.0.0.1")
	now = start.Add(ttl / 2)
	rl.Allow("10.0.0.2")
	now = start.Add(ttl)
	rl.Allow("10.0.0.2")
	assert.Len(t, rl.limiters, 2, "10.0.0.1 is exactly one TTL idle")

	now = start.Add(ttl + ttl/2 + time.Second)
	rl.Allow("10.0.0.3")
	assert.Len(t, rl.limiters, 3, "10.0.0.1 is stale but the next sweep is not due")

	now = start.Add(2*ttl + time.Second)
	rl.Allow("10.0.0.3")
	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "10.0.0.3")
}

func TestClientIP(t *testing.T) {
	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name    string
		trusted []netip.Prefix
		remote  string
		xff     string
		want    string
	}{
		{name: "peer address", remote: "192.0.2.1:4321", want: "192.0.2.1"},
		{name: "forwarded header ignored without trusted proxies", remote: "192.0.2.1:4321", xff: "198.51.100.2", want: "192.0.2.1"},
		{name: "forwarded header ignored from untrusted peer", trusted: proxies, remote: "192.0.2.1:4321", xff: "198.51.100.2", want: "192.0.2.1"},
		{name: "trusted proxy forwards client", trusted: proxies, remote: "10.0.0.5:80", xff: "198.51.100.2", want: "198.51.100.2"},
		{name: "rightmost untrusted hop wins", trusted: proxies, remote: "10.0.0.5:80", xff: "6.6.6.6, 198.51.100.2, 10.1.1.1", want: "198.51.100.2"},
		{name: "garbage hop stops the walk", trusted: proxies, remote: "10.0.0.5:80", xff: "198.51.100.2, not-an-ip", want: "10.0.0.5"},
		{name: "all hops trusted", trusted: proxies, remote: "10.0.0.5:80", xff: "10.2.2.2, 10.1.1.1", want: "10.2.2.2"},
		{name: "trusted proxy without header", trusted: proxies, remote: "10.0.0.5:80", want: "10.0.0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(1, 1, WithTrustedProxies(tt.trusted))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, rl.clientIP(req))
		})
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/v1/categories", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingAndChain(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), Logging(logger), mark("a"), mark("b"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/imports/credit-card", nil))

	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "path=/v1/imports/credit-card")
}
