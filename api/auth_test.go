package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/0x3a/crits/core"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const listingJSON = "/indicators/list/jtlist/"

func TestGenerateToken_RoundTrip(t *testing.T) {
	cfg := newTestConfig()

	token, err := GenerateToken(cfg, "jdoe", []string{core.RoleAdmin})
	require.NoError(t, err)

	claims, err := validateJWT(token, cfg)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", claims.Username)
	assert.Equal(t, []string{core.RoleAdmin}, claims.Roles)
	assert.Equal(t, tokenIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestGenerateToken_Errors(t *testing.T) {
	cfg := newTestConfig()
	_, err := GenerateToken(cfg, "", nil)
	assert.Error(t, err)

	cfg.Auth.JWTSecret = ""
	_, err = GenerateToken(cfg, "jdoe", nil)
	assert.Error(t, err)
}

func TestValidateJWT_Rejects(t *testing.T) {
	cfg := newTestConfig()
	sign := func(method jwt.SigningMethod, key interface{}, claims *Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func() *Claims {
		return &Claims{
			Username: "jdoe",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    tokenIssuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExpiry := valid()
	noExpiry.ExpiresAt = nil
	wrongIssuer := valid()
	wrongIssuer.Issuer = "someone-else"
	noUser := valid()
	noUser.Username = ""

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("another-secret-entirely-0123456789"), valid())},
		{"expired", sign(jwt.SigningMethodHS256, []byte(cfg.Auth.JWTSecret), expired)},
		{"no expiry", sign(jwt.SigningMethodHS256, []byte(cfg.Auth.JWTSecret), noExpiry)},
		{"wrong issuer", sign(jwt.SigningMethodHS256, []byte(cfg.Auth.JWTSecret), wrongIssuer)},
		{"no username", sign(jwt.SigningMethodHS256, []byte(cfg.Auth.JWTSecret), noUser)},
		{"none algorithm", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateJWT(tt.token, cfg)
			assert.Error(t, err)
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	api, _, _ := setupTestAPI(t, newTestConfig())

	var got core.Analyst
	handler := api.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = analystFromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, anonymousUser, got.Username)
	assert.True(t, got.IsAdmin())
}

func TestAuthMiddleware_Token(t *testing.T) {
	cfg := newTestConfig()
	cfg.Auth.Enabled = true
	api, _, _ := setupTestAPI(t, cfg)

	token, err := GenerateToken(cfg, "jdoe", []string{"analyst"})
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		rr := serve(api, httptest.NewRequest(http.MethodGet, listingJSON, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "Authorization required")
	})

	t.Run("invalid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, listingJSON, nil)
		req.Header.Set("Authorization", "Bearer "+token+"x")
		rr := serve(api, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "Invalid token")
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, listingJSON, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		assert.Equal(t, http.StatusOK, serve(api, req).Code)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, listingJSON, nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
		assert.Equal(t, http.StatusOK, serve(api, req).Code)
	})

	t.Run("claims reach handler", func(t *testing.T) {
		var got core.Analyst
		handler := api.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = analystFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, core.Analyst{Username: "jdoe", Roles: []string{"analyst"}}, got)
	})
}

func TestAuthMiddleware_BasicAuth(t *testing.T) {
	cfg := newTestConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.Username = "jdoe"
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg.Auth.HashedPassword = string(hash)
	api, _, _ := setupTestAPI(t, cfg)

	request := func(password string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, listingJSON, nil)
		req.SetBasicAuth("jdoe", password)
		return serve(api, req)
	}

	assert.Equal(t, http.StatusOK, request("correct horse").Code)

	for i := 0; i < maxAuthFailures; i++ {
		assert.Equal(t, http.StatusUnauthorized, request("wrong").Code)
	}
	// locked out even with the right password
	assert.Equal(t, http.StatusTooManyRequests, request("correct horse").Code)

	api.pruneClients(time.Now().Add(time.Minute))
	assert.Equal(t, http.StatusOK, request("correct horse").Code)
}

func TestAnalystFromContext(t *testing.T) {
	ctx := WithRoles(WithUsername(context.Background(), "jdoe"), []string{core.RoleAdmin})
	analyst := analystFromContext(ctx)
	assert.Equal(t, "jdoe", analyst.Username)
	assert.True(t, analyst.IsAdmin())

	assert.False(t, analystFromContext(context.Background()).IsAdmin())
}
