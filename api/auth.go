package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/0x3a/crits/core"

	"golang.org/x/crypto/bcrypt"
)

// anonymousUser is the analyst every request runs as when auth is disabled
const anonymousUser = "anonymous"

// maxAuthFailures blocks a client for authFailureWindow after this many
// failed basic auth attempts
const (
	maxAuthFailures   = 5
	authFailureWindow = 10 * time.Minute
)

// authMiddleware authenticates indicator routes. A Bearer token or the
// auth_token cookie carries a JWT; basic auth against the configured
// account is accepted as well. With auth disabled the request runs as an
// anonymous admin.
func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.config.Auth.Enabled {
			ctx := WithUsername(r.Context(), anonymousUser)
			ctx = WithRoles(ctx, []string{core.RoleAdmin})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if _, _, ok := r.BasicAuth(); ok {
			a.basicAuth(next, w, r)
			return
		}

		var tokenString string
		if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else if cookie, err := r.Cookie("auth_token"); err == nil {
			tokenString = cookie.Value
		} else {
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		claims, err := validateJWT(tokenString, a.config)
		if err != nil {
			a.logger.Warnw("Invalid JWT token", "error", sanitizeErrorMessage(err.Error()))
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := WithUsername(r.Context(), claims.Username)
		ctx = WithRoles(ctx, claims.Roles)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// basicAuth checks the configured account with failure rate limiting
func (a *API) basicAuth(next http.Handler, w http.ResponseWriter, r *http.Request) {
	ip := getRealIP(r, a.config.API.TrustProxy)

	a.authFailuresMu.Lock()
	entry, exists := a.authFailures[ip]
	if exists && entry.count >= maxAuthFailures && time.Since(entry.lastFail) < authFailureWindow {
		a.authFailuresMu.Unlock()
		a.logger.Warnw("Too many failed auth attempts", "ip", ip)
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}
	a.authFailuresMu.Unlock()

	username, password, _ := r.BasicAuth()
	if a.config.Auth.Username == "" || a.config.Auth.HashedPassword == "" ||
		username != a.config.Auth.Username ||
		bcrypt.CompareHashAndPassword([]byte(a.config.Auth.HashedPassword), []byte(password)) != nil {
		a.authFailuresMu.Lock()
		if entry, ok := a.authFailures[ip]; ok {
			entry.count++
			entry.lastFail = time.Now()
		} else {
			a.authFailures[ip] = &authFailureEntry{count: 1, lastFail: time.Now()}
		}
		a.authFailuresMu.Unlock()

		a.logger.Warnw("Failed authentication attempt", "ip", ip)
		w.Header().Set("WWW-Authenticate", `Basic realm="CRITs"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	a.authFailuresMu.Lock()
	delete(a.authFailures, ip)
	a.authFailuresMu.Unlock()

	ctx := WithUsername(r.Context(), username)
	ctx = WithRoles(ctx, a.config.Auth.Roles)
	next.ServeHTTP(w, r.WithContext(ctx))
}
