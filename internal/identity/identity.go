// Package identity carries the logged-in player's name between the
// login endpoint and the game routes via a cookie.
package identity

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/itqan/nahw-station/internal/domain"
)

const (
	// PlayerCookieName is the cookie holding the URL-encoded username.
	PlayerCookieName = "nahw_player"

	playerCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const playerKey contextKey = iota

// PlayerFromContext extracts the player's username from the request
// context. Empty when no valid identity was presented.
func PlayerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(playerKey).(string); ok {
		return v
	}
	return ""
}

// SetPlayerCookie issues the identity cookie after a successful login.
// The username is URL-encoded so non-ASCII names survive the header.
func SetPlayerCookie(w http.ResponseWriter, username string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     PlayerCookieName,
		Value:    url.QueryEscape(username),
		Path:     "/",
		MaxAge:   int(playerCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(playerCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// ClearPlayerCookie removes the identity cookie at logout.
func ClearPlayerCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     PlayerCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func playerFromRequest(r *http.Request) string {
	c, err := r.Cookie(PlayerCookieName)
	if err != nil {
		return ""
	}
	decoded, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	username := domain.NormalizeUsername(decoded)
	if !domain.ValidUsername(username) {
		return ""
	}
	return username
}

// Middleware injects the player identity from the cookie, when present,
// into the request context. Routes that require a player use
// RequirePlayer on top of this.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if username := playerFromRequest(r); username != "" {
				r = r.WithContext(context.WithValue(r.Context(), playerKey, username))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePlayer rejects requests without a valid player identity.
func RequirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PlayerFromContext(r.Context()) == "" {
			http.Error(w, `{"error":"not logged in"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
