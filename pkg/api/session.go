package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/timoknapp/orienteering-finder/pkg/metrics"
	"github.com/timoknapp/orienteering-finder/pkg/preferences"
)

const (
	UserIDHeader    = "X-User-ID"
	maxUserIDLength = 64
)

type sessionKey struct{}

// validUserID accepts up to maxUserIDLength letters, digits, '-' and '_'. UUIDs pass.
func validUserID(id string) bool {
	if id == "" || len(id) > maxUserIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// withSession resolves the caller's session id from the X-User-ID header or the
// session cookie, issuing a new cookie when neither is present. A malformed
// header is ignored.
func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if !validUserID(id) {
			if id != "" {
				log.Debug("Ignoring malformed %s header", UserIDHeader)
			}
			id = ""
		}
		if id == "" {
			if c, err := r.Cookie(metrics.SessionCookie); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					id = c.Value
				}
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     metrics.SessionCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   365 * 24 * 60 * 60,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

func sessionID(r *http.Request) string {
	if id, ok := r.Context().Value(sessionKey{}).(string); ok {
		return id
	}
	return "anonymous"
}

func (s *Server) prefs(r *http.Request) *preferences.Preferences {
	return preferences.ForSession(s.store, sessionID(r))
}
