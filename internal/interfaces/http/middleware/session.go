package middleware

import (
	"net/http"
	"strings"

	"github.com/dreschagin/deploy-board/internal/application/identity"
	"github.com/dreschagin/deploy-board/internal/application/port"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

type SessionConfig struct {
	CookieName    string
	SecureCookies bool
	// Store is optional; without it only the Authorization header is used.
	Store port.SessionStore
}

// SessionToken puts the caller's backend token into the request context.
// The token comes from an Authorization: Bearer header or, failing that,
// from the session cookie resolved through the session store. Requests
// without a token pass through; the backend client rejects them.
func SessionToken(cfg SessionConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" && cfg.Store != nil {
				if sessionID := SessionID(r, cfg.CookieName); sessionID != "" {
					resolved, err := cfg.Store.LookupToken(r.Context(), sessionID)
					if err != nil {
						log.Debug("Session token lookup failed",
							"path", r.URL.Path,
							"error", err.Error(),
						)
					}
					token = resolved
				}
			}

			if token != "" {
				r = r.WithContext(identity.WithToken(r.Context(), token))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken returns the token of an Authorization: Bearer header.
func BearerToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func SessionID(r *http.Request, cookieName string) string {
	if cookieName == "" {
		return ""
	}
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

func ClearSessionCookie(w http.ResponseWriter, cookieName string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
