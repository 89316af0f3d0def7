package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dreschagin/deploy-board/pkg/logger"
)

// OriginCheck rejects state-changing browser requests whose Origin header
// is not allowed. Requests without an Origin (curl, server to server) and
// safe methods pass. An empty allow list disables the check.
func OriginCheck(allowedOrigins []string, log *logger.Logger) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if trimmed := strings.TrimRight(strings.TrimSpace(origin), "/"); trimmed != "" {
			allowed[trimmed] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowed) == 0 || isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || originAllowed(allowed, origin) {
				next.ServeHTTP(w, r)
				return
			}

			log.Warn("Rejected cross-origin request",
				"origin", origin,
				"method", r.Method,
				"path", r.URL.Path,
			)
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

func originAllowed(allowed map[string]struct{}, origin string) bool {
	if _, ok := allowed["*"]; ok {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	_, ok := allowed[parsed.Scheme+"://"+parsed.Host]
	return ok
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
