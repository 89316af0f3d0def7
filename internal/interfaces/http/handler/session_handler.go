package handler

import (
	"net/http"

	"github.com/dreschagin/deploy-board/internal/application/identity"
	"github.com/dreschagin/deploy-board/internal/application/port"
	"github.com/dreschagin/deploy-board/internal/interfaces/http/middleware"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

// SessionHandler завершает сессию и сообщает ее состояние
type SessionHandler struct {
	store         port.SessionStore
	cookieName    string
	secureCookies bool
	logger        *logger.Logger
}

// NewSessionHandler создает новый handler. store может быть nil.
func NewSessionHandler(store port.SessionStore, cookieName string, secureCookies bool, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		store:         store,
		cookieName:    cookieName,
		secureCookies: secureCookies,
		logger:        log,
	}
}

// LoggedOut удаляет серверную сессию и cookie
func (h *SessionHandler) LoggedOut(w http.ResponseWriter, r *http.Request) {
	if sessionID := middleware.SessionID(r, h.cookieName); sessionID != "" && h.store != nil {
		if err := h.store.DeleteSession(r.Context(), sessionID); err != nil {
			h.logger.Warn("Failed to delete session", "error", err.Error())
		}
	}
	middleware.ClearSessionCookie(w, h.cookieName, h.secureCookies)
	middleware.WriteText(w, http.StatusOK, "Goodbye!")
}

// Status сообщает, есть ли в запросе токен backend'а
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	_, ok := identity.TokenFrom(r.Context())
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": ok,
		"sessionBacked": h.store != nil,
	})
}
