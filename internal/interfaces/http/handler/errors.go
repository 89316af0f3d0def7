package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dreschagin/deploy-board/internal/domain/valueobject"
	"github.com/dreschagin/deploy-board/internal/infrastructure/deployapi"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

var errInvalidRequest = errors.New("invalid request")

// writeBackendError превращает ошибку фасада или use case'а в ответ.
// Ответы backend'а пробрасываются со своим статусом и телом.
func writeBackendError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var apiErr *deployapi.APIError
	switch {
	case errors.As(err, &apiErr):
		log.Warn("Backend call failed",
			"path", r.URL.Path,
			"backend_path", apiErr.Path,
			"status", apiErr.Status,
		)
		contentType := apiErr.ContentType
		if contentType == "" {
			contentType = "text/plain; charset=utf-8"
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(apiErr.Status)
		_, _ = w.Write(apiErr.Body)
	case errors.Is(err, deployapi.ErrMissingToken):
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
	case errors.Is(err, deployapi.ErrMissingIdentifier),
		errors.Is(err, valueobject.ErrUnknownFacet),
		errors.Is(err, errInvalidRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error("Backend request failed", err, "path", r.URL.Path)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
	}
}

// writeRaw пишет JSON backend'а без изменений. Пустое тело дает 204.
func writeRaw(w http.ResponseWriter, body []byte) {
	if len(body) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// respondJSON кодирует payload до записи заголовков, чтобы ошибка
// кодирования еще могла стать 500.
func respondJSON(w http.ResponseWriter, log *logger.Logger, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("Failed to encode response", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
