package handler

import (
	"net/http"

	"github.com/dreschagin/deploy-board/internal/application/usecase"
	"github.com/dreschagin/deploy-board/internal/interfaces/http/middleware"
)

// HealthHandler отвечает на проверку здоровья балансировщика
type HealthHandler struct {
	checkHealthUC *usecase.CheckHealthUseCase
}

// NewHealthHandler создает новый handler
func NewHealthHandler(checkHealthUC *usecase.CheckHealthUseCase) *HealthHandler {
	return &HealthHandler{checkHealthUC: checkHealthUC}
}

// HealthCheck отдает OK, если deploy backend ответил на свой health check
// истинным значением, иначе FAILED/500. Ошибку логирует use case.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.checkHealthUC.Execute(r.Context()); err != nil {
		middleware.WriteText(w, http.StatusInternalServerError, "FAILED")
		return
	}
	middleware.WriteText(w, http.StatusOK, "OK")
}
