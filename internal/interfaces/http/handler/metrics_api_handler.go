package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/dreschagin/deploy-board/internal/application/dto"
	"github.com/dreschagin/deploy-board/internal/application/usecase"
	"github.com/dreschagin/deploy-board/internal/interfaces/view"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

const maxFormBytes = 64 * 1024

// MetricsAPIHandler обрабатывает запросы графиков, алармов и групповых метрик
type MetricsAPIHandler struct {
	serviceMetricsUC *usecase.GetServiceMetricsUseCase
	serviceAlarmsUC  *usecase.GetServiceAlarmsUseCase
	validateURLUC    *usecase.ValidateMetricsURLUseCase
	groupMetricsUC   *usecase.GetGroupMetricsUseCase
	logger           *logger.Logger
}

// NewMetricsAPIHandler создает новый handler
func NewMetricsAPIHandler(
	serviceMetricsUC *usecase.GetServiceMetricsUseCase,
	serviceAlarmsUC *usecase.GetServiceAlarmsUseCase,
	validateURLUC *usecase.ValidateMetricsURLUseCase,
	groupMetricsUC *usecase.GetGroupMetricsUseCase,
	logger *logger.Logger,
) *MetricsAPIHandler {
	return &MetricsAPIHandler{
		serviceMetricsUC: serviceMetricsUC,
		serviceAlarmsUC:  serviceAlarmsUC,
		validateURLUC:    validateURLUC,
		groupMetricsUC:   groupMetricsUC,
		logger:           logger,
	}
}

// GetServiceMetrics возвращает графики stage'а: {"html": {title: series|0}}
func (h *MetricsAPIHandler) GetServiceMetrics(w http.ResponseWriter, r *http.Request) {
	result, err := h.serviceMetricsUC.Execute(r.Context(), r.PathValue("envName"), r.PathValue("stageName"))
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, result)
}

// GetSiteHealthMetrics возвращает графики из общего списка сайта
func (h *MetricsAPIHandler) GetSiteHealthMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, h.serviceMetricsUC.ExecuteSite(r.Context()))
}

// GetServiceAlarms отдает HTML фрагмент со сработавшими алармами
func (h *MetricsAPIHandler) GetServiceAlarms(w http.ResponseWriter, r *http.Request) {
	report, err := h.serviceAlarmsUC.Execute(r.Context(), r.PathValue("envName"), r.PathValue("stageName"))
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}

	var b strings.Builder
	if err := view.AlarmDetails(report).Render(r.Context(), &b); err != nil {
		h.logger.Error("Failed to render alarms", err)
		http.Error(w, "Failed to render alarms", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

// ValidateMetricsURL проверяет URL из формы (поле newEntryValue)
func (h *MetricsAPIHandler) ValidateMetricsURL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	url := strings.TrimSpace(r.PostForm.Get("newEntryValue"))
	if url == "" {
		http.Error(w, "Missing required parameter: newEntryValue", http.StatusBadRequest)
		return
	}

	respondJSON(w, h.logger, map[string]bool{"result": h.validateURLUC.Execute(r.Context(), url)})
}

// GetLatencyMetrics возвращает latency запуска и деплоя по окружениям группы
func (h *MetricsAPIHandler) GetLatencyMetrics(w http.ResponseWriter, r *http.Request) {
	h.writeGroup(w, r, h.groupMetricsUC.Latency)
}

func (h *MetricsAPIHandler) GetLaunchRate(w http.ResponseWriter, r *http.Request) {
	h.writeGroup(w, r, h.groupMetricsUC.LaunchRate)
}

func (h *MetricsAPIHandler) GetPASMetrics(w http.ResponseWriter, r *http.Request) {
	h.writeGroup(w, r, h.groupMetricsUC.PredictiveAutoscaling)
}

type groupQuery func(ctx context.Context, groupName string) (*dto.GroupMetricsDTO, error)

func (h *MetricsAPIHandler) writeGroup(w http.ResponseWriter, r *http.Request, query groupQuery) {
	groupName := strings.TrimSpace(r.PathValue("groupName"))
	if groupName == "" {
		http.Error(w, "Missing group name", http.StatusBadRequest)
		return
	}

	result, err := query(r.Context(), groupName)
	if err != nil {
		writeBackendError(w, r, h.logger, err)
		return
	}
	if result.Partial {
		w.Header().Set("X-Partial-Result", "true")
	}
	respondJSON(w, h.logger, result)
}
