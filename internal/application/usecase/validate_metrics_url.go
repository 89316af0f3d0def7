package usecase

import (
	"context"
	"strings"

	"github.com/dreschagin/deploy-board/internal/application/port"
	"github.com/dreschagin/deploy-board/internal/domain/series"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

const fetchKindValidate = "validate"

// ValidateMetricsURLUseCase проверяет URL графика, который пользователь
// добавляет в конфигурацию stage'а
type ValidateMetricsURLUseCase struct {
	apiPrefix string
	source    port.MetricSource
	recorder  port.FetchRecorder
	logger    *logger.Logger
}

// NewValidateMetricsURLUseCase создает новый use case. Пустой apiPrefix
// означает, что доверенного источника нет и любой URL отклоняется.
func NewValidateMetricsURLUseCase(
	apiPrefix string,
	source port.MetricSource,
	recorder port.FetchRecorder,
	logger *logger.Logger,
) *ValidateMetricsURLUseCase {
	return &ValidateMetricsURLUseCase{
		apiPrefix: apiPrefix,
		source:    source,
		recorder:  recorder,
		logger:    logger,
	}
}

// Execute возвращает true, если url начинается с доверенного префикса и
// ответ является массивом, первый элемент которого содержит ключ
// "datapoints" или "dps". Чужие URL отклоняются без запроса.
func (uc *ValidateMetricsURLUseCase) Execute(ctx context.Context, url string) bool {
	if uc.apiPrefix == "" || !strings.HasPrefix(url, uc.apiPrefix) {
		uc.logger.Debug("Rejected untrusted metrics url", "url", url)
		return false
	}

	raw, err := uc.source.Fetch(ctx, url)
	if err != nil {
		uc.record(series.StatusFailed)
		uc.logger.Warn("Metrics url validation fetch failed", "url", url, "error", err.Error())
		return false
	}

	doc, err := series.Decode(raw)
	if err != nil {
		uc.record(series.StatusFailed)
		uc.logger.Warn("Metrics url returned malformed json", "url", url, "error", err.Error())
		return false
	}

	first, ok := series.FirstElement(doc)
	if !ok {
		uc.record(series.StatusNoData)
		return false
	}
	_, hasDatapoints := first["datapoints"]
	_, hasDPS := first["dps"]
	if !hasDatapoints && !hasDPS {
		uc.record(series.StatusNoData)
		return false
	}

	uc.record(series.StatusOK)
	return true
}

func (uc *ValidateMetricsURLUseCase) record(status series.Status) {
	if uc.recorder != nil {
		uc.recorder.RecordFetch(fetchKindValidate, status)
	}
}
