package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/deploy-board/internal/application/dto"
	"github.com/dreschagin/deploy-board/internal/application/port"
	"github.com/dreschagin/deploy-board/internal/domain/entity"
	"github.com/dreschagin/deploy-board/internal/domain/series"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

const (
	fetchKindServiceMetric = "service_metric"
	fetchKindSiteMetric    = "site_metric"
)

// GetServiceMetricsUseCase собирает графики сервиса и сайта
type GetServiceMetricsUseCase struct {
	catalog     port.EnvironmentCatalog
	source      port.MetricSource
	recorder    port.FetchRecorder
	siteMetrics []entity.MetricConfig
	logger      *logger.Logger
}

// NewGetServiceMetricsUseCase создает новый use case
func NewGetServiceMetricsUseCase(
	catalog port.EnvironmentCatalog,
	source port.MetricSource,
	recorder port.FetchRecorder,
	siteMetrics []entity.MetricConfig,
	logger *logger.Logger,
) *GetServiceMetricsUseCase {
	return &GetServiceMetricsUseCase{
		catalog:     catalog,
		source:      source,
		recorder:    recorder,
		siteMetrics: siteMetrics,
		logger:      logger,
	}
}

// Execute загружает описание графиков stage'а и нормализует каждый из них.
// Ошибка получения конфигурации возвращается, ошибки отдельных графиков нет.
func (uc *GetServiceMetricsUseCase) Execute(ctx context.Context, envName, stageName string) (*dto.ServiceMetricsDTO, error) {
	configs, err := uc.catalog.GetMetricsConfig(ctx, envName, stageName)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics config: %w", err)
	}

	uc.logger.Debug("Fetching service metrics",
		"env", envName,
		"stage", stageName,
		"count", len(configs),
	)

	return uc.collect(ctx, configs, fetchKindServiceMetric), nil
}

// ExecuteSite делает то же самое для фиксированного списка графиков сайта
func (uc *GetServiceMetricsUseCase) ExecuteSite(ctx context.Context) *dto.ServiceMetricsDTO {
	return uc.collect(ctx, uc.siteMetrics, fetchKindSiteMetric)
}

func (uc *GetServiceMetricsUseCase) collect(ctx context.Context, configs []entity.MetricConfig, kind string) *dto.ServiceMetricsDTO {
	out := dto.NewServiceMetricsDTO()
	for _, cfg := range configs {
		out.HTML[cfg.Title] = uc.fetchSeries(ctx, cfg, kind)
	}
	return out
}

func (uc *GetServiceMetricsUseCase) fetchSeries(ctx context.Context, cfg entity.MetricConfig, kind string) series.Result {
	var result series.Result

	raw, err := uc.source.Fetch(ctx, cfg.URL)
	if err != nil {
		result = series.Failed(err)
	} else {
		result = series.Normalize(raw)
	}

	switch {
	case !result.Usable():
		uc.logger.Warn("No usable metric series",
			"title", cfg.Title,
			"url", cfg.URL,
			"status", string(result.Status),
			"reason", errString(result.Err),
		)
	case result.Skipped > 0:
		uc.logger.Warn("Skipped malformed datapoints",
			"title", cfg.Title,
			"url", cfg.URL,
			"skipped", result.Skipped,
			"reason", errString(result.Err),
		)
	}
	if uc.recorder != nil {
		uc.recorder.RecordFetch(kind, result.Status)
	}

	return result
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
