package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreschagin/deploy-board/internal/application/port"
	"github.com/dreschagin/deploy-board/internal/domain/series"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

const fetchKindHealth = "health"

var ErrBackendUnhealthy = errors.New("backend health check returned an empty result")

// CheckHealthUseCase опрашивает health endpoint deploy backend'а
type CheckHealthUseCase struct {
	healthURL string
	source    port.MetricSource
	recorder  port.FetchRecorder
	logger    *logger.Logger
}

// NewCheckHealthUseCase создает новый use case
func NewCheckHealthUseCase(
	healthURL string,
	source port.MetricSource,
	recorder port.FetchRecorder,
	logger *logger.Logger,
) *CheckHealthUseCase {
	return &CheckHealthUseCase{
		healthURL: healthURL,
		source:    source,
		recorder:  recorder,
		logger:    logger,
	}
}

// Execute делает один запрос к health URL. nil возвращается, только если
// запрос успешен и декодированный ответ истинен.
func (uc *CheckHealthUseCase) Execute(ctx context.Context) error {
	err := uc.check(ctx)

	status := series.StatusOK
	if err != nil {
		status = series.StatusFailed
		uc.logger.Warn("Backend health check failed", "url", uc.healthURL, "error", err.Error())
	}
	if uc.recorder != nil {
		uc.recorder.RecordFetch(fetchKindHealth, status)
	}

	return err
}

func (uc *CheckHealthUseCase) check(ctx context.Context) error {
	raw, err := uc.source.Fetch(ctx, uc.healthURL)
	if err != nil {
		return fmt.Errorf("call backend health: %w", err)
	}
	doc, err := series.Decode(raw)
	if err != nil {
		return fmt.Errorf("decode backend health: %w", err)
	}
	if !series.Truthy(doc) {
		return ErrBackendUnhealthy
	}
	return nil
}
