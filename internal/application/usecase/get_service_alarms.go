package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dreschagin/deploy-board/internal/application/dto"
	"github.com/dreschagin/deploy-board/internal/application/port"
	"github.com/dreschagin/deploy-board/internal/domain/entity"
	"github.com/dreschagin/deploy-board/internal/domain/series"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

const fetchKindAlarm = "alarm"

// GetServiceAlarmsUseCase возвращает сработавшие алармы stage'а
type GetServiceAlarmsUseCase struct {
	catalog  port.EnvironmentCatalog
	source   port.MetricSource
	recorder port.FetchRecorder
	logger   *logger.Logger
}

// NewGetServiceAlarmsUseCase создает новый use case
func NewGetServiceAlarmsUseCase(
	catalog port.EnvironmentCatalog,
	source port.MetricSource,
	recorder port.FetchRecorder,
	logger *logger.Logger,
) *GetServiceAlarmsUseCase {
	return &GetServiceAlarmsUseCase{
		catalog:  catalog,
		source:   source,
		recorder: recorder,
		logger:   logger,
	}
}

// Execute опрашивает каждый alarmUrl. Ответ содержит ровно один объект
// аларма; в отчет попадают только алармы с triggered=true.
func (uc *GetServiceAlarmsUseCase) Execute(ctx context.Context, envName, stageName string) (*dto.AlarmReportDTO, error) {
	configs, err := uc.catalog.GetAlarmsConfig(ctx, envName, stageName)
	if err != nil {
		return nil, fmt.Errorf("failed to get alarms config: %w", err)
	}

	report := &dto.AlarmReportDTO{Alarms: map[string]map[string]any{}}
	for _, cfg := range configs {
		alarm, status, err := uc.latestAlarm(ctx, cfg)
		if uc.recorder != nil {
			uc.recorder.RecordFetch(fetchKindAlarm, status)
		}
		if err != nil {
			uc.logger.Warn("Failed to read alarm",
				"alarm", cfg.Name,
				"url", cfg.AlarmURL,
				"error", err.Error(),
			)
			continue
		}
		if alarm == nil || !series.Truthy(alarm["triggered"]) {
			continue
		}
		report.Alarms[cfg.Name] = alarm
	}
	report.HasAlarm = len(report.Alarms) > 0

	return report, nil
}

func (uc *GetServiceAlarmsUseCase) latestAlarm(ctx context.Context, cfg entity.AlarmConfig) (map[string]any, series.Status, error) {
	raw, err := uc.source.Fetch(ctx, cfg.AlarmURL)
	if err != nil {
		return nil, series.StatusFailed, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, series.StatusNoData, nil
	}

	first, count, err := firstEntry(raw)
	if err != nil {
		return nil, series.StatusFailed, fmt.Errorf("decode alarm: %w", err)
	}
	if count == 0 {
		return nil, series.StatusNoData, nil
	}
	if count > 1 {
		uc.logger.Debug("Alarm response has more than one entry", "alarm", cfg.Name, "count", count)
	}

	doc, err := series.Decode(first)
	if err != nil {
		return nil, series.StatusFailed, fmt.Errorf("decode alarm: %w", err)
	}
	alarm, ok := doc.(map[string]any)
	if !ok {
		return nil, series.StatusFailed, fmt.Errorf("alarm entry is not an object")
	}
	return alarm, series.StatusOK, nil
}

// firstEntry возвращает первое значение JSON объекта в порядке документа и
// число его записей.
func firstEntry(raw []byte) (json.RawMessage, int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, 0, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, 0, errors.New("alarm response is not an object")
	}

	var (
		first json.RawMessage
		count int
	)
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, 0, err
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, 0, err
		}
		if count == 0 {
			first = value
		}
		count++
	}
	if _, err := dec.Token(); err != nil {
		return nil, 0, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, 0, errors.New("trailing data after json value")
	}
	return first, count, nil
}
