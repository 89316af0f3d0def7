package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/deploy-board/internal/application/dto"
	"github.com/dreschagin/deploy-board/internal/application/port"
	"github.com/dreschagin/deploy-board/internal/domain/entity"
	"github.com/dreschagin/deploy-board/internal/domain/valueobject"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

const launchRateScale = 60

// GetGroupMetricsUseCase строит графики autoscaling группы: задержки
// запуска и деплоя, частоту неудачных первых деплоев и прогноз PAS.
//
// Перебор окружений группы прерывается на первой ошибке; уже собранные
// серии возвращаются как частичный результат.
type GetGroupMetricsUseCase struct {
	catalog     port.EnvironmentCatalog
	autoscaling port.AutoscalingService
	startTime   string
	logger      *logger.Logger
}

// NewGetGroupMetricsUseCase создает новый use case
func NewGetGroupMetricsUseCase(
	catalog port.EnvironmentCatalog,
	autoscaling port.AutoscalingService,
	startTime string,
	logger *logger.Logger,
) *GetGroupMetricsUseCase {
	return &GetGroupMetricsUseCase{
		catalog:     catalog,
		autoscaling: autoscaling,
		startTime:   startTime,
		logger:      logger,
	}
}

// Latency возвращает серии launch_latency.<env>.<stage> и
// deploy_latency.<env>.<stage> для каждого окружения группы. stage_names и
// launch_latency_th есть в ответе, только если обработаны все окружения.
func (uc *GetGroupMetricsUseCase) Latency(ctx context.Context, groupName string) (*dto.GroupMetricsDTO, error) {
	envs, err := uc.catalog.GetEnvironmentsByGroup(ctx, groupName)
	if err != nil {
		return nil, fmt.Errorf("failed to list group environments: %w", err)
	}
	out := dto.NewGroupMetricsDTO()
	if len(envs) == 0 {
		return out, nil
	}

	info, err := uc.autoscaling.GetGroupInfo(ctx, groupName)
	if err != nil {
		return nil, fmt.Errorf("failed to get group info: %w", err)
	}

	stageNames := make([]string, 0, len(envs))
	for _, env := range envs {
		name := env.EnvName + "." + env.StageName
		stageNames = append(stageNames, name)

		if err := uc.addLatency(ctx, out, env, valueobject.MetricActionLaunch, "launch_latency."+name); err != nil {
			uc.markPartial(out, "latency", groupName, env, err)
			return out, nil
		}
		if err := uc.addLatency(ctx, out, env, valueobject.MetricActionDeploy, "deploy_latency."+name); err != nil {
			uc.markPartial(out, "latency", groupName, env, err)
			return out, nil
		}
	}

	out.Extra["stage_names"] = stageNames
	out.Extra["launch_latency_th"] = info.GroupInfo.LaunchLatencyTh

	return out, nil
}

func (uc *GetGroupMetricsUseCase) addLatency(ctx context.Context, out *dto.GroupMetricsDTO, env entity.Environment, action valueobject.MetricActionType, key string) error {
	points, err := uc.autoscaling.GetLatencyData(ctx, env.ID, action, uc.startTime)
	if err != nil {
		return fmt.Errorf("get %s latency: %w", action, err)
	}
	out.Series[key] = dto.PointsToSeries(points)
	return nil
}

// LaunchRate возвращает поминутную частоту неудачных первых деплоев для
// каждого окружения группы и список имен метрик.
func (uc *GetGroupMetricsUseCase) LaunchRate(ctx context.Context, groupName string) (*dto.GroupMetricsDTO, error) {
	envs, err := uc.catalog.GetEnvironmentsByGroup(ctx, groupName)
	if err != nil {
		return nil, fmt.Errorf("failed to list group environments: %w", err)
	}
	out := dto.NewGroupMetricsDTO()
	if len(envs) == 0 {
		return out, nil
	}

	metricNames := make([]string, 0, len(envs))
	out.Extra["metric_names"] = metricNames
	for _, env := range envs {
		metricName := LaunchRateMetricName(env.EnvName, env.StageName)

		points, err := uc.autoscaling.GetRawMetrics(ctx, metricName, uc.startTime)
		if err != nil {
			uc.markPartial(out, "launch rate", groupName, env, err)
			return out, nil
		}

		out.Series[metricName] = dto.PointsToSeries(points).Scale(launchRateScale)
		metricNames = append(metricNames, metricName)
		out.Extra["metric_names"] = metricNames
	}

	return out, nil
}

// LaunchRateMetricName возвращает TSDB выражение для неудачных первых деплоев
func LaunchRateMetricName(envName, stageName string) string {
	return fmt.Sprintf("zimsum:rate:teletraan.%s.%s.first_deploy{success=false}", envName, stageName)
}

// PredictiveAutoscaling возвращает серию PREDICTED под ключом "arcee", если
// для группы включен predictive autoscaling, иначе пустой результат.
func (uc *GetGroupMetricsUseCase) PredictiveAutoscaling(ctx context.Context, groupName string) (*dto.GroupMetricsDTO, error) {
	cfg, err := uc.autoscaling.GetPASConfig(ctx, groupName)
	if err != nil {
		return nil, fmt.Errorf("failed to get pas config: %w", err)
	}
	out := dto.NewGroupMetricsDTO()
	if !cfg.Enabled() {
		return out, nil
	}

	points, err := uc.autoscaling.GetPASMetrics(ctx, groupName, valueobject.MetricActionPredicted, uc.startTime)
	if err != nil {
		out.Partial, out.Err = true, err
		uc.logger.Error("Failed to get predicted capacity", err, "group", groupName)
		return out, nil
	}
	out.Series["arcee"] = dto.PointsToSeries(points)

	return out, nil
}

func (uc *GetGroupMetricsUseCase) markPartial(out *dto.GroupMetricsDTO, what, groupName string, env entity.Environment, err error) {
	out.Partial, out.Err = true, err
	uc.logger.Error("Group metrics aborted, returning partial result", err,
		"metric", what,
		"group", groupName,
		"env", env.EnvName,
		"stage", env.StageName,
		"collected", len(out.Series),
	)
}
