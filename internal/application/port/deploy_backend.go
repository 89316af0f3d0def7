package port

import (
	"context"

	"github.com/dreschagin/deploy-board/internal/domain/entity"
	"github.com/dreschagin/deploy-board/internal/domain/valueobject"
)

// EnvironmentCatalog is the read side of the deploy backend used by the
// metrics and identifier use cases.
type EnvironmentCatalog interface {
	GetEnvironmentStages(ctx context.Context, envName string) ([]entity.Environment, error)
	GetEnvironmentsByGroup(ctx context.Context, groupName string) ([]entity.Environment, error)
	GetMetricsConfig(ctx context.Context, envName, stageName string) ([]entity.MetricConfig, error)
	GetAlarmsConfig(ctx context.Context, envName, stageName string) ([]entity.AlarmConfig, error)
}

// AutoscalingService exposes autoscaling group metadata and the point
// series the group charts are drawn from.
type AutoscalingService interface {
	GetGroupInfo(ctx context.Context, groupName string) (*entity.GroupInfo, error)
	GetPASConfig(ctx context.Context, groupName string) (*entity.PASConfig, error)
	GetLatencyData(ctx context.Context, envID string, action valueobject.MetricActionType, startTime string) ([]entity.DataPoint, error)
	GetRawMetrics(ctx context.Context, metricName, startTime string) ([]entity.DataPoint, error)
	GetPASMetrics(ctx context.Context, groupName string, action valueobject.MetricActionType, startTime string) ([]entity.DataPoint, error)
}

// IdentifierService talks to the external identifier system that links
// stages to projects.
type IdentifierService interface {
	GetIdentifier(ctx context.Context, name string) (entity.Identifier, error)
	CreateIdentifier(ctx context.Context, data entity.Identifier) (entity.Identifier, error)
	DeleteIdentifier(ctx context.Context, name string) error
	ProjectConsoleURL(projectName string) string
}
