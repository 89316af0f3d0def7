package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/dreschagin/deploy-board/internal/application/port"
	"github.com/dreschagin/deploy-board/internal/domain/entity"
	"github.com/dreschagin/deploy-board/internal/domain/series"
	"github.com/dreschagin/deploy-board/internal/domain/valueobject"
)

var errBackendDown = errors.New("backend down")

type mockCatalog struct {
	stages    []entity.Environment
	group     []entity.Environment
	metrics   []entity.MetricConfig
	alarms    []entity.AlarmConfig
	stagesErr error
	groupErr  error
	configErr error
}

func (m *mockCatalog) GetEnvironmentStages(_ context.Context, _ string) ([]entity.Environment, error) {
	return m.stages, m.stagesErr
}

func (m *mockCatalog) GetEnvironmentsByGroup(_ context.Context, _ string) ([]entity.Environment, error) {
	return m.group, m.groupErr
}

func (m *mockCatalog) GetMetricsConfig(_ context.Context, _, _ string) ([]entity.MetricConfig, error) {
	return m.metrics, m.configErr
}

func (m *mockCatalog) GetAlarmsConfig(_ context.Context, _, _ string) ([]entity.AlarmConfig, error) {
	return m.alarms, m.configErr
}

type mockSource struct {
	bodies map[string]string
	errs   map[string]error
	calls  []string
}

func (m *mockSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	m.calls = append(m.calls, url)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	return []byte(m.bodies[url]), nil
}

type recordedFetch struct {
	kind   string
	status series.Status
}

type mockRecorder struct {
	mu      sync.Mutex
	records []recordedFetch
}

func (m *mockRecorder) RecordFetch(kind string, status series.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, recordedFetch{kind: kind, status: status})
}

type latencyKey struct {
	envID  string
	action valueobject.MetricActionType
}

type mockAutoscaling struct {
	info       *entity.GroupInfo
	infoErr    error
	pas        *entity.PASConfig
	pasErr     error
	latency    map[latencyKey][]entity.DataPoint
	latencyErr map[latencyKey]error
	raw        map[string][]entity.DataPoint
	rawErr     map[string]error
	pasPoints  []entity.DataPoint
	pasPtsErr  error

	lastStartTime string
	pasAction     valueobject.MetricActionType
}

func (m *mockAutoscaling) GetGroupInfo(_ context.Context, _ string) (*entity.GroupInfo, error) {
	return m.info, m.infoErr
}

func (m *mockAutoscaling) GetPASConfig(_ context.Context, _ string) (*entity.PASConfig, error) {
	return m.pas, m.pasErr
}

func (m *mockAutoscaling) GetLatencyData(_ context.Context, envID string, action valueobject.MetricActionType, startTime string) ([]entity.DataPoint, error) {
	m.lastStartTime = startTime
	key := latencyKey{envID: envID, action: action}
	if err := m.latencyErr[key]; err != nil {
		return nil, err
	}
	return m.latency[key], nil
}

func (m *mockAutoscaling) GetRawMetrics(_ context.Context, metricName, startTime string) ([]entity.DataPoint, error) {
	m.lastStartTime = startTime
	if err := m.rawErr[metricName]; err != nil {
		return nil, err
	}
	return m.raw[metricName], nil
}

func (m *mockAutoscaling) GetPASMetrics(_ context.Context, _ string, action valueobject.MetricActionType, startTime string) ([]entity.DataPoint, error) {
	m.lastStartTime = startTime
	m.pasAction = action
	return m.pasPoints, m.pasPtsErr
}

type mockIdentifiers struct {
	existing  map[string]entity.Identifier
	getErr    error
	createErr error
	created   []entity.Identifier
	deleted   []string
}

func (m *mockIdentifiers) GetIdentifier(_ context.Context, name string) (entity.Identifier, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.existing[name], nil
}

func (m *mockIdentifiers) CreateIdentifier(_ context.Context, data entity.Identifier) (entity.Identifier, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, data)
	out := data.Clone()
	out["uuid"] = "new-uuid"
	return out, nil
}

func (m *mockIdentifiers) DeleteIdentifier(_ context.Context, name string) error {
	m.deleted = append(m.deleted, name)
	return nil
}

func (m *mockIdentifiers) ProjectConsoleURL(projectName string) string {
	return "https://nimbus.example.com/projects/" + projectName
}

type publishedEvent struct {
	subject string
	event   interface{}
}

type mockEventPublisher struct {
	events []publishedEvent
	err    error
}

func (m *mockEventPublisher) PublishEvent(_ context.Context, subject string, event interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, publishedEvent{subject: subject, event: event})
	return nil
}

func (m *mockEventPublisher) Close() error { return nil }

var _ port.EventPublisher = (*mockEventPublisher)(nil)

func strPtr(s string) *string { return &s }
