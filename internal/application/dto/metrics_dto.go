package dto

import (
	"encoding/json"
	"sort"

	"github.com/dreschagin/deploy-board/internal/domain/entity"
	"github.com/dreschagin/deploy-board/internal/domain/series"
)

// ServiceMetricsDTO: ответ графиков сервиса: title -> серия или 0
type ServiceMetricsDTO struct {
	HTML map[string]series.Result `json:"html"`
}

// NewServiceMetricsDTO создает пустой ответ
func NewServiceMetricsDTO() *ServiceMetricsDTO {
	return &ServiceMetricsDTO{HTML: map[string]series.Result{}}
}

// GroupMetricsDTO is encoded as one flat JSON object: every named series
// plus the bookkeeping keys in Extra.
type GroupMetricsDTO struct {
	Series map[string]series.Series
	Extra  map[string]any

	// Partial is set when the per-environment loop stopped early; Err holds
	// the reason. Neither is encoded.
	Partial bool
	Err     error
}

// NewGroupMetricsDTO создает пустой набор групповых метрик
func NewGroupMetricsDTO() *GroupMetricsDTO {
	return &GroupMetricsDTO{
		Series: map[string]series.Series{},
		Extra:  map[string]any{},
	}
}

func (d GroupMetricsDTO) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Series)+len(d.Extra))
	for name, s := range d.Series {
		out[name] = s
	}
	for key, v := range d.Extra {
		out[key] = v
	}
	return json.Marshal(out)
}

// AlarmReportDTO holds the triggered alarms of a stage keyed by alarm name.
type AlarmReportDTO struct {
	Alarms   map[string]map[string]any `json:"alarms"`
	HasAlarm bool                      `json:"hasAlarm"`
}

// Names returns alarm names in a stable order for rendering.
func (r *AlarmReportDTO) Names() []string {
	names := make([]string, 0, len(r.Alarms))
	for name := range r.Alarms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PointsToSeries converts autoscaling points into a time-ordered series.
func PointsToSeries(points []entity.DataPoint) series.Series {
	out := make(series.Series, 0, len(points))
	for _, p := range points {
		out = append(out, series.Point{Timestamp: p.Timestamp, Value: p.Value})
	}
	out.SortByTime()
	return out
}
