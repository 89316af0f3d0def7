package deployapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dreschagin/deploy-board/internal/domain/entity"
	"github.com/dreschagin/deploy-board/internal/domain/valueobject"
)

// Autoscaling reads autoscaling group metadata and metric points.
type Autoscaling struct {
	client *Client
}

func NewAutoscaling(client *Client) *Autoscaling {
	return &Autoscaling{client: client}
}

func (a *Autoscaling) GetGroupInfo(ctx context.Context, groupName string) (*entity.GroupInfo, error) {
	if err := requireNames(groupName); err != nil {
		return nil, err
	}
	var info entity.GroupInfo
	if err := a.client.DoJSON(ctx, http.MethodGet, "/groups/"+url.PathEscape(groupName)+"/info", nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (a *Autoscaling) GetPASConfig(ctx context.Context, groupName string) (*entity.PASConfig, error) {
	if err := requireNames(groupName); err != nil {
		return nil, err
	}
	var cfg entity.PASConfig
	if err := a.client.DoJSON(ctx, http.MethodGet, "/groups/"+url.PathEscape(groupName)+"/pas", nil, nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (a *Autoscaling) GetLatencyData(ctx context.Context, envID string, action valueobject.MetricActionType, startTime string) ([]entity.DataPoint, error) {
	return a.points(ctx, "/metrics/latency", url.Values{
		"envId":      {envID},
		"actionType": {string(action)},
		"startTime":  {startTime},
	})
}

func (a *Autoscaling) GetRawMetrics(ctx context.Context, metricName, startTime string) ([]entity.DataPoint, error) {
	return a.points(ctx, "/metrics/raw_metrics", url.Values{
		"metricName": {metricName},
		"start":      {startTime},
	})
}

func (a *Autoscaling) GetPASMetrics(ctx context.Context, groupName string, action valueobject.MetricActionType, startTime string) ([]entity.DataPoint, error) {
	return a.points(ctx, "/metrics/pas", url.Values{
		"clusterName": {groupName},
		"actionType":  {string(action)},
		"startTime":   {startTime},
	})
}

func (a *Autoscaling) points(ctx context.Context, path string, params url.Values) ([]entity.DataPoint, error) {
	var points []entity.DataPoint
	if err := a.client.DoJSON(ctx, http.MethodGet, path, params, nil, &points); err != nil {
		return nil, err
	}
	return points, nil
}
