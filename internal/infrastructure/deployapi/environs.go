package deployapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dreschagin/deploy-board/internal/domain/entity"
	"github.com/dreschagin/deploy-board/internal/domain/valueobject"
)

// Environs is the facade over the /envs resource tree. Every method maps to
// exactly one backend call; responses and errors are returned unchanged.
type Environs struct {
	client *Client
}

func NewEnvirons(client *Client) *Environs {
	return &Environs{client: client}
}

// ListEnvironmentNames returns one page of environment names. page is
// 1-based; zero values fall back to page 1 and DefaultPageSize.
func (e *Environs) ListEnvironmentNames(ctx context.Context, nameFilter string, page, pageSize int) (json.RawMessage, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = valueobject.DefaultPageSize
	}
	params := url.Values{}
	params.Set("pageIndex", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	if nameFilter != "" {
		params.Set("nameFilter", nameFilter)
	}
	return e.client.Do(ctx, http.MethodGet, "/envs/names", params, nil)
}

// GetEnvironmentStages decodes every stage of envName. Browser routes use
// EnvironmentStagesJSON instead so the record is not re-encoded.
func (e *Environs) GetEnvironmentStages(ctx context.Context, envName string) ([]entity.Environment, error) {
	return decodeEnvironments(e.EnvironmentStagesJSON(ctx, envName))
}

func (e *Environs) GetEnvironmentsByGroup(ctx context.Context, groupName string) ([]entity.Environment, error) {
	return decodeEnvironments(e.EnvironmentsByGroupJSON(ctx, groupName))
}

func (e *Environs) EnvironmentStagesJSON(ctx context.Context, envName string) (json.RawMessage, error) {
	if err := requireNames(envName); err != nil {
		return nil, err
	}
	return e.client.Do(ctx, http.MethodGet, "/envs", url.Values{"envName": {envName}}, nil)
}

func (e *Environs) EnvironmentsByGroupJSON(ctx context.Context, groupName string) (json.RawMessage, error) {
	if err := requireNames(groupName); err != nil {
		return nil, err
	}
	return e.client.Do(ctx, http.MethodGet, "/envs/", url.Values{"groupName": {groupName}}, nil)
}

func (e *Environs) GetSidecarEnvironments(ctx context.Context) (json.RawMessage, error) {
	return e.client.Do(ctx, http.MethodGet, "/envs/sidecars", nil, nil)
}

func (e *Environs) GetEnvironment(ctx context.Context, id string) (json.RawMessage, error) {
	if err := requireNames(id); err != nil {
		return nil, err
	}
	return e.client.Do(ctx, http.MethodGet, "/envs/"+url.PathEscape(id), nil, nil)
}

func (e *Environs) GetEnvironmentByStage(ctx context.Context, envName, stageName string) (json.RawMessage, error) {
	path, err := stagePath(envName, stageName, "")
	if err != nil {
		return nil, err
	}
	return e.client.Do(ctx, http.MethodGet, path, nil, nil)
}

func decodeEnvironments(body json.RawMessage, err error) ([]entity.Environment, error) {
	if err != nil {
		return nil, err
	}
	var envs []entity.Environment
	if len(body) == 0 {
		return envs, nil
	}
	if err := json.Unmarshal(body, &envs); err != nil {
		return nil, fmt.Errorf("decode environments: %w", err)
	}
	return envs, nil
}

func (e *Environs) GetCapacity(ctx context.Context, envName, stageName, capacityType string) (json.RawMessage, error) {
	return e.capacity(ctx, http.MethodGet, envName, stageName, capacityType, nil)
}

func (e *Environs) UpdateCapacity(ctx context.Context, envName, stageName, capacityType string, data json.RawMessage) (json.RawMessage, error) {
	return e.capacity(ctx, http.MethodPut, envName, stageName, capacityType, data)
}

func (e *Environs) AddCapacity(ctx context.Context, envName, stageName, capacityType string, data json.RawMessage) (json.RawMessage, error) {
	return e.capacity(ctx, http.MethodPost, envName, stageName, capacityType, data)
}

func (e *Environs) RemoveCapacity(ctx context.Context, envName, stageName, capacityType string, data json.RawMessage) (json.RawMessage, error) {
	return e.capacity(ctx, http.MethodDelete, envName, stageName, capacityType, data)
}

func (e *Environs) capacity(ctx context.Context, method, envName, stageName, capacityType string, data json.RawMessage) (json.RawMessage, error) {
	path, err := stagePath(envName, stageName, "capacity")
	if err != nil {
		return nil, err
	}
	var params url.Values
	if capacityType != "" {
		params = url.Values{"capacityType": {capacityType}}
	}
	return e.client.Do(ctx, method, path, params, data)
}

// GetConfig returns one configuration facet of a stage.
func (e *Environs) GetConfig(ctx context.Context, envName, stageName string, facet valueobject.ConfigFacet) (json.RawMessage, error) {
	path, err := stagePath(envName, stageName, facet.String())
	if err != nil {
		return nil, err
	}
	return e.client.Do(ctx, http.MethodGet, path, nil, nil)
}

// UpdateConfig replaces one configuration facet of a stage.
func (e *Environs) UpdateConfig(ctx context.Context, envName, stageName string, facet valueobject.ConfigFacet, data json.RawMessage) (json.RawMessage, error) {
	path, err := stagePath(envName, stageName, facet.String())
	if err != nil {
		return nil, err
	}
	return e.client.Do(ctx, http.MethodPut, path, nil, data)
}

func (e *Environs) GetMetricsConfig(ctx context.Context, envName, stageName string) ([]entity.MetricConfig, error) {
	path, err := stagePath(envName, stageName, valueobject.FacetMetrics.String())
	if err != nil {
		return nil, err
	}
	var configs []entity.MetricConfig
	err = e.client.DoJSON(ctx, http.MethodGet, path, nil, nil, &configs)
	return configs, err
}

func (e *Environs) GetAlarmsConfig(ctx context.Context, envName, stageName string) ([]entity.AlarmConfig, error) {
	path, err := stagePath(envName, stageName, valueobject.FacetAlarms.String())
	if err != nil {
		return nil, err
	}
	var configs []entity.AlarmConfig
	err = e.client.DoJSON(ctx, http.MethodGet, path, nil, nil, &configs)
	return configs, err
}

func (e *Environs) CreateEnvironment(ctx context.Context, data json.RawMessage) (json.RawMessage, error) {
	return e.client.Do(ctx, http.MethodPost, "/envs", nil, data)
}

func (e *Environs) UpdateBasicConfig(ctx context.Context, envName, stageName string, data json.RawMessage) (json.RawMessage, error) {
	path, err := stagePath(envName, stageName, "")
	if err != nil {
		return nil, err
	}
	return e.client.Do(ctx, http.MethodPut, path, nil, data)
}

func (e *Environs) DeleteEnvironment(ctx context.Context, envName, stageName string) error {
	path, err := stagePath(envName, stageName, "")
	if err != nil {
		return err
	}
	_, err = e.client.Do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

func (e *Environs) GetConfigHistory(ctx context.Context, envName, stageName string, page, pageSize int) (json.RawMessage, error) {
	path, err := stagePath(envName, stageName, "history")
	if err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = valueobject.DefaultPageSize
	}
	params := url.Values{}
	params.Set("pageIndex", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	return e.client.Do(ctx, http.MethodGet, path, params, nil)
}

// SetAllChanges enables or disables changes for every environment.
func (e *Environs) SetAllChanges(ctx context.Context, action valueobject.ChangeAction, description string) error {
	_, err := e.client.Do(ctx, http.MethodPost, "/envs/actions", actionParams(action, description), nil)
	return err
}

func (e *Environs) EnableAllChanges(ctx context.Context, description string) error {
	return e.SetAllChanges(ctx, valueobject.ChangeActionEnable, description)
}

func (e *Environs) DisableAllChanges(ctx context.Context, description string) error {
	return e.SetAllChanges(ctx, valueobject.ChangeActionDisable, description)
}

// SetChanges enables or disables changes for one stage.
func (e *Environs) SetChanges(ctx context.Context, envName, stageName string, action valueobject.ChangeAction, description string) error {
	path, err := stagePath(envName, stageName, "actions")
	if err != nil {
		return err
	}
	_, err = e.client.Do(ctx, http.MethodPost, path, actionParams(action, description), nil)
	return err
}

func (e *Environs) EnableChanges(ctx context.Context, envName, stageName, description string) error {
	return e.SetChanges(ctx, envName, stageName, valueobject.ChangeActionEnable, description)
}

func (e *Environs) DisableChanges(ctx context.Context, envName, stageName, description string) error {
	return e.SetChanges(ctx, envName, stageName, valueobject.ChangeActionDisable, description)
}

// ApplyHostAction moves the given hosts of a stage into the action's agent state.
func (e *Environs) ApplyHostAction(ctx context.Context, envName, stageName string, action valueobject.HostAction, hostIDs []string) error {
	path, err := stagePath(envName, stageName, "deploys/hostactions")
	if err != nil {
		return err
	}
	if hostIDs == nil {
		hostIDs = []string{}
	}
	_, err = e.client.Do(ctx, http.MethodPut, path, url.Values{"actionType": {string(action)}}, hostIDs)
	return err
}

func (e *Environs) PauseHosts(ctx context.Context, envName, stageName string, hostIDs []string) error {
	return e.ApplyHostAction(ctx, envName, stageName, valueobject.HostActionPause, hostIDs)
}

func (e *Environs) ResumeHosts(ctx context.Context, envName, stageName string, hostIDs []string) error {
	return e.ApplyHostAction(ctx, envName, stageName, valueobject.HostActionResume, hostIDs)
}

func (e *Environs) ResetHosts(ctx context.Context, envName, stageName string, hostIDs []string) error {
	return e.ApplyHostAction(ctx, envName, stageName, valueobject.HostActionReset, hostIDs)
}

func (e *Environs) SetExternalID(ctx context.Context, envName, stageName, externalID string) (json.RawMessage, error) {
	path, err := stagePath(envName, stageName, "external_id")
	if err != nil {
		return nil, err
	}
	return e.client.Do(ctx, http.MethodPost, path, nil, externalID)
}

func (e *Environs) GetPinDeploy(ctx context.Context, envName, stageName string) (json.RawMessage, error) {
	if err := requireNames(envName, stageName); err != nil {
		return nil, err
	}
	return e.client.Do(ctx, http.MethodGet, "/pindeploy", url.Values{
		"envName":   {envName},
		"stageName": {stageName},
	}, nil)
}

func actionParams(action valueobject.ChangeAction, description string) url.Values {
	params := url.Values{}
	params.Set("actionType", string(action))
	params.Set("description", description)
	return params
}

func stagePath(envName, stageName, suffix string) (string, error) {
	if err := requireNames(envName, stageName); err != nil {
		return "", err
	}
	path := "/envs/" + url.PathEscape(envName) + "/" + url.PathEscape(stageName)
	if suffix != "" {
		path += "/" + suffix
	}
	return path, nil
}

func requireNames(names ...string) error {
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%w: environment and stage names are required", ErrMissingIdentifier)
		}
	}
	return nil
}
