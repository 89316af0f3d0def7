package valueobject

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownFacet        = errors.New("unknown config facet")
	ErrUnknownChangeAction = errors.New("unknown change action")
	ErrUnknownHostAction   = errors.New("unknown host action")
)

// ConfigFacet это один из симметричных под-ресурсов конфигурации stage'а
type ConfigFacet string

const (
	FacetScript   ConfigFacet = "script_configs"
	FacetAgent    ConfigFacet = "agent_configs"
	FacetAlarms   ConfigFacet = "alarms"
	FacetMetrics  ConfigFacet = "metrics"
	FacetHooks    ConfigFacet = "web_hooks"
	FacetPromotes ConfigFacet = "promotes"
)

// AllConfigFacets возвращает все допустимые facet'ы
func AllConfigFacets() []ConfigFacet {
	return []ConfigFacet{FacetScript, FacetAgent, FacetAlarms, FacetMetrics, FacetHooks, FacetPromotes}
}

// ParseConfigFacet accepts either the path suffix or its short name
// (script, agent, alarms, metrics, hooks, promotes).
func ParseConfigFacet(s string) (ConfigFacet, error) {
	switch s {
	case "script", string(FacetScript):
		return FacetScript, nil
	case "agent", string(FacetAgent):
		return FacetAgent, nil
	case string(FacetAlarms):
		return FacetAlarms, nil
	case string(FacetMetrics):
		return FacetMetrics, nil
	case "hooks", string(FacetHooks):
		return FacetHooks, nil
	case string(FacetPromotes):
		return FacetPromotes, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFacet, s)
	}
}

func (f ConfigFacet) String() string {
	return string(f)
}

// ChangeAction включает или выключает возможность менять окружения
type ChangeAction string

const (
	ChangeActionEnable  ChangeAction = "ENABLE"
	ChangeActionDisable ChangeAction = "DISABLE"
)

// ParseChangeAction принимает ENABLE или DISABLE в любом регистре
func ParseChangeAction(s string) (ChangeAction, error) {
	switch action := ChangeAction(strings.ToUpper(s)); action {
	case ChangeActionEnable, ChangeActionDisable:
		return action, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownChangeAction, s)
	}
}

// AgentState is the backend's agent state token. Only the states a host
// action can move hosts into are listed.
type AgentState string

const (
	AgentStateNormal       AgentState = "NORMAL"
	AgentStatePausedByUser AgentState = "PAUSED_BY_USER"
	AgentStateReset        AgentState = "RESET"
)

// HostAction is the agent state a host action moves hosts into.
type HostAction string

const (
	HostActionPause  HostAction = HostAction(AgentStatePausedByUser)
	HostActionResume HostAction = HostAction(AgentStateNormal)
	HostActionReset  HostAction = HostAction(AgentStateReset)
)

// ParseHostAction maps the route token (pause, resume, reset) to its action.
func ParseHostAction(s string) (HostAction, error) {
	switch strings.ToLower(s) {
	case "pause":
		return HostActionPause, nil
	case "resume":
		return HostActionResume, nil
	case "reset":
		return HostActionReset, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownHostAction, s)
	}
}

// MetricActionType selects the autoscaling metric series to fetch.
type MetricActionType string

const (
	MetricActionLaunch    MetricActionType = "LAUNCH"
	MetricActionDeploy    MetricActionType = "DEPLOY"
	MetricActionPredicted MetricActionType = "PREDICTED"
)

// DefaultPageSize is the backend default for paginated listings.
const DefaultPageSize = 30
