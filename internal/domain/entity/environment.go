package entity

// Environment is one stage of a deployable application as the deploy
// backend reports it. Only the fields the use cases read are decoded; the
// browser routes pass the backend record through untouched.
type Environment struct {
	ID             string  `json:"id"`
	EnvName        string  `json:"envName"`
	StageName      string  `json:"stageName"`
	Description    string  `json:"description"`
	ClusterName    string  `json:"clusterName"`
	ExternalID     *string `json:"externalId"`
	MaxParallelPct int     `json:"maxParallelPct"`
}

// HasExternalID reports whether the stage is linked to an identifier. An
// empty string still counts as linked.
func (e Environment) HasExternalID() bool {
	return e.ExternalID != nil
}

// ShowNumber сообщает, что параллелизм задан абсолютным числом хостов, а не процентом
func (e Environment) ShowNumber() bool {
	return e.MaxParallelPct <= 0
}

// MetricConfig is one chart definition attached to a stage or to the site.
type MetricConfig struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// AlarmConfig points at an alerting endpoint whose answer carries a
// "triggered" flag.
type AlarmConfig struct {
	Name     string `json:"name"`
	AlarmURL string `json:"alarmUrl"`
}

// DataPoint is the autoscaling service's point format.
type DataPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// GroupInfo is the subset of autoscaling group info used by latency charts.
type GroupInfo struct {
	GroupInfo struct {
		GroupName       string   `json:"groupName"`
		LaunchLatencyTh *float64 `json:"launchLatencyTh"`
	} `json:"groupInfo"`
}

// PASConfig is the predictive autoscaling configuration of a group.
type PASConfig struct {
	GroupName string `json:"group_name"`
	State     string `json:"pas_state"`
}

// Enabled сообщает, включен ли predictive autoscaling для группы
func (c PASConfig) Enabled() bool {
	return c.State == "ENABLED"
}
