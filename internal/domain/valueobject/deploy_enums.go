package valueobject

import "errors"

// Перечисления ниже принадлежат deploy backend'у. Здесь проверяются только
// значения, которые браузер может прислать в теле запроса; переходы между
// состояниями не интерпретируются.

var ErrUnknownEnumValue = errors.New("unknown enum value")

type DeployPriority string

const (
	DeployPriorityLower  DeployPriority = "LOWER"
	DeployPriorityLow    DeployPriority = "LOW"
	DeployPriorityNormal DeployPriority = "NORMAL"
	DeployPriorityHigh   DeployPriority = "HIGH"
	DeployPriorityHigher DeployPriority = "HIGHER"
)

func (p DeployPriority) Valid() bool {
	return contains([]DeployPriority{
		DeployPriorityLower, DeployPriorityLow, DeployPriorityNormal, DeployPriorityHigh, DeployPriorityHigher,
	}, p)
}

type AcceptanceType string

const (
	AcceptanceTypeAuto   AcceptanceType = "AUTO"
	AcceptanceTypeManual AcceptanceType = "MANUAL"
)

func (a AcceptanceType) Valid() bool {
	return a == AcceptanceTypeAuto || a == AcceptanceTypeManual
}

type OverridePolicy string

const (
	OverridePolicyOverride OverridePolicy = "OVERRIDE"
	OverridePolicyWarn     OverridePolicy = "WARN"
)

func (p OverridePolicy) Valid() bool { return p == OverridePolicyOverride || p == OverridePolicyWarn }

type StageType string

const (
	StageTypeDefault    StageType = "DEFAULT"
	StageTypeLatest     StageType = "LATEST"
	StageTypeDev        StageType = "DEV"
	StageTypeStaging    StageType = "STAGING"
	StageTypeCanary     StageType = "CANARY"
	StageTypeControl    StageType = "CONTROL"
	StageTypeProduction StageType = "PRODUCTION"
)

func (s StageType) Valid() bool {
	return contains([]StageType{
		StageTypeDefault, StageTypeLatest, StageTypeDev, StageTypeStaging,
		StageTypeCanary, StageTypeControl, StageTypeProduction,
	}, s)
}

type PromoteType string

const (
	PromoteTypeManual PromoteType = "MANUAL"
	PromoteTypeAuto   PromoteType = "AUTO"
)

func (p PromoteType) Valid() bool { return p == PromoteTypeManual || p == PromoteTypeAuto }

type PromoteFailedPolicy string

const (
	PromoteFailedPolicyContinue PromoteFailedPolicy = "CONTINUE"
	PromoteFailedPolicyDisable  PromoteFailedPolicy = "DISABLE"
	PromoteFailedPolicyRollback PromoteFailedPolicy = "ROLLBACK"
)

func (p PromoteFailedPolicy) Valid() bool {
	return contains([]PromoteFailedPolicy{
		PromoteFailedPolicyContinue, PromoteFailedPolicyDisable, PromoteFailedPolicyRollback,
	}, p)
}

type PromoteDisablePolicy string

const (
	PromoteDisablePolicyManual PromoteDisablePolicy = "MANUAL"
	PromoteDisablePolicyAuto   PromoteDisablePolicy = "AUTO"
)

func (p PromoteDisablePolicy) Valid() bool {
	return p == PromoteDisablePolicyManual || p == PromoteDisablePolicyAuto
}

// EnumField is one enum-typed field of a request body.
type EnumField struct {
	Name  string
	Valid func(string) bool
}

// EnvironmentEnumFields are checked on environment create and update bodies.
var EnvironmentEnumFields = []EnumField{
	{Name: "priority", Valid: func(s string) bool { return DeployPriority(s).Valid() }},
	{Name: "stageType", Valid: func(s string) bool { return StageType(s).Valid() }},
	{Name: "overridePolicy", Valid: func(s string) bool { return OverridePolicy(s).Valid() }},
	{Name: "acceptanceType", Valid: func(s string) bool { return AcceptanceType(s).Valid() }},
}

// PromoteEnumFields are checked on promotes config updates.
var PromoteEnumFields = []EnumField{
	{Name: "type", Valid: func(s string) bool { return PromoteType(s).Valid() }},
	{Name: "failPolicy", Valid: func(s string) bool { return PromoteFailedPolicy(s).Valid() }},
	{Name: "disablePolicy", Valid: func(s string) bool { return PromoteDisablePolicy(s).Valid() }},
}

func contains[T comparable](set []T, v T) bool {
	for _, item := range set {
		if item == v {
			return true
		}
	}
	return false
}
