package entity

// Identifier is an opaque record of the external identifier system. Only
// uuid, env_name and stage_name are interpreted here.
type Identifier map[string]any

// UUID возвращает уникальный id identifier'а или пустую строку
func (i Identifier) UUID() string {
	if i == nil {
		return ""
	}
	id, _ := i["uuid"].(string)
	return id
}

// Clone returns a shallow copy of the record.
func (i Identifier) Clone() Identifier {
	out := make(Identifier, len(i))
	for k, v := range i {
		out[k] = v
	}
	return out
}

// ForStage clones the record and points it at another stage.
func (i Identifier) ForStage(envName, stageName string) Identifier {
	out := i.Clone()
	out["env_name"] = envName
	out["stage_name"] = stageName
	return out
}
