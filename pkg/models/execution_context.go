package models

// ExecutionContext carries everything an action handler may read while a rule
// fires: the matched rule, the triggering event and the entity snapshot the
// conditions were evaluated against. The snapshot is read-only; handlers that
// change the entity do so through the platform, never by mutating it.
type ExecutionContext struct {
	RuleID      string         `json:"rule_id"`
	RuleName    string         `json:"rule_name"`
	TriggerType TriggerType    `json:"trigger_type"`
	Entity      EntityRef      `json:"entity"`
	Snapshot    map[string]any `json:"snapshot"`
}
