package postgresql

// Schema migrations, keyed by version and applied in ascending order.
var migrations = map[int]string{
	1: `
		CREATE TABLE IF NOT EXISTS rules (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			trigger_type TEXT NOT NULL,
			priority INTEGER NOT NULL DEFAULT 0,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			conditions JSONB NOT NULL DEFAULT '[]',
			actions JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_rules_trigger_type ON rules (trigger_type, enabled);
	`,
	2: `
		CREATE TABLE IF NOT EXISTS executions (
			id UUID PRIMARY KEY,
			rule_id UUID NOT NULL,
			rule_name TEXT NOT NULL DEFAULT '',
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			trigger_type TEXT NOT NULL,
			status TEXT NOT NULL,
			actions_completed INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			action_results JSONB NOT NULL DEFAULT '[]',
			triggered_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_executions_triggered_at ON executions (triggered_at DESC);
		CREATE INDEX IF NOT EXISTS idx_executions_rule_id ON executions (rule_id);
	`,
}
