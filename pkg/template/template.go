// Package template renders notification content against the firing rule's
// execution context.
package template

import (
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/bidflow/bidflow/pkg/models"
)

// RenderWithContext renders input with the execution context exposed as
// template data: .entity (type/id), .snapshot (the evaluated field map),
// .rule (id/name), .trigger and .env.
func RenderWithContext(input string, executionCtx models.ExecutionContext) (string, error) {
	data := map[string]any{
		"entity": map[string]any{
			"type": executionCtx.Entity.Type,
			"id":   executionCtx.Entity.ID,
		},
		"snapshot": executionCtx.Snapshot,
		"rule": map[string]any{
			"id":   executionCtx.RuleID,
			"name": executionCtx.RuleName,
		},
		"trigger": string(executionCtx.TriggerType),
		"env":     getEnvVars(),
	}

	return Render(input, data)
}

// Render parses and executes one template string. Unresolvable fields are an
// error rather than empty output, so a typo in a rule's notification template
// surfaces as an action failure instead of a blank message.
func Render(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("notification").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}

func getEnvVars() map[string]string {
	envVars := make(map[string]string)

	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) == 2 {
			envVars[pair[0]] = pair[1]
		}
	}

	return envVars
}
