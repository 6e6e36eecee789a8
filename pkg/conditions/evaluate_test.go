package conditions

import (
	"testing"

	"github.com/bidflow/bidflow/pkg/models"
	"github.com/stretchr/testify/assert"
)

func snapshot() map[string]any {
	return map[string]any{
		"score": float64(85),
		"stage": "capture",
		"name":  "Network Modernization IDIQ",
		"tags":  []any{"federal", "it"},
		"agency": map[string]any{
			"name": "GSA",
			"tier": float64(1),
		},
		"set_aside": true,
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected any
		found    bool
	}{
		{"top level field", "score", float64(85), true},
		{"nested field", "agency.name", "GSA", true},
		{"nested number", "agency.tier", float64(1), true},
		{"missing top level", "owner", nil, false},
		{"missing nested", "agency.region", nil, false},
		{"path through scalar", "score.value", nil, false},
		{"empty path", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := Lookup(snapshot(), tt.path)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, value)
		})
	}
}

func TestEvaluate_Equals(t *testing.T) {
	tests := []struct {
		name     string
		cond     models.Condition
		expected bool
	}{
		{
			name:     "string equal",
			cond:     models.Condition{Field: "stage", Operator: models.OperatorEquals, Value: "capture"},
			expected: true,
		},
		{
			name:     "string not equal",
			cond:     models.Condition{Field: "stage", Operator: models.OperatorEquals, Value: "qualified"},
			expected: false,
		},
		{
			name:     "number equal across int and float",
			cond:     models.Condition{Field: "score", Operator: models.OperatorEquals, Value: 85},
			expected: true,
		},
		{
			name:     "bool equal",
			cond:     models.Condition{Field: "set_aside", Operator: models.OperatorEquals, Value: true},
			expected: true,
		},
		{
			name:     "type mismatch fails closed",
			cond:     models.Condition{Field: "stage", Operator: models.OperatorEquals, Value: 85},
			expected: false,
		},
		{
			name:     "missing field never matches",
			cond:     models.Condition{Field: "owner", Operator: models.OperatorEquals, Value: "anyone"},
			expected: false,
		},
		{
			name:     "nested field equal",
			cond:     models.Condition{Field: "agency.name", Operator: models.OperatorEquals, Value: "GSA"},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Evaluate(tt.cond, snapshot()))
		})
	}
}

func TestEvaluate_Comparison(t *testing.T) {
	tests := []struct {
		name     string
		cond     models.Condition
		expected bool
	}{
		{
			name:     "gt true",
			cond:     models.Condition{Field: "score", Operator: models.OperatorGt, Value: 80},
			expected: true,
		},
		{
			name:     "gt false on equal",
			cond:     models.Condition{Field: "score", Operator: models.OperatorGt, Value: 85},
			expected: false,
		},
		{
			name:     "lt true",
			cond:     models.Condition{Field: "score", Operator: models.OperatorLt, Value: 90},
			expected: true,
		},
		{
			name:     "lt false",
			cond:     models.Condition{Field: "score", Operator: models.OperatorLt, Value: 60},
			expected: false,
		},
		{
			name:     "gt against non-numeric field is false not error",
			cond:     models.Condition{Field: "stage", Operator: models.OperatorGt, Value: 10},
			expected: false,
		},
		{
			name:     "gt with non-numeric rule value is false",
			cond:     models.Condition{Field: "score", Operator: models.OperatorGt, Value: "eighty"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Evaluate(tt.cond, snapshot()))
		})
	}
}

func TestEvaluate_Contains(t *testing.T) {
	tests := []struct {
		name     string
		cond     models.Condition
		expected bool
	}{
		{
			name:     "substring match",
			cond:     models.Condition{Field: "name", Operator: models.OperatorContains, Value: "IDIQ"},
			expected: true,
		},
		{
			name:     "substring miss",
			cond:     models.Condition{Field: "name", Operator: models.OperatorContains, Value: "BPA"},
			expected: false,
		},
		{
			name:     "list membership",
			cond:     models.Condition{Field: "tags", Operator: models.OperatorContains, Value: "federal"},
			expected: true,
		},
		{
			name:     "list membership miss",
			cond:     models.Condition{Field: "tags", Operator: models.OperatorContains, Value: "state"},
			expected: false,
		},
		{
			name:     "contains on number field is false",
			cond:     models.Condition{Field: "score", Operator: models.OperatorContains, Value: "8"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Evaluate(tt.cond, snapshot()))
		})
	}
}

func TestEvaluate_InList(t *testing.T) {
	tests := []struct {
		name     string
		cond     models.Condition
		expected bool
	}{
		{
			name:     "member",
			cond:     models.Condition{Field: "stage", Operator: models.OperatorInList, Value: []any{"capture", "qualified"}},
			expected: true,
		},
		{
			name:     "not a member",
			cond:     models.Condition{Field: "stage", Operator: models.OperatorInList, Value: []any{"closed", "won"}},
			expected: false,
		},
		{
			name:     "number member across types",
			cond:     models.Condition{Field: "score", Operator: models.OperatorInList, Value: []any{60, 85}},
			expected: true,
		},
		{
			name:     "value not a list is false",
			cond:     models.Condition{Field: "stage", Operator: models.OperatorInList, Value: "capture"},
			expected: false,
		},
		{
			name:     "missing field is false",
			cond:     models.Condition{Field: "owner", Operator: models.OperatorInList, Value: []any{"a", "b"}},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Evaluate(tt.cond, snapshot()))
		})
	}
}

func TestEvaluate_UnknownOperator(t *testing.T) {
	cond := models.Condition{Field: "stage", Operator: "regex", Value: ".*"}
	assert.False(t, Evaluate(cond, snapshot()))
}

func TestEvaluateAll(t *testing.T) {
	t.Run("empty condition list matches everything", func(t *testing.T) {
		assert.True(t, EvaluateAll(nil, snapshot()))
		assert.True(t, EvaluateAll([]models.Condition{}, map[string]any{}))
	})

	t.Run("all conditions must hold", func(t *testing.T) {
		conds := []models.Condition{
			{Field: "score", Operator: models.OperatorGt, Value: 80},
			{Field: "stage", Operator: models.OperatorEquals, Value: "capture"},
		}
		assert.True(t, EvaluateAll(conds, snapshot()))

		conds = append(conds, models.Condition{Field: "stage", Operator: models.OperatorEquals, Value: "won"})
		assert.False(t, EvaluateAll(conds, snapshot()))
	})
}

func TestValueOf_InvalidKinds(t *testing.T) {
	assert.Equal(t, KindInvalid, ValueOf(nil).Kind)
	assert.Equal(t, KindInvalid, ValueOf(map[string]any{}).Kind)
	assert.Equal(t, KindInvalid, ValueOf(struct{}{}).Kind)
}
