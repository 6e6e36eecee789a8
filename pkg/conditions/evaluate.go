package conditions

import (
	"strings"

	"github.com/bidflow/bidflow/pkg/models"
)

// Lookup walks a dot path through nested maps in the snapshot. A missing
// segment or a non-map intermediate means the field is absent.
func Lookup(snapshot map[string]any, path string) (any, bool) {
	if path == "" || snapshot == nil {
		return nil, false
	}

	segments := strings.Split(path, ".")
	current := snapshot

	for i, segment := range segments {
		value, ok := current[segment]
		if !ok {
			return nil, false
		}

		if i == len(segments)-1 {
			return value, true
		}

		next, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}

		current = next
	}

	return nil, false
}

// Evaluate tests one condition against an entity snapshot. Absence is never a
// match and no operator raises on bad operands.
func Evaluate(cond models.Condition, snapshot map[string]any) bool {
	raw, ok := Lookup(snapshot, cond.Field)
	if !ok {
		return false
	}

	field := ValueOf(raw)
	expected := ValueOf(cond.Value)

	switch cond.Operator {
	case models.OperatorEquals:
		return field.Equals(expected)
	case models.OperatorGt:
		return field.Kind == KindNumber && expected.Kind == KindNumber && field.Number > expected.Number
	case models.OperatorLt:
		return field.Kind == KindNumber && expected.Kind == KindNumber && field.Number < expected.Number
	case models.OperatorContains:
		return evaluateContains(field, expected)
	case models.OperatorInList:
		return evaluateInList(field, expected)
	default:
		return false
	}
}

// EvaluateAll reports whether every condition holds (logical AND,
// short-circuit). An empty condition list matches everything.
func EvaluateAll(conds []models.Condition, snapshot map[string]any) bool {
	for _, cond := range conds {
		if !Evaluate(cond, snapshot) {
			return false
		}
	}

	return true
}

// evaluateContains is substring match for string fields and membership test
// for list fields.
func evaluateContains(field, expected Value) bool {
	switch field.Kind {
	case KindString:
		if expected.Kind != KindString {
			return false
		}

		return strings.Contains(field.String, expected.String)
	case KindList:
		for _, element := range field.List {
			if ValueOf(element).Equals(expected) {
				return true
			}
		}

		return false
	default:
		return false
	}
}

// evaluateInList is true iff the field value equals any element of the rule's
// list value.
func evaluateInList(field, expected Value) bool {
	if expected.Kind != KindList {
		return false
	}

	for _, element := range expected.List {
		if field.Equals(ValueOf(element)) {
			return true
		}
	}

	return false
}
