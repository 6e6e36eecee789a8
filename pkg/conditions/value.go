// Package conditions implements rule condition evaluation against entity
// snapshots. Evaluation is pure and fails closed: malformed conditions, type
// mismatches and missing fields all evaluate to "no match", never to an error,
// so one bad rule cannot block dispatch of others.
package conditions

// Kind discriminates the typed value union used for comparisons.
type Kind int

const (
	KindInvalid Kind = iota
	KindNumber
	KindString
	KindBool
	KindList
)

// Value is the typed view of a snapshot field or rule value. Numbers are
// normalized to float64 the way encoding/json produces them, so ints from Go
// literals and floats from JSON compare equal.
type Value struct {
	Kind   Kind
	Number float64
	String string
	Bool   bool
	List   []any
}

// ValueOf classifies v into the typed union. Values outside the union
// (maps, structs, nil) come back as KindInvalid and never match anything.
func ValueOf(v any) Value {
	switch typed := v.(type) {
	case float64:
		return Value{Kind: KindNumber, Number: typed}
	case float32:
		return Value{Kind: KindNumber, Number: float64(typed)}
	case int:
		return Value{Kind: KindNumber, Number: float64(typed)}
	case int32:
		return Value{Kind: KindNumber, Number: float64(typed)}
	case int64:
		return Value{Kind: KindNumber, Number: float64(typed)}
	case string:
		return Value{Kind: KindString, String: typed}
	case bool:
		return Value{Kind: KindBool, Bool: typed}
	case []any:
		return Value{Kind: KindList, List: typed}
	case []string:
		list := make([]any, len(typed))
		for i, s := range typed {
			list[i] = s
		}

		return Value{Kind: KindList, List: list}
	default:
		return Value{Kind: KindInvalid}
	}
}

// Equals compares two values of the same kind. Kind mismatch is false, not an
// error: a rule comparing a string field against a number simply never matches.
func (v Value) Equals(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}

	switch v.Kind {
	case KindNumber:
		return v.Number == other.Number
	case KindString:
		return v.String == other.String
	case KindBool:
		return v.Bool == other.Bool
	default:
		return false
	}
}
