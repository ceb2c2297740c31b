// Package policy translates domain objects into a generic attribute
// document for an external policy evaluator and maps its verdict back
// into a decision. Rule semantics live entirely in the operator-supplied
// policy document; this package is structural.
package policy

// attrKind tags the variant held by an AttributeValue.
type attrKind int

const (
	kindBool attrKind = iota
	kindInt
	kindString
	kindSet
	kindRecord
)

// AttributeValue is an explicit recursive variant: Bool, Int, String,
// Set, or Record. Building documents from these constructors keeps the
// normalizer's output shape statically checkable instead of an ad hoc
// map[string]any tree.
type AttributeValue struct {
	kind   attrKind
	b      bool
	i      int64
	s      string
	set    []AttributeValue
	record map[string]AttributeValue
}

func Bool(v bool) AttributeValue {
	return AttributeValue{kind: kindBool, b: v}
}

func Int(v int64) AttributeValue {
	return AttributeValue{kind: kindInt, i: v}
}

func String(v string) AttributeValue {
	return AttributeValue{kind: kindString, s: v}
}

func Set(values ...AttributeValue) AttributeValue {
	return AttributeValue{kind: kindSet, set: values}
}

// StringSet builds a Set of Strings, the most common collection shape.
func StringSet(values []string) AttributeValue {
	set := make([]AttributeValue, len(values))
	for i, v := range values {
		set[i] = String(v)
	}
	return AttributeValue{kind: kindSet, set: set}
}

func Record(fields map[string]AttributeValue) AttributeValue {
	return AttributeValue{kind: kindRecord, record: fields}
}

// Native renders the value as the JSON-shaped tree evaluators consume:
// bool, float64, string, []any, map[string]any. Integers become
// float64 so comparisons inside the policy document behave exactly as
// they would over a parsed JSON body.
func (v AttributeValue) Native() any {
	switch v.kind {
	case kindBool:
		return v.b
	case kindInt:
		return float64(v.i)
	case kindString:
		return v.s
	case kindSet:
		out := make([]any, len(v.set))
		for i, elem := range v.set {
			out[i] = elem.Native()
		}
		return out
	case kindRecord:
		native := make(map[string]any, len(v.record))
		for k, elem := range v.record {
			native[k] = elem.Native()
		}
		return native
	default:
		return nil
	}
}
