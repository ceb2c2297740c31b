package policy

import (
	"context"
	"fmt"
	"os"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// ExpressionEvaluator evaluates an operator-authored JMESPath
// expression against the native rendering of the attribute document.
// A truthy result (per JMESPath truthiness: not null, false, empty
// string, empty array, or empty object) is Allow.
//
// The expression text is the externally supplied policy document; this
// adapter owns none of its semantics.
type ExpressionEvaluator struct {
	source string
	expr   string
}

// NewExpressionEvaluator compiles the expression up front so a broken
// policy document fails at startup, not per decision.
func NewExpressionEvaluator(expr string) (*ExpressionEvaluator, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("policy: empty expression")
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return nil, fmt.Errorf("policy: compile expression: %w", err)
	}
	return &ExpressionEvaluator{source: "inline", expr: expr}, nil
}

// NewExpressionEvaluatorFromFile loads the policy document from disk.
func NewExpressionEvaluatorFromFile(path string) (*ExpressionEvaluator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read expression file: %w", err)
	}
	e, err := NewExpressionEvaluator(string(data))
	if err != nil {
		return nil, err
	}
	e.source = path
	return e, nil
}

func (e *ExpressionEvaluator) Evaluate(_ context.Context, doc Document) (Outcome, error) {
	result, err := jmespath.Search(e.expr, doc.Native())
	if err != nil {
		return Outcome{}, fmt.Errorf("policy: evaluate expression from %s: %w", e.source, err)
	}

	if truthy(result) {
		return Outcome{Allow: true}, nil
	}
	return Outcome{Allow: false, Reason: "policy expression did not match"}, nil
}

// truthy mirrors JMESPath's own false-value rules.
func truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case string:
		return value != ""
	case []any:
		return len(value) > 0
	case map[string]any:
		return len(value) > 0
	default:
		// Numbers are truthy, including zero, matching JMESPath.
		return true
	}
}
