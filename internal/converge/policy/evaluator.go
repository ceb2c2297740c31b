package policy

import "context"

// Outcome is the evaluator's verdict. Reason carries the evaluator's
// diagnostic verbatim; the policy path surfaces it to the caller for
// operator debugging.
type Outcome struct {
	Allow  bool
	Reason string
}

// Evaluator is the external policy engine port. Rule semantics are
// owned entirely by the collaborator behind this interface.
type Evaluator interface {
	Evaluate(ctx context.Context, doc Document) (Outcome, error)
}
