package models

import "fmt"

// ValidationError reports malformed or out-of-range caller input. It names
// the offending field and the value received so the UI can highlight the
// exact problem.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// InvalidPlanError reports a plan template that cannot be scaled, such as a
// zero base amount. A LoanTerms snapshot must not be created from it.
type InvalidPlanError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidPlanError) Error() string {
	return fmt.Sprintf("invalid plan: %s %q: %s", e.Field, e.Value, e.Reason)
}
