package agent

import "fmt"

// MalformedResponseError means the sanitized model output was not valid
// JSON. The raw model text is attached for diagnosis; the pipeline never
// substitutes a default value for an unparseable response.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("invalid model output: %v (response: %s)", e.Err, e.Raw)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ContractViolationError means the model output parsed as JSON but failed a
// shape or invariant check: a missing required field, a verdict count
// mismatch, a hallucinated item, or an offer above the budget ceiling.
// Violations are always rejected outright, never partially accepted.
type ContractViolationError struct {
	Reason string
	Raw    string
}

func (e *ContractViolationError) Error() string {
	if e.Raw == "" {
		return "model output violates contract: " + e.Reason
	}
	return fmt.Sprintf("model output violates contract: %s (response: %s)", e.Reason, e.Raw)
}

func contractViolationf(raw, format string, a ...any) error {
	return &ContractViolationError{Reason: fmt.Sprintf(format, a...), Raw: raw}
}
