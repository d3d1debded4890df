package listing

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the listing id resolves to nothing.
	ErrNotFound = errors.New("listing not found")

	// ErrNeedsMoreInput is a recoverable prompt, not a failure: the caller
	// must collect a counter-offer text and re-invoke the rejection.
	ErrNeedsMoreInput = errors.New("counter offer text required")

	// ErrStoreUnavailable wraps transient store/blob I/O failures. The
	// actor retriggers the action; the core performs no automatic retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError reports a required field or photo missing at submit or
// quote time. No state change occurs.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// InvalidTransitionError reports an action attempted from a state that
// does not permit it, or by an actor that may not trigger it.
type InvalidTransitionError struct {
	From   Status
	Action Action
	Role   Role
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("action %q by %s not allowed from status %q", e.Action, e.Role, e.From)
}
