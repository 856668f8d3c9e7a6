package marketplace

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// Failure classes. Every error returned by the engine wraps exactly one of
// these sentinels, so callers can classify with errors.Is and decide whether
// to correct parameters, refresh their view of state, or give up.
var (
	// ErrPrecondition marks caller-correctable validation failures: expired
	// offer, price below minimum, wrong payment token, quantity out of
	// bounds, unapproved collection, insufficient balance or consent.
	ErrPrecondition = stderrors.New("precondition failed")

	// ErrStateConflict marks failures caused by a stale view of state:
	// offer already exists on create, offer absent on update or match,
	// self-dealing.
	ErrStateConflict = stderrors.New("state conflict")

	// ErrUnauthorized marks missing roles and calls rejected while paused.
	ErrUnauthorized = stderrors.New("unauthorized")

	// ErrTransfer marks a registry or ledger refusing an asset movement.
	// It aborts the whole enclosing call, batched siblings included.
	ErrTransfer = stderrors.New("transfer failed")

	// ErrReentrantCall is returned when a state-mutating entry point is
	// re-entered, typically from a transfer hook, before the original call
	// released the guard.
	ErrReentrantCall = stderrors.New("reentrant call")
)

func preconditionf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrPrecondition, format, args...)
}

func stateConflictf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrStateConflict, format, args...)
}

func unauthorizedf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrUnauthorized, format, args...)
}

func transferFailed(cause error, what string) error {
	return errors.Wrapf(ErrTransfer, "%s: %v", what, cause)
}
