package lockmgr

import (
	"github.com/juju/errors"
)

const (
	// ErrGarbageLock is returned when a collected lock record is asked to award, request,
	// accept an award or describe itself. Callers must drop the record and start over
	// with a fresh one; a garbage record is never revived.
	ErrGarbageLock = errors.ConstError("lockmgr: garbage lock")

	// ErrIllegalTransition is returned when a transition is not defined for the current state.
	// It signals a defect in the caller, not a condition to retry.
	ErrIllegalTransition = errors.ConstError("lockmgr: illegal transition")

	// ErrLockNotHeld is returned when unlocking a level the thread does not hold.
	ErrLockNotHeld = errors.ConstError("lockmgr: lock not held")

	// ErrLockUpgrade is returned when a thread holding only read access asks for write access.
	ErrLockUpgrade = errors.ConstError("lockmgr: read to write upgrade not supported")

	// ErrManagerClosed is returned by every operation after Close.
	ErrManagerClosed = errors.ConstError("lockmgr: manager closed")
)

// illegal annotates ErrIllegalTransition with the transition and state
func illegal(transition string, g Greediness) error {
	return errors.Annotatef(ErrIllegalTransition, "%s while in state %s", transition, g)
}

// garbage annotates ErrGarbageLock with the operation
func garbage(operation string) error {
	return errors.Annotatef(ErrGarbageLock, "%s", operation)
}
