package lockmgr

import (
	"context"
	"io"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IClientLockManager is the participant side of the distributed lock manager.
// Local threads acquire and release locks through it; the transport feeds it the
// messages of the server. Acquisitions that the cached greediness can satisfy never
// leave the process.
type IClientLockManager interface {
	// Lock acquires the lock at the given level for the thread, waiting until it is
	// granted or the context is done. Holds are reentrant per thread.
	Lock(ctx context.Context, lock LockID, thread ThreadID, level LockLevel) error
	// TryLock acquires the lock only if the cache can grant it right away.
	// It never contacts the server.
	TryLock(ctx context.Context, lock LockID, thread ThreadID, level LockLevel) (ok bool, err error)
	// Unlock releases one hold of the thread. Local changes are flushed before it returns
	// if the lock is not cached greedily or the level is a synchronous write.
	Unlock(ctx context.Context, lock LockID, thread ThreadID, level LockLevel) error

	// OnAwarded applies a greedy award from the server.
	OnAwarded(ctx context.Context, lock LockID, level ServerLockLevel) error
	// OnRecalled applies a recall from the server. The lease allows the participant to
	// keep a write grant while local requests are pending.
	OnRecalled(ctx context.Context, lock LockID, level ServerLockLevel, lease int) error
	// OnRecallCommitted applies the acknowledgement of a surrender.
	OnRecallCommitted(ctx context.Context, lock LockID) error

	// Sweep collects idle locks and returns how many were removed.
	Sweep() int
	// Start runs the sweeper in the background until the context is done or the manager is closed.
	Start(ctx context.Context)
	// Contexts returns the holdings of the participant for a resync with the server.
	Contexts() ([]ExchangeContext, error)

	// State returns the greediness of the lock. Unknown locks are Free.
	State(lock LockID) Greediness
	// PendingCount returns the number of waiting local requests for the lock.
	PendingCount(lock LockID) int
	// Metrics writes the metrics of the manager in Prometheus text format.
	Metrics(w io.Writer)
	// Close wakes all waiting threads with ErrManagerClosed and stops the sweeper.
	Close() error
}

// --------------------------------------------------------------------------
// Collaborators
// --------------------------------------------------------------------------

// IServerAuthority is the server side of the protocol as seen from the participant.
// Both calls only send; the answers arrive later through OnAwarded and OnRecallCommitted.
type IServerAuthority interface {
	// RequestLock asks the server for a greedy grant of the lock.
	RequestLock(ctx context.Context, lock LockID, participant ParticipantID, level ServerLockLevel) error
	// CommitRecall hands a recalled grant back. Retained lists the local holds that
	// survive the surrender (read holds of a write recalled for read).
	CommitRecall(ctx context.Context, lock LockID, participant ParticipantID, retained []ExchangeContext) error
}

// IFlusher pushes local changes made under a lock to the server.
type IFlusher interface {
	// Flush returns once all changes at or above the level are acknowledged.
	Flush(ctx context.Context, lock LockID, level ServerLockLevel) error
}

// Config holds the settings of a client lock manager
type Config struct {
	// ParticipantID identifies this node towards the server
	ParticipantID ParticipantID
	// SweepInterval is the period of the background sweeper (0 disables Start)
	SweepInterval time.Duration
}
