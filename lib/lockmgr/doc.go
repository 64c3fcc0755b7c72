// Package lockmgr implements the participant side of a distributed lock manager
// with greedy lock caching. A participant that was granted a lock by the server
// keeps the grant ("greediness") after its threads released it, so later local
// acquisitions are served without a network round trip. The server takes the
// grant back with a recall when another participant needs a conflicting level.
//
// Core Functionality:
//   - Greediness: the ten-state caching state machine of one lock on one participant
//   - ClientLock: the record owning the state, the pending count and the local holds
//   - ExchangeContext: the snapshot of a holding reported to the server on resync
//   - IClientLockManager: drives the records from local calls and server messages
//
// State Machine:
//
//	FREE --awarded--> GREEDY_READ / GREEDY_WRITE
//	GREEDY_READ --requested(write)--> RECALLED_READ (self recall, no direct upgrade)
//	GREEDY_* --recalled--> RECALLED_READ / RECALLED_WRITE / RECALLED_WRITE_FOR_READ
//	RECALLED_* --recallInProgress--> *_RECALL_IN_PROGRESS
//	*_RECALL_IN_PROGRESS --recallCommitted--> FREE, or GREEDY_READ if only the write half was recalled
//	FREE --markAsGarbage--> GARBAGE
//
//	A GREEDY_WRITE lock ignores a recall while the server granted a lease > 0 and
//	local requests are pending; the server re-drives the recall later.
//
//	Transitions that are not defined for a state fail with ErrIllegalTransition.
//	Awarding, requesting or describing a GARBAGE lock fails with ErrGarbageLock.
//
// Thread Safety:
//
//	Greediness values are immutable and safe to use from any goroutine. Every
//	ClientLock serializes its own transitions with a private mutex, so the
//	lease decision of a recall sees a pending count that cannot change under it.
//	The manager keeps its records in a sharded concurrent map; unrelated locks
//	never contend on a shared mutex. No network I/O happens while a record is locked.
//
// Usage Example:
//
//	mgr := lockmgr.NewClientLockManager(lockmgr.Config{ParticipantID: 7}, authority, nil)
//
//	// blocks until the server awarded the lock (delivered via mgr.OnAwarded)
//	if err := mgr.Lock(ctx, "orders", 1, lockmgr.LevelWrite); err != nil {
//	    // handle error
//	}
//	_ = mgr.Unlock(ctx, "orders", 1, lockmgr.LevelWrite)
//
//	// the participant stays greedy, this is served locally
//	ok, _ := mgr.TryLock(ctx, "orders", 2, lockmgr.LevelRead)
package lockmgr
