package lockmgr

import (
	"sort"
	"sync"
)

// Transition computes the next state of a lock from its current state.
// It is evaluated inside the critical section of the owning ClientLock, so the pending
// counter it receives is consistent with the state it is applied to.
type Transition func(current Greediness, pending PendingCounter) (Greediness, error)

// pendingSnapshot is a PendingCounter over a value read under the record mutex
type pendingSnapshot int

func (p pendingSnapshot) PendingCount() int {
	return int(p)
}

// threadHold counts the reentrant holds of a single thread
type threadHold struct {
	read      int
	write     int
	syncWrite int
}

func (h *threadHold) add(level LockLevel) {
	switch level {
	case LevelRead:
		h.read++
	case LevelWrite:
		h.write++
	case LevelSynchronousWrite:
		h.syncWrite++
	}
}

func (h *threadHold) remove(level LockLevel) bool {
	switch level {
	case LevelRead:
		if h.read > 0 {
			h.read--
			return true
		}
	case LevelWrite:
		if h.write > 0 {
			h.write--
			return true
		}
	case LevelSynchronousWrite:
		if h.syncWrite > 0 {
			h.syncWrite--
			return true
		}
	}
	return false
}

func (h *threadHold) writes() int {
	return h.write + h.syncWrite
}

func (h *threadHold) empty() bool {
	return h.read == 0 && h.writes() == 0
}

// --------------------------------------------------------------------------
// Client Lock Record
// --------------------------------------------------------------------------

// ClientLock is the record of one lock on one participant. It owns the Greediness of the
// lock, the number of local requests waiting for it and the holds of local threads.
//
// All state changes go through Apply (or one of the wrappers around it) and are
// serialized by the record's own mutex. Records of different locks never share a mutex.
type ClientLock struct {
	id          LockID
	participant ParticipantID

	mu          sync.Mutex
	greediness  Greediness
	pending     int
	waiters     map[ThreadID]LockLevel
	holds       map[ThreadID]*threadHold
	outstanding map[ServerLockLevel]bool
	changed     chan struct{} // closed and replaced on every change
}

// NewClientLock creates a Free record for the lock on the participant
func NewClientLock(id LockID, participant ParticipantID) *ClientLock {
	return &ClientLock{
		id:          id,
		participant: participant,
		greediness:  Free,
		waiters:     make(map[ThreadID]LockLevel),
		holds:       make(map[ThreadID]*threadHold),
		outstanding: make(map[ServerLockLevel]bool),
		changed:     make(chan struct{}),
	}
}

// ID returns the lock identity of the record
func (r *ClientLock) ID() LockID {
	return r.id
}

// CurrentState returns the current greediness of the lock
func (r *ClientLock) CurrentState() Greediness {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.greediness
}

// PendingCount returns the number of local requests waiting for the lock
func (r *ClientLock) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// Apply evaluates the transition on the current state and stores the result.
// On error the state is left unchanged.
func (r *ClientLock) Apply(t Transition) (Greediness, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(t)
}

func (r *ClientLock) applyLocked(t Transition) (Greediness, error) {
	next, err := t(r.greediness, pendingSnapshot(r.pending))
	if err != nil {
		return r.greediness, err
	}
	r.setStateLocked(next)
	return next, nil
}

// Requested applies Greediness.Requested
func (r *ClientLock) Requested(level ServerLockLevel) (Greediness, error) {
	return r.Apply(func(g Greediness, _ PendingCounter) (Greediness, error) {
		return g.Requested(level)
	})
}

// Awarded applies Greediness.Awarded
func (r *ClientLock) Awarded(level ServerLockLevel) (Greediness, error) {
	return r.Apply(func(g Greediness, _ PendingCounter) (Greediness, error) {
		return g.Awarded(level)
	})
}

// Recalled applies Greediness.Recalled with the pending count of this record
func (r *ClientLock) Recalled(lease int, level ServerLockLevel) (Greediness, error) {
	return r.Apply(func(g Greediness, pending PendingCounter) (Greediness, error) {
		return g.Recalled(pending, lease, level)
	})
}

// RecallInProgress applies Greediness.RecallInProgress
func (r *ClientLock) RecallInProgress() (Greediness, error) {
	return r.Apply(func(g Greediness, _ PendingCounter) (Greediness, error) {
		return g.RecallInProgress()
	})
}

// RecallCommitted applies Greediness.RecallCommitted
func (r *ClientLock) RecallCommitted() (Greediness, error) {
	return r.Apply(func(g Greediness, _ PendingCounter) (Greediness, error) {
		return g.RecallCommitted()
	})
}

// MarkAsGarbage applies Greediness.MarkAsGarbage
func (r *ClientLock) MarkAsGarbage() (Greediness, error) {
	return r.Apply(func(g Greediness, _ PendingCounter) (Greediness, error) {
		return g.MarkAsGarbage()
	})
}

// setStateLocked stores the state and wakes everyone waiting on the record
func (r *ClientLock) setStateLocked(next Greediness) {
	r.greediness = next
	r.notifyLocked()
}

func (r *ClientLock) notifyLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}

// --------------------------------------------------------------------------
// Local acquisition and release (used by the client lock manager)
// --------------------------------------------------------------------------

// recallStart describes a surrender the caller has to complete outside the record mutex
type recallStart struct {
	flushLevel ServerLockLevel
	retained   []ExchangeContext
}

// acquireResult tells the manager what to do after an acquire attempt
type acquireResult struct {
	granted bool
	request ServerLockLevel // != ServerUnknown if a request must be sent
	recall  *recallStart    // != nil if a self recall can start right away
	changed <-chan struct{} // wait on this before the next attempt
	state   Greediness      // state after the attempt
}

// acquire tries to grant the level to the thread from the cache. If that is not
// possible the thread is registered as waiting (once, tracked by waiting) and the
// request is driven through the state machine.
func (r *ClientLock) acquire(thread ThreadID, level LockLevel, waiting bool) (acquireResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := acquireResult{}

	ok, err := r.greediness.CanAward(level)
	if err != nil {
		return res, err
	}

	if r.upgradeLocked(thread, level) {
		if waiting {
			r.stopWaitingLocked(thread)
		}
		return res, ErrLockUpgrade
	}

	if ok && r.compatibleLocked(thread, level) {
		if waiting {
			r.stopWaitingLocked(thread)
		}
		r.grantLocked(thread, level)
		res.granted = true
		res.state = r.greediness
		return res, nil
	}

	if !waiting {
		r.pending++
		r.waiters[thread] = level
	}

	if !ok {
		serverLevel := level.ServerLevel()
		next, err := r.greediness.Requested(serverLevel)
		if err != nil {
			r.stopWaitingLocked(thread)
			return res, err
		}
		if next != r.greediness {
			r.setStateLocked(next)
		}
		if next.IsFree() && !r.outstanding[serverLevel] {
			r.outstanding[serverLevel] = true
			res.request = serverLevel
		}
		res.recall = r.beginRecallLocked()
	}

	res.changed = r.changed
	res.state = r.greediness
	return res, nil
}

// tryAcquire grants the level only if the cache and the local holds allow it right away
func (r *ClientLock) tryAcquire(thread ThreadID, level LockLevel) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ok, err := r.greediness.CanAward(level)
	if err != nil {
		return false, err
	}
	if r.upgradeLocked(thread, level) {
		return false, ErrLockUpgrade
	}
	if !ok || !r.compatibleLocked(thread, level) {
		return false, nil
	}
	r.grantLocked(thread, level)
	return true, nil
}

func (r *ClientLock) grantLocked(thread ThreadID, level LockLevel) {
	h, found := r.holds[thread]
	if !found {
		h = &threadHold{}
		r.holds[thread] = h
	}
	h.add(level)
}

// abandonRequest undoes the bookkeeping of a request that could not be sent
func (r *ClientLock) abandonRequest(thread ThreadID, level ServerLockLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.outstanding, level)
	r.stopWaitingLocked(thread)
	r.notifyLocked()
}

// cancelWait removes a waiting thread that gave up
func (r *ClientLock) cancelWait(thread ThreadID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopWaitingLocked(thread)
	// a deferred recall may no longer have a reason to wait
	r.notifyLocked()
}

func (r *ClientLock) stopWaitingLocked(thread ThreadID) {
	if _, found := r.waiters[thread]; !found {
		return
	}
	delete(r.waiters, thread)
	r.pending--
}

// upgradeLocked reports whether a thread holding only read access asks for write access
func (r *ClientLock) upgradeLocked(thread ThreadID, level LockLevel) bool {
	if !level.IsWrite() {
		return false
	}
	h, found := r.holds[thread]
	return found && h.read > 0 && h.writes() == 0
}

// compatibleLocked checks the holds of other local threads
func (r *ClientLock) compatibleLocked(thread ThreadID, level LockLevel) bool {
	for other, h := range r.holds {
		if other == thread {
			continue
		}
		if h.writes() > 0 {
			return false
		}
		if level.IsWrite() && h.read > 0 {
			return false
		}
	}
	return true
}

// releaseResult tells the manager what to do after a release
type releaseResult struct {
	flush      bool
	flushLevel ServerLockLevel
	recall     *recallStart
	state      Greediness
}

// release removes one hold of the thread at the given level
func (r *ClientLock) release(thread ThreadID, level LockLevel) (releaseResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := releaseResult{}

	h, found := r.holds[thread]
	if !found || !h.remove(level) {
		return res, ErrLockNotHeld
	}
	if h.empty() {
		delete(r.holds, thread)
	}

	res.flush = r.greediness.FlushOnUnlock() || level.IsSynchronousWrite()
	res.flushLevel = r.greediness.FlushLevel()
	res.recall = r.beginRecallLocked()
	res.state = r.greediness

	r.notifyLocked()
	return res, nil
}

// --------------------------------------------------------------------------
// Server messages (used by the client lock manager)
// --------------------------------------------------------------------------

// awarded applies a greedy award and clears the requests it satisfies
func (r *ClientLock) awarded(level ServerLockLevel) (Greediness, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.applyLocked(func(g Greediness, _ PendingCounter) (Greediness, error) {
		return g.Awarded(level)
	})
	if err != nil {
		return next, err
	}

	delete(r.outstanding, level)
	if level == ServerWrite {
		delete(r.outstanding, ServerRead)
	}
	return next, nil
}

// recalled applies a recall and starts the surrender if no local hold is in the way
func (r *ClientLock) recalled(lease int, level ServerLockLevel) (Greediness, *recallStart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.applyLocked(func(g Greediness, pending PendingCounter) (Greediness, error) {
		return g.Recalled(pending, lease, level)
	})
	if err != nil {
		return next, nil, err
	}
	return next, r.beginRecallLocked(), nil
}

// recallCommitted finishes a surrender
func (r *ClientLock) recallCommitted() (Greediness, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.applyLocked(func(g Greediness, _ PendingCounter) (Greediness, error) {
		return g.RecallCommitted()
	})
}

// beginRecallLocked moves a recalled lock to recall in progress once no local hold
// conflicts with the surrender. The returned recallStart must be completed by the caller.
func (r *ClientLock) beginRecallLocked() *recallStart {
	if !r.greediness.IsRecalled() || r.conflictingHoldsLocked() {
		return nil
	}

	next, err := r.greediness.RecallInProgress()
	if err != nil {
		return nil
	}
	r.setStateLocked(next)

	return &recallStart{
		flushLevel: next.FlushLevel(),
		retained:   r.holdContextsLocked(),
	}
}

// conflictingHoldsLocked reports whether a local hold blocks the surrender of the current recall
func (r *ClientLock) conflictingHoldsLocked() bool {
	for _, h := range r.holds {
		if r.greediness == RecalledWriteForRead {
			if h.writes() > 0 {
				return true
			}
			continue
		}
		if !h.empty() {
			return true
		}
	}
	return false
}

// --------------------------------------------------------------------------
// Sweeping and resync
// --------------------------------------------------------------------------

// idleLocked reports whether nothing references the lock anymore
func (r *ClientLock) idleLocked() bool {
	return r.greediness == Free && r.pending == 0 && len(r.holds) == 0 && len(r.outstanding) == 0
}

// collect marks an idle record as garbage. It returns true if the record is garbage afterwards.
func (r *ClientLock) collect() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.greediness == Garbage {
		return true
	}
	if !r.idleLocked() {
		return false
	}

	if _, err := r.applyLocked(func(g Greediness, _ PendingCounter) (Greediness, error) {
		return g.MarkAsGarbage()
	}); err != nil {
		return false
	}
	return r.greediness == Garbage
}

// contexts snapshots the record for a resync
func (r *ClientLock) contexts() ([]ExchangeContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.greediness == Garbage {
		return nil, nil
	}

	greedy, err := r.greediness.ToContext(r.id, r.participant)
	if err != nil {
		return nil, err
	}

	var result []ExchangeContext
	if greedy != nil {
		result = append(result, *greedy)
	}

	// waiters of a greedy lock only wait for other local threads
	if !r.greediness.IsGreedy() {
		threads := make([]ThreadID, 0, len(r.waiters))
		for t := range r.waiters {
			threads = append(threads, t)
		}
		sort.Slice(threads, func(i, j int) bool { return threads[i] < threads[j] })

		for _, t := range threads {
			state := WaiterRead
			if r.waiters[t].IsWrite() {
				state = WaiterWrite
			}
			result = append(result, threadContext(r.id, r.participant, t, state))
		}
	}
	return result, nil
}

// holdContextsLocked lists the holds of local threads in thread order
func (r *ClientLock) holdContextsLocked() []ExchangeContext {
	threads := make([]ThreadID, 0, len(r.holds))
	for t := range r.holds {
		threads = append(threads, t)
	}
	sort.Slice(threads, func(i, j int) bool { return threads[i] < threads[j] })

	result := make([]ExchangeContext, 0, len(threads))
	for _, t := range threads {
		state := HolderRead
		if r.holds[t].writes() > 0 {
			state = HolderWrite
		}
		result = append(result, threadContext(r.id, r.participant, t, state))
	}
	return result
}
