package lockmgr

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("lockmgr")

type clientLockMgrImpl struct {
	config    Config
	authority IServerAuthority
	flusher   IFlusher
	records   *xsync.MapOf[LockID, *ClientLock]
	metrics   *managerMetrics
	closed    chan struct{}
	closeOnce sync.Once
}

// NewClientLockManager creates the lock manager of one participant.
// The flusher may be nil if the participant has no local changes to push.
func NewClientLockManager(config Config, authority IServerAuthority, flusher IFlusher) IClientLockManager {
	if flusher == nil {
		flusher = noopFlusher{}
	}

	m := &clientLockMgrImpl{
		config:    config,
		authority: authority,
		flusher:   flusher,
		records:   xsync.NewMapOf[LockID, *ClientLock](),
		closed:    make(chan struct{}),
	}
	m.metrics = newManagerMetrics(func() float64 { return float64(m.records.Size()) })
	return m
}

// noopFlusher is used when the participant has nothing to flush
type noopFlusher struct{}

func (noopFlusher) Flush(context.Context, LockID, ServerLockLevel) error {
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lockmgr.IClientLockManager)
// --------------------------------------------------------------------------

func (m *clientLockMgrImpl) Lock(ctx context.Context, lock LockID, thread ThreadID, level LockLevel) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if level.ServerLevel() == ServerUnknown {
		return errors.NotValidf("lock level %s", level)
	}

	var rec *ClientLock
	waiting := false
	contacted := false

	for {
		if rec == nil {
			rec = m.record(lock)
		}

		res, err := rec.acquire(thread, level, waiting)
		if errors.Is(err, ErrGarbageLock) {
			// swept between lookup and acquire, a garbage record never has waiters
			m.dropRecord(lock, rec)
			rec = nil
			continue
		}
		if err != nil {
			return errors.Annotatef(err, "lock %s", lock)
		}

		if res.granted {
			if !contacted {
				m.metrics.localAwards.Inc()
			}
			Logger.Debugf("granted %s on %s to %s (%s)", level, lock, thread, res.state)
			return nil
		}
		waiting = true

		if res.request != ServerUnknown {
			contacted = true
			m.metrics.serverRequests.Inc()
			Logger.Debugf("requesting %s on %s from server (%s)", res.request, lock, res.state)
			if err := m.authority.RequestLock(ctx, lock, m.config.ParticipantID, res.request); err != nil {
				rec.abandonRequest(thread, res.request)
				return errors.Annotatef(err, "request %s on %s", res.request, lock)
			}
		}

		if res.recall != nil {
			contacted = true
			if err := m.completeRecall(ctx, lock, res.recall); err != nil {
				Logger.Errorf("self recall of %s failed: %v", lock, err)
			}
		}

		select {
		case <-res.changed:
		case <-ctx.Done():
			rec.cancelWait(thread)
			return ctx.Err()
		case <-m.closed:
			rec.cancelWait(thread)
			return ErrManagerClosed
		}
	}
}

func (m *clientLockMgrImpl) TryLock(_ context.Context, lock LockID, thread ThreadID, level LockLevel) (bool, error) {
	if err := m.checkOpen(); err != nil {
		return false, err
	}
	if level.ServerLevel() == ServerUnknown {
		return false, errors.NotValidf("lock level %s", level)
	}

	for {
		rec := m.record(lock)
		ok, err := rec.tryAcquire(thread, level)
		if errors.Is(err, ErrGarbageLock) {
			m.dropRecord(lock, rec)
			continue
		}
		if err != nil {
			return false, errors.Annotatef(err, "try lock %s", lock)
		}
		if ok {
			m.metrics.localAwards.Inc()
		}
		return ok, nil
	}
}

func (m *clientLockMgrImpl) Unlock(ctx context.Context, lock LockID, thread ThreadID, level LockLevel) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	rec, ok := m.records.Load(lock)
	if !ok {
		return errors.Annotatef(ErrLockNotHeld, "unlock %s", lock)
	}

	res, err := rec.release(thread, level)
	if err != nil {
		return errors.Annotatef(err, "unlock %s by %s", lock, thread)
	}
	Logger.Debugf("released %s on %s by %s (%s)", level, lock, thread, res.state)

	if res.flush {
		m.metrics.flushes.Inc()
		if err := m.flusher.Flush(ctx, lock, res.flushLevel); err != nil {
			return errors.Annotatef(err, "flush %s at %s", lock, res.flushLevel)
		}
	}

	if res.recall != nil {
		return m.completeRecall(ctx, lock, res.recall)
	}
	return nil
}

func (m *clientLockMgrImpl) OnAwarded(_ context.Context, lock LockID, level ServerLockLevel) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	next, err := m.record(lock).awarded(level)
	if err != nil {
		return errors.Annotatef(err, "award %s on %s", level, lock)
	}
	Logger.Debugf("awarded %s on %s (%s)", level, lock, next)
	return nil
}

func (m *clientLockMgrImpl) OnRecalled(ctx context.Context, lock LockID, level ServerLockLevel, lease int) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	rec, ok := m.records.Load(lock)
	if !ok {
		// nothing cached, nothing to give back
		Logger.Debugf("recall %s on unknown lock %s ignored", level, lock)
		return nil
	}

	m.metrics.recalls.Inc()
	prev := rec.CurrentState()
	next, start, err := rec.recalled(lease, level)
	if err != nil {
		return errors.Annotatef(err, "recall %s on %s", level, lock)
	}

	if prev == GreedyWrite && next == GreedyWrite {
		m.metrics.deferredRecalls.Inc()
		Logger.Debugf("recall %s on %s deferred (lease %d)", level, lock, lease)
		return nil
	}
	Logger.Debugf("recalled %s on %s (%s -> %s)", level, lock, prev, next)

	if start != nil {
		return m.completeRecall(ctx, lock, start)
	}
	return nil
}

func (m *clientLockMgrImpl) OnRecallCommitted(_ context.Context, lock LockID) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	rec, ok := m.records.Load(lock)
	if !ok {
		return errors.Annotatef(ErrIllegalTransition, "recall committed for unknown lock %s", lock)
	}

	next, err := rec.recallCommitted()
	if err != nil {
		return errors.Annotatef(err, "recall committed on %s", lock)
	}
	Logger.Debugf("recall committed on %s (%s)", lock, next)
	return nil
}

func (m *clientLockMgrImpl) Sweep() int {
	removed := 0
	m.records.Range(func(id LockID, rec *ClientLock) bool {
		if rec.collect() {
			m.dropRecord(id, rec)
			removed++
		}
		return true
	})

	if removed > 0 {
		m.metrics.collected.Add(removed)
		Logger.Debugf("collected %d idle locks", removed)
	}
	return removed
}

func (m *clientLockMgrImpl) Start(ctx context.Context) {
	if m.config.SweepInterval <= 0 {
		Logger.Infof("sweeper disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(m.config.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.Sweep()
			case <-ctx.Done():
				return
			case <-m.closed:
				return
			}
		}
	}()
}

func (m *clientLockMgrImpl) Contexts() ([]ExchangeContext, error) {
	var result []ExchangeContext
	var err error

	m.records.Range(func(id LockID, rec *ClientLock) bool {
		contexts, cErr := rec.contexts()
		if cErr != nil {
			err = errors.Annotatef(cErr, "contexts of %s", id)
			return false
		}
		result = append(result, contexts...)
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].LockID < result[j].LockID })
	return result, nil
}

func (m *clientLockMgrImpl) State(lock LockID) Greediness {
	if rec, ok := m.records.Load(lock); ok {
		return rec.CurrentState()
	}
	return Free
}

func (m *clientLockMgrImpl) PendingCount(lock LockID) int {
	if rec, ok := m.records.Load(lock); ok {
		return rec.PendingCount()
	}
	return 0
}

func (m *clientLockMgrImpl) Metrics(w io.Writer) {
	m.metrics.set.WritePrometheus(w)
}

func (m *clientLockMgrImpl) Close() error {
	m.closeOnce.Do(func() {
		close(m.closed)
		Logger.Infof("client lock manager of participant %d closed", m.config.ParticipantID)
	})
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (m *clientLockMgrImpl) checkOpen() error {
	select {
	case <-m.closed:
		return ErrManagerClosed
	default:
		return nil
	}
}

// record returns the record of the lock, creating a Free one on first use
func (m *clientLockMgrImpl) record(lock LockID) *ClientLock {
	rec, _ := m.records.LoadOrCompute(lock, func() *ClientLock {
		return NewClientLock(lock, m.config.ParticipantID)
	})
	return rec
}

// dropRecord removes the record from the table if it is still the one stored for the lock
func (m *clientLockMgrImpl) dropRecord(lock LockID, rec *ClientLock) {
	m.records.Compute(lock, func(old *ClientLock, loaded bool) (*ClientLock, bool) {
		if !loaded || old == rec {
			return nil, true
		}
		return old, false
	})
}

// completeRecall flushes and hands a recalled grant back to the server
func (m *clientLockMgrImpl) completeRecall(ctx context.Context, lock LockID, start *recallStart) error {
	m.metrics.flushes.Inc()
	if err := m.flusher.Flush(ctx, lock, start.flushLevel); err != nil {
		return errors.Annotatef(err, "flush %s at %s before recall", lock, start.flushLevel)
	}

	if err := m.authority.CommitRecall(ctx, lock, m.config.ParticipantID, start.retained); err != nil {
		return errors.Annotatef(err, "commit recall of %s", lock)
	}
	m.metrics.recallCommits.Inc()
	Logger.Debugf("recall of %s committed to server (%d holds retained)", lock, len(start.retained))
	return nil
}
