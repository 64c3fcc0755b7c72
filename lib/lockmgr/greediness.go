package lockmgr

// Greediness is the caching state of one lock on one participant.
//
// The value is immutable; every transition returns the next state and leaves the
// receiver untouched, so a Greediness can be evaluated from any goroutine. Storing the
// result is the job of the ClientLock that owns it.
type Greediness uint8

const (
	Garbage Greediness = iota
	Free
	GreedyRead
	GreedyWrite
	RecalledRead
	RecalledWrite
	ReadRecallInProgress
	WriteRecallInProgress
	RecalledWriteForRead
	WriteRecallForReadInProgress
)

// AllGreediness lists every state in declaration order
var AllGreediness = []Greediness{
	Garbage,
	Free,
	GreedyRead,
	GreedyWrite,
	RecalledRead,
	RecalledWrite,
	ReadRecallInProgress,
	WriteRecallInProgress,
	RecalledWriteForRead,
	WriteRecallForReadInProgress,
}

// PendingCounter supplies the number of local requests that wait for a lock.
// The recall decision of GreedyWrite depends on it.
type PendingCounter interface {
	PendingCount() int
}

// String returns the string representation of a Greediness.
func (g Greediness) String() string {
	switch g {
	case Garbage:
		return "GARBAGE"
	case Free:
		return "FREE"
	case GreedyRead:
		return "GREEDY_READ"
	case GreedyWrite:
		return "GREEDY_WRITE"
	case RecalledRead:
		return "RECALLED_READ"
	case RecalledWrite:
		return "RECALLED_WRITE"
	case ReadRecallInProgress:
		return "READ_RECALL_IN_PROGRESS"
	case WriteRecallInProgress:
		return "WRITE_RECALL_IN_PROGRESS"
	case RecalledWriteForRead:
		return "RECALLED_WRITE_FOR_READ"
	case WriteRecallForReadInProgress:
		return "WRITE_RECALL_FOR_READ_IN_PROGRESS"
	default:
		return "UNKNOWN"
	}
}

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

// CanAward reports whether a local request at the given level can be satisfied
// from the cache, without contacting the server.
func (g Greediness) CanAward(level LockLevel) (bool, error) {
	switch g {
	case Garbage:
		return false, garbage("award from cache")
	case GreedyRead, RecalledWriteForRead, WriteRecallForReadInProgress:
		// the write half of the last two is being surrendered, cached reads stay valid
		return level.IsRead(), nil
	case GreedyWrite:
		return level.IsRead() || level.IsWrite(), nil
	default:
		return false, nil
	}
}

// IsFree reports whether the participant holds no greedy grant.
// A garbage lock is free as well.
func (g Greediness) IsFree() bool {
	return g == Free || g == Garbage
}

// IsRecalled reports whether the server has asked for the grant back and the
// surrender has not started yet.
func (g Greediness) IsRecalled() bool {
	switch g {
	case RecalledRead, RecalledWrite, RecalledWriteForRead:
		return true
	default:
		return false
	}
}

// IsGreedy reports whether the participant holds a greedy grant that is not recalled.
func (g Greediness) IsGreedy() bool {
	return g == GreedyRead || g == GreedyWrite
}

// IsRecallInProgress reports whether the surrender has started but not yet been acknowledged.
func (g Greediness) IsRecallInProgress() bool {
	switch g {
	case ReadRecallInProgress, WriteRecallInProgress, WriteRecallForReadInProgress:
		return true
	default:
		return false
	}
}

// IsGarbage reports whether the record has been collected.
func (g Greediness) IsGarbage() bool {
	return g == Garbage
}

// FlushOnUnlock reports whether an unlock must flush local changes before it returns.
func (g Greediness) FlushOnUnlock() bool {
	return !g.IsGreedy()
}

// FlushLevel is the level of local changes that must reach the server before a
// release or recall completes.
func (g Greediness) FlushLevel() ServerLockLevel {
	switch g {
	case RecalledWriteForRead, WriteRecallForReadInProgress:
		return ServerRead
	default:
		return ServerWrite
	}
}

// --------------------------------------------------------------------------
// Transitions
// --------------------------------------------------------------------------

// Requested is applied when a local request cannot be served from the cache.
func (g Greediness) Requested(level ServerLockLevel) (Greediness, error) {
	switch g {
	case Garbage:
		return g, garbage("request")
	case Free, GreedyWrite:
		return g, nil
	case GreedyRead:
		switch level {
		case ServerRead:
			return g, nil
		case ServerWrite:
			// there is no upgrade from read to write greediness, surrender the read first
			return RecalledRead, nil
		}
		return g, illegal("request "+level.String(), g)
	case RecalledRead, RecalledWrite, RecalledWriteForRead,
		ReadRecallInProgress, WriteRecallInProgress, WriteRecallForReadInProgress:
		// the lock comes back once the recall is committed
		return g, nil
	default:
		return g, illegal("request", g)
	}
}

// Awarded is applied when the server grants a greedy level.
func (g Greediness) Awarded(level ServerLockLevel) (Greediness, error) {
	switch g {
	case Garbage:
		return g, garbage("award")
	case Free, GreedyRead:
		switch level {
		case ServerRead:
			return GreedyRead, nil
		case ServerWrite:
			return GreedyWrite, nil
		}
		return g, illegal("award "+level.String(), g)
	case GreedyWrite:
		if level == ServerRead || level == ServerWrite {
			return g, nil
		}
		return g, illegal("award "+level.String(), g)
	default:
		return g, illegal("award", g)
	}
}

// Recalled is applied when the server reclaims the greedy grant at the given level.
//
// A GreedyWrite lock defers the recall while lease > 0 and local requests are pending;
// the server re-drives the recall later.
func (g Greediness) Recalled(pending PendingCounter, lease int, level ServerLockLevel) (Greediness, error) {
	if level != ServerRead && level != ServerWrite {
		return g, illegal("recall "+level.String(), g)
	}

	switch g {
	case Garbage, Free:
		return g, nil
	case GreedyRead:
		return RecalledRead, nil
	case GreedyWrite:
		if lease > 0 && pending != nil && pending.PendingCount() > 0 {
			return g, nil
		}
		if level == ServerRead {
			return RecalledWriteForRead, nil
		}
		return RecalledWrite, nil
	case RecalledRead, RecalledWrite, ReadRecallInProgress, WriteRecallInProgress:
		// already surrendering everything, a stricter level changes nothing
		return g, nil
	case RecalledWriteForRead:
		if level == ServerWrite {
			return RecalledWrite, nil
		}
		return g, nil
	case WriteRecallForReadInProgress:
		if level == ServerWrite {
			return WriteRecallInProgress, nil
		}
		return g, nil
	default:
		return g, illegal("recall", g)
	}
}

// RecallInProgress is applied when the participant starts surrendering a recalled grant.
func (g Greediness) RecallInProgress() (Greediness, error) {
	switch g {
	case Garbage:
		return g, garbage("recall in progress")
	case RecalledRead:
		return ReadRecallInProgress, nil
	case RecalledWrite:
		return WriteRecallInProgress, nil
	case RecalledWriteForRead:
		return WriteRecallForReadInProgress, nil
	default:
		return g, illegal("recall in progress", g)
	}
}

// RecallCommitted is applied when the server acknowledged the surrender.
func (g Greediness) RecallCommitted() (Greediness, error) {
	switch g {
	case Garbage:
		return g, nil
	case RecalledRead, RecalledWrite, ReadRecallInProgress, WriteRecallInProgress:
		return Free, nil
	case RecalledWriteForRead, WriteRecallForReadInProgress:
		return GreedyRead, nil
	default:
		return g, illegal("recall committed", g)
	}
}

// MarkAsGarbage moves an idle Free lock to Garbage. Every other state is left as is,
// callers only mark locks they already know to be idle.
func (g Greediness) MarkAsGarbage() (Greediness, error) {
	switch g {
	case Free:
		return Garbage, nil
	case Garbage, GreedyRead, GreedyWrite, RecalledRead, RecalledWrite,
		ReadRecallInProgress, WriteRecallInProgress, RecalledWriteForRead, WriteRecallForReadInProgress:
		return g, nil
	default:
		return g, illegal("mark as garbage", g)
	}
}

// ToContext describes the greedy holding for a resync with the server.
// It returns nil for Free and ErrGarbageLock for Garbage.
func (g Greediness) ToContext(lock LockID, participant ParticipantID) (*ExchangeContext, error) {
	return NewExchangeContext(g, lock, participant)
}
