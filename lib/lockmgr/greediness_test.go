package lockmgr

import (
	"errors"
	"testing"
)

// fixedPending is a PendingCounter with a constant value
type fixedPending int

func (p fixedPending) PendingCount() int {
	return int(p)
}

// TestCanAward tests the cache decision for every state and level
func TestCanAward(t *testing.T) {
	tests := []struct {
		state Greediness
		read  bool
		write bool
	}{
		{Free, false, false},
		{GreedyRead, true, false},
		{GreedyWrite, true, true},
		{RecalledRead, false, false},
		{RecalledWrite, false, false},
		{ReadRecallInProgress, false, false},
		{WriteRecallInProgress, false, false},
		{RecalledWriteForRead, true, false},
		{WriteRecallForReadInProgress, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			for _, level := range []LockLevel{LevelRead, LevelWrite, LevelSynchronousWrite} {
				want := tt.read
				if level.IsWrite() {
					want = tt.write
				}

				// evaluate twice, the query must not depend on anything but its inputs
				for i := 0; i < 2; i++ {
					got, err := tt.state.CanAward(level)
					if err != nil {
						t.Fatalf("CanAward(%s) returned error: %v", level, err)
					}
					if got != want {
						t.Errorf("CanAward(%s) = %v, want %v", level, got, want)
					}
				}
			}
		})
	}
}

// TestCanAwardGarbage tests that a garbage lock never awards
func TestCanAwardGarbage(t *testing.T) {
	for _, level := range []LockLevel{LevelRead, LevelWrite, LevelSynchronousWrite} {
		ok, err := Garbage.CanAward(level)
		if !errors.Is(err, ErrGarbageLock) {
			t.Errorf("CanAward(%s) error = %v, want ErrGarbageLock", level, err)
		}
		if ok {
			t.Errorf("CanAward(%s) = true on garbage", level)
		}
	}
}

// TestClassification tests the boolean queries and the flush settings
func TestClassification(t *testing.T) {
	tests := []struct {
		state            Greediness
		free             bool
		recalled         bool
		greedy           bool
		recallInProgress bool
		flushOnUnlock    bool
		flushLevel       ServerLockLevel
	}{
		{Garbage, true, false, false, false, true, ServerWrite},
		{Free, true, false, false, false, true, ServerWrite},
		{GreedyRead, false, false, true, false, false, ServerWrite},
		{GreedyWrite, false, false, true, false, false, ServerWrite},
		{RecalledRead, false, true, false, false, true, ServerWrite},
		{RecalledWrite, false, true, false, false, true, ServerWrite},
		{ReadRecallInProgress, false, false, false, true, true, ServerWrite},
		{WriteRecallInProgress, false, false, false, true, true, ServerWrite},
		{RecalledWriteForRead, false, true, false, false, true, ServerRead},
		{WriteRecallForReadInProgress, false, false, false, true, true, ServerRead},
	}

	if len(tests) != len(AllGreediness) {
		t.Fatalf("table covers %d states, want %d", len(tests), len(AllGreediness))
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.IsFree(); got != tt.free {
				t.Errorf("IsFree() = %v, want %v", got, tt.free)
			}
			if got := tt.state.IsRecalled(); got != tt.recalled {
				t.Errorf("IsRecalled() = %v, want %v", got, tt.recalled)
			}
			if got := tt.state.IsGreedy(); got != tt.greedy {
				t.Errorf("IsGreedy() = %v, want %v", got, tt.greedy)
			}
			if got := tt.state.IsRecallInProgress(); got != tt.recallInProgress {
				t.Errorf("IsRecallInProgress() = %v, want %v", got, tt.recallInProgress)
			}
			if got := tt.state.IsGarbage(); got != (tt.state == Garbage) {
				t.Errorf("IsGarbage() = %v", got)
			}
			if got := tt.state.FlushOnUnlock(); got != tt.flushOnUnlock {
				t.Errorf("FlushOnUnlock() = %v, want %v", got, tt.flushOnUnlock)
			}
			if got := tt.state.FlushLevel(); got != tt.flushLevel {
				t.Errorf("FlushLevel() = %v, want %v", got, tt.flushLevel)
			}
		})
	}
}

// TestRequested tests the request transition
func TestRequested(t *testing.T) {
	tests := []struct {
		state Greediness
		level ServerLockLevel
		want  Greediness
	}{
		{Free, ServerRead, Free},
		{Free, ServerWrite, Free},
		{GreedyRead, ServerRead, GreedyRead},
		{GreedyRead, ServerWrite, RecalledRead},
		{GreedyWrite, ServerRead, GreedyWrite},
		{GreedyWrite, ServerWrite, GreedyWrite},
		{RecalledRead, ServerWrite, RecalledRead},
		{RecalledWrite, ServerWrite, RecalledWrite},
		{ReadRecallInProgress, ServerWrite, ReadRecallInProgress},
		{WriteRecallInProgress, ServerRead, WriteRecallInProgress},
		{RecalledWriteForRead, ServerWrite, RecalledWriteForRead},
		{WriteRecallForReadInProgress, ServerWrite, WriteRecallForReadInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.state.String()+"/"+tt.level.String(), func(t *testing.T) {
			got, err := tt.state.Requested(tt.level)
			if err != nil {
				t.Fatalf("Requested() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Requested() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestAwarded tests the award transition
func TestAwarded(t *testing.T) {
	tests := []struct {
		state   Greediness
		level   ServerLockLevel
		want    Greediness
		wantErr error
	}{
		{Free, ServerRead, GreedyRead, nil},
		{Free, ServerWrite, GreedyWrite, nil},
		{GreedyRead, ServerRead, GreedyRead, nil},
		{GreedyRead, ServerWrite, GreedyWrite, nil},
		{GreedyWrite, ServerRead, GreedyWrite, nil},
		{GreedyWrite, ServerWrite, GreedyWrite, nil},
		{Garbage, ServerWrite, Garbage, ErrGarbageLock},
		{RecalledRead, ServerRead, RecalledRead, ErrIllegalTransition},
		{WriteRecallInProgress, ServerWrite, WriteRecallInProgress, ErrIllegalTransition},
		{Free, ServerUnknown, Free, ErrIllegalTransition},
	}

	for _, tt := range tests {
		t.Run(tt.state.String()+"/"+tt.level.String(), func(t *testing.T) {
			got, err := tt.state.Awarded(tt.level)
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Fatalf("Awarded() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Awarded() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestRecalled tests the recall transition including the lease deferral
func TestRecalled(t *testing.T) {
	tests := []struct {
		name    string
		state   Greediness
		pending int
		lease   int
		level   ServerLockLevel
		want    Greediness
	}{
		{"lease and pending defer", GreedyWrite, 3, 2, ServerWrite, GreedyWrite},
		{"lease and pending defer read", GreedyWrite, 1, 1, ServerRead, GreedyWrite},
		{"no lease write", GreedyWrite, 3, 0, ServerWrite, RecalledWrite},
		{"no lease read", GreedyWrite, 3, 0, ServerRead, RecalledWriteForRead},
		{"no pending", GreedyWrite, 0, 5, ServerWrite, RecalledWrite},
		{"greedy read ignores lease", GreedyRead, 3, 2, ServerWrite, RecalledRead},
		{"free", Free, 0, 0, ServerWrite, Free},
		{"garbage", Garbage, 0, 0, ServerWrite, Garbage},
		{"recalled read", RecalledRead, 0, 0, ServerWrite, RecalledRead},
		{"recalled write", RecalledWrite, 0, 0, ServerRead, RecalledWrite},
		{"read recall in progress stricter", ReadRecallInProgress, 0, 0, ServerWrite, ReadRecallInProgress},
		{"write recall in progress", WriteRecallInProgress, 0, 0, ServerWrite, WriteRecallInProgress},
		{"write for read again", RecalledWriteForRead, 0, 0, ServerRead, RecalledWriteForRead},
		{"write for read narrows", RecalledWriteForRead, 0, 0, ServerWrite, RecalledWrite},
		{"in progress write for read again", WriteRecallForReadInProgress, 0, 0, ServerRead, WriteRecallForReadInProgress},
		{"in progress write for read narrows", WriteRecallForReadInProgress, 0, 0, ServerWrite, WriteRecallInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.state.Recalled(fixedPending(tt.pending), tt.lease, tt.level)
			if err != nil {
				t.Fatalf("Recalled() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Recalled() = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := GreedyWrite.Recalled(fixedPending(0), 0, ServerUnknown); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Recalled(unknown level) error = %v, want ErrIllegalTransition", err)
	}
}

// TestRecallInProgressAndCommitted tests the two steps of a surrender
func TestRecallInProgressAndCommitted(t *testing.T) {
	inProgress := map[Greediness]Greediness{
		RecalledRead:         ReadRecallInProgress,
		RecalledWrite:        WriteRecallInProgress,
		RecalledWriteForRead: WriteRecallForReadInProgress,
	}
	committed := map[Greediness]Greediness{
		Garbage:                      Garbage,
		RecalledRead:                 Free,
		RecalledWrite:                Free,
		ReadRecallInProgress:         Free,
		WriteRecallInProgress:        Free,
		RecalledWriteForRead:         GreedyRead,
		WriteRecallForReadInProgress: GreedyRead,
	}

	for _, state := range AllGreediness {
		t.Run(state.String(), func(t *testing.T) {
			got, err := state.RecallInProgress()
			if want, ok := inProgress[state]; ok {
				if err != nil || got != want {
					t.Errorf("RecallInProgress() = %s, %v, want %s", got, err, want)
				}
			} else if state == Garbage {
				if !errors.Is(err, ErrGarbageLock) {
					t.Errorf("RecallInProgress() error = %v, want ErrGarbageLock", err)
				}
			} else if !errors.Is(err, ErrIllegalTransition) {
				t.Errorf("RecallInProgress() error = %v, want ErrIllegalTransition", err)
			}

			got, err = state.RecallCommitted()
			if want, ok := committed[state]; ok {
				if err != nil || got != want {
					t.Errorf("RecallCommitted() = %s, %v, want %s", got, err, want)
				}
			} else if !errors.Is(err, ErrIllegalTransition) {
				t.Errorf("RecallCommitted() error = %v, want ErrIllegalTransition", err)
			}
		})
	}
}

// TestMarkAsGarbage tests that only Free locks are collected
func TestMarkAsGarbage(t *testing.T) {
	for _, state := range AllGreediness {
		got, err := state.MarkAsGarbage()
		if err != nil {
			t.Errorf("%s.MarkAsGarbage() error = %v", state, err)
			continue
		}
		want := state
		if state == Free {
			want = Garbage
		}
		if got != want {
			t.Errorf("%s.MarkAsGarbage() = %s, want %s", state, got, want)
		}
	}
}

// TestGarbageOperations tests that a garbage lock rejects everything but the idempotent transitions
func TestGarbageOperations(t *testing.T) {
	failing := map[string]func() error{
		"canAward": func() error { _, err := Garbage.CanAward(LevelRead); return err },
		"requested": func() error { _, err := Garbage.Requested(ServerRead); return err },
		"awarded":   func() error { _, err := Garbage.Awarded(ServerRead); return err },
		"recallInProgress": func() error {
			_, err := Garbage.RecallInProgress()
			return err
		},
		"toContext": func() error { _, err := Garbage.ToContext("lock", 1); return err },
	}
	for name, op := range failing {
		if err := op(); !errors.Is(err, ErrGarbageLock) {
			t.Errorf("%s on garbage error = %v, want ErrGarbageLock", name, err)
		}
	}

	idempotent := map[string]func() (Greediness, error){
		"recalled":        func() (Greediness, error) { return Garbage.Recalled(fixedPending(1), 1, ServerWrite) },
		"recallCommitted": Garbage.RecallCommitted,
		"markAsGarbage":   Garbage.MarkAsGarbage,
	}
	for name, op := range idempotent {
		got, err := op()
		if err != nil || got != Garbage {
			t.Errorf("%s on garbage = %s, %v, want GARBAGE", name, got, err)
		}
	}
}

// TestRoundTrips tests complete recall lifecycles
func TestRoundTrips(t *testing.T) {
	type step func(Greediness) (Greediness, error)

	tests := []struct {
		name  string
		start Greediness
		steps []step
		want  Greediness
	}{
		{
			name:  "read recall",
			start: GreedyRead,
			steps: []step{
				func(g Greediness) (Greediness, error) { return g.Recalled(fixedPending(0), 0, ServerWrite) },
				Greediness.RecallInProgress,
				Greediness.RecallCommitted,
			},
			want: Free,
		},
		{
			name:  "partial surrender",
			start: GreedyWrite,
			steps: []step{
				func(g Greediness) (Greediness, error) { return g.Recalled(fixedPending(0), 0, ServerRead) },
				Greediness.RecallInProgress,
				Greediness.RecallCommitted,
			},
			want: GreedyRead,
		},
		{
			name:  "self recall before upgrade",
			start: GreedyRead,
			steps: []step{
				func(g Greediness) (Greediness, error) { return g.Requested(ServerWrite) },
				Greediness.RecallInProgress,
				Greediness.RecallCommitted,
				func(g Greediness) (Greediness, error) { return g.Awarded(ServerWrite) },
			},
			want: GreedyWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.start
			for i, s := range tt.steps {
				next, err := s(g)
				if err != nil {
					t.Fatalf("step %d from %s failed: %v", i, g, err)
				}
				g = next
			}
			if g != tt.want {
				t.Errorf("final state = %s, want %s", g, tt.want)
			}
		})
	}
}
