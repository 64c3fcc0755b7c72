package lockmgr

import (
	"encoding/json"
	"fmt"
)

// HolderState is the kind of holding reported to the server
type HolderState uint8

const (
	HolderUnknown HolderState = iota
	GreedyHolderRead
	GreedyHolderWrite
	HolderRead
	HolderWrite
	WaiterRead
	WaiterWrite
)

// String returns the string representation of a HolderState.
func (s HolderState) String() string {
	switch s {
	case GreedyHolderRead:
		return "greedyHolderRead"
	case GreedyHolderWrite:
		return "greedyHolderWrite"
	case HolderRead:
		return "holderRead"
	case HolderWrite:
		return "holderWrite"
	case WaiterRead:
		return "waiterRead"
	case WaiterWrite:
		return "waiterWrite"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for HolderState.
func (s HolderState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for HolderState.
func (s *HolderState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	switch str {
	case "greedyHolderRead":
		*s = GreedyHolderRead
	case "greedyHolderWrite":
		*s = GreedyHolderWrite
	case "holderRead":
		*s = HolderRead
	case "holderWrite":
		*s = HolderWrite
	case "waiterRead":
		*s = WaiterRead
	case "waiterWrite":
		*s = WaiterWrite
	case "unknown", "":
		*s = HolderUnknown
	default:
		return fmt.Errorf("unknown holder state: %s", str)
	}
	return nil
}

// ExchangeContext is an immutable snapshot of one holding, reported to the server
// when the participant reconnects or commits a recall.
type ExchangeContext struct {
	LockID        LockID        `json:"lock"`
	ParticipantID ParticipantID `json:"participant"`
	ThreadID      ThreadID      `json:"thread"`
	State         HolderState   `json:"state"`
}

// String returns a compact representation of the context
func (c ExchangeContext) String() string {
	return fmt.Sprintf("%s@%d/%s:%s", c.LockID, c.ParticipantID, c.ThreadID, c.State)
}

// NewExchangeContext builds the greedy context of a participant for the given state.
// Free locks have no greedy holding and yield nil. Garbage locks have no representation.
func NewExchangeContext(g Greediness, lock LockID, participant ParticipantID) (*ExchangeContext, error) {
	var state HolderState

	switch g {
	case Garbage:
		return nil, garbage("exchange context")
	case Free:
		return nil, nil
	case GreedyRead, RecalledRead, ReadRecallInProgress:
		state = GreedyHolderRead
	case GreedyWrite, RecalledWrite, WriteRecallInProgress, RecalledWriteForRead, WriteRecallForReadInProgress:
		state = GreedyHolderWrite
	default:
		return nil, illegal("exchange context", g)
	}

	return &ExchangeContext{
		LockID:        lock,
		ParticipantID: participant,
		ThreadID:      ParticipantWide,
		State:         state,
	}, nil
}

// threadContext builds the context of a single thread holding or waiting for a lock
func threadContext(lock LockID, participant ParticipantID, thread ThreadID, state HolderState) ExchangeContext {
	return ExchangeContext{
		LockID:        lock,
		ParticipantID: participant,
		ThreadID:      thread,
		State:         state,
	}
}
