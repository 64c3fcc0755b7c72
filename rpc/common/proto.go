package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dLock/lib/lockmgr"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single lock frame exchanged between a participant and the lock server.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	LockID   lockmgr.LockID          `json:"lock,omitempty"`   // Used for: all lock frames
	ThreadID lockmgr.ThreadID        `json:"thread,omitempty"` // Used for: Lock, Unlock
	Level    lockmgr.ServerLockLevel `json:"level,omitempty"`  // Used for: Request, Award, Recall

	// Local fields (replay scripts)
	LockLevel lockmgr.LockLevel `json:"lockLevel,omitempty"` // Used for: Lock, Unlock

	// Recall fields
	Lease    int                       `json:"lease,omitempty"`    // Used for: Recall
	Contexts []lockmgr.ExchangeContext `json:"contexts,omitempty"` // Used for: RecallCommit, Resync (response)

	// Participant sending a participant frame
	ParticipantID lockmgr.ParticipantID `json:"participant,omitempty"` // Used for: Request, RecallCommit, Resync (response)

	// Response only fields
	Ok  bool   `json:"ok,omitempty"`  // Used for: Lock (try) responses
	Err string `json:"err,omitempty"` // Empty if no error, otherwise contains the error message
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewRequestMessage creates a new lock request sent by a participant
func NewRequestMessage(lock lockmgr.LockID, participant lockmgr.ParticipantID, level lockmgr.ServerLockLevel) *Message {
	return &Message{
		MsgType:       MsgTLCKRequest,
		LockID:        lock,
		ParticipantID: participant,
		Level:         level,
	}
}

// NewAwardMessage creates a new greedy award sent by the server
func NewAwardMessage(lock lockmgr.LockID, level lockmgr.ServerLockLevel) *Message {
	return &Message{
		MsgType: MsgTLCKAward,
		LockID:  lock,
		Level:   level,
	}
}

// NewRecallMessage creates a new recall sent by the server
func NewRecallMessage(lock lockmgr.LockID, level lockmgr.ServerLockLevel, lease int) *Message {
	return &Message{
		MsgType: MsgTLCKRecall,
		LockID:  lock,
		Level:   level,
		Lease:   lease,
	}
}

// NewRecallCommitMessage creates a new recall commit sent by a participant.
// The contexts describe the local holds that survive the surrender.
func NewRecallCommitMessage(lock lockmgr.LockID, participant lockmgr.ParticipantID, retained []lockmgr.ExchangeContext) *Message {
	return &Message{
		MsgType:       MsgTLCKRecallCommit,
		LockID:        lock,
		ParticipantID: participant,
		Contexts:      retained,
	}
}

// NewRecallCommittedMessage creates a new recall committed acknowledgement sent by the server
func NewRecallCommittedMessage(lock lockmgr.LockID) *Message {
	return &Message{
		MsgType: MsgTLCKRecallCommitted,
		LockID:  lock,
	}
}

// NewResyncRequest creates a new resync query sent by the server
func NewResyncRequest() *Message {
	return &Message{
		MsgType: MsgTLCKResync,
	}
}

// NewResyncResponse creates a new resync response holding every context of the participant
func NewResyncResponse(participant lockmgr.ParticipantID, contexts []lockmgr.ExchangeContext, err error) *Message {
	msg := &Message{
		MsgType:       MsgTLCKResync,
		ParticipantID: participant,
		Contexts:      contexts,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewLockMessage creates a new local lock step
func NewLockMessage(lock lockmgr.LockID, thread lockmgr.ThreadID, level lockmgr.LockLevel) *Message {
	return &Message{
		MsgType:   MsgTLCKLock,
		LockID:    lock,
		ThreadID:  thread,
		LockLevel: level,
	}
}

// NewUnlockMessage creates a new local unlock step
func NewUnlockMessage(lock lockmgr.LockID, thread lockmgr.ThreadID, level lockmgr.LockLevel) *Message {
	return &Message{
		MsgType:   MsgTLCKUnlock,
		LockID:    lock,
		ThreadID:  thread,
		LockLevel: level,
	}
}

// NewSuccessResponse creates a new Success response
func NewSuccessResponse() *Message {
	return &Message{
		MsgType: MsgTSuccess,
	}
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// NewResponse creates a Success response or an Error response for the error
func NewResponse(err error) *Message {
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return NewSuccessResponse()
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of a lock frame.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTLCKRequest:
		return "request"
	case MsgTLCKAward:
		return "award"
	case MsgTLCKRecall:
		return "recall"
	case MsgTLCKRecallCommit:
		return "recallCommit"
	case MsgTLCKRecallCommitted:
		return "recallCommitted"
	case MsgTLCKResync:
		return "resync"
	case MsgTLCKLock:
		return "lock"
	case MsgTLCKUnlock:
		return "unlock"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// ParseMessageType converts a string back to a MessageType
func ParseMessageType(s string) (MessageType, error) {
	switch s {
	case "request":
		return MsgTLCKRequest, nil
	case "award":
		return MsgTLCKAward, nil
	case "recall":
		return MsgTLCKRecall, nil
	case "recallCommit":
		return MsgTLCKRecallCommit, nil
	case "recallCommitted":
		return MsgTLCKRecallCommitted, nil
	case "resync":
		return MsgTLCKResync, nil
	case "lock":
		return MsgTLCKLock, nil
	case "unlock":
		return MsgTLCKUnlock, nil
	case "error":
		return MsgTError, nil
	case "success":
		return MsgTSuccess, nil
	default:
		return MsgTUnknown, fmt.Errorf("unknown message type: %s", s)
	}
}

// IsInbound reports whether the frame is sent by the server to a participant
func (t MessageType) IsInbound() bool {
	switch t {
	case MsgTLCKAward, MsgTLCKRecall, MsgTLCKRecallCommitted, MsgTLCKResync:
		return true
	default:
		return false
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseMessageType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Participant to server

	MsgTLCKRequest      // Request a greedy grant
	MsgTLCKRecallCommit // Hand a recalled grant back

	// Server to participant

	MsgTLCKAward           // Award a greedy grant
	MsgTLCKRecall          // Recall a greedy grant
	MsgTLCKRecallCommitted // Acknowledge a recall commit
	MsgTLCKResync          // Ask for every context of the participant

	// Local steps

	MsgTLCKLock   // Acquire a lock for a local thread
	MsgTLCKUnlock // Release a lock of a local thread
)
