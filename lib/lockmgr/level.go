package lockmgr

import (
	"encoding/json"
	"fmt"
	"math"
)

// --------------------------------------------------------------------------
// Identities
// --------------------------------------------------------------------------

// LockID identifies a lock cluster wide. It is stable for the lifetime of the lock.
type LockID string

// ParticipantID identifies a clustered client node.
type ParticipantID uint64

// ThreadID identifies a logical execution context within a participant.
type ThreadID uint64

// ParticipantWide is the thread used for holdings of the participant as a whole.
// Greedy (cached) grants are always reported with this thread.
const ParticipantWide ThreadID = math.MaxUint64

// String returns a readable representation of the thread
func (t ThreadID) String() string {
	if t == ParticipantWide {
		return "participant"
	}
	return fmt.Sprintf("thread-%d", uint64(t))
}

// --------------------------------------------------------------------------
// Local Lock Levels
// --------------------------------------------------------------------------

// LockLevel is the level a local thread asks for.
type LockLevel uint8

const (
	LevelUnknown          LockLevel = iota
	LevelRead                       // shared access
	LevelWrite                      // exclusive access
	LevelSynchronousWrite           // exclusive access, always flushed before unlock returns
)

// IsRead reports whether the level only needs shared access
func (l LockLevel) IsRead() bool {
	return l == LevelRead
}

// IsWrite reports whether the level needs exclusive access
func (l LockLevel) IsWrite() bool {
	return l == LevelWrite || l == LevelSynchronousWrite
}

// IsSynchronousWrite reports whether unlocking must always flush
func (l LockLevel) IsSynchronousWrite() bool {
	return l == LevelSynchronousWrite
}

// ServerLevel maps the local level to the level the server grants at.
func (l LockLevel) ServerLevel() ServerLockLevel {
	switch l {
	case LevelRead:
		return ServerRead
	case LevelWrite, LevelSynchronousWrite:
		return ServerWrite
	default:
		return ServerUnknown
	}
}

// String returns the string representation of a LockLevel.
func (l LockLevel) String() string {
	switch l {
	case LevelRead:
		return "read"
	case LevelWrite:
		return "write"
	case LevelSynchronousWrite:
		return "sync-write"
	default:
		return "unknown"
	}
}

// ParseLockLevel converts a string into a LockLevel
func ParseLockLevel(s string) (LockLevel, error) {
	switch s {
	case "read":
		return LevelRead, nil
	case "write":
		return LevelWrite, nil
	case "sync-write":
		return LevelSynchronousWrite, nil
	default:
		return LevelUnknown, fmt.Errorf("unknown lock level: %s", s)
	}
}

// MarshalJSON implements the json.Marshaller interface for LockLevel.
func (l LockLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for LockLevel.
func (l *LockLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" || s == "unknown" {
		*l = LevelUnknown
		return nil
	}
	level, err := ParseLockLevel(s)
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// --------------------------------------------------------------------------
// Server Lock Levels
// --------------------------------------------------------------------------

// ServerLockLevel is the coarse level the server grants and recalls at.
type ServerLockLevel uint8

const (
	ServerUnknown ServerLockLevel = iota
	ServerRead
	ServerWrite
)

// String returns the string representation of a ServerLockLevel.
func (l ServerLockLevel) String() string {
	switch l {
	case ServerRead:
		return "read"
	case ServerWrite:
		return "write"
	default:
		return "unknown"
	}
}

// ParseServerLockLevel converts a string into a ServerLockLevel
func ParseServerLockLevel(s string) (ServerLockLevel, error) {
	switch s {
	case "read":
		return ServerRead, nil
	case "write":
		return ServerWrite, nil
	default:
		return ServerUnknown, fmt.Errorf("unknown server lock level: %s", s)
	}
}

// MarshalJSON implements the json.Marshaller interface for ServerLockLevel.
func (l ServerLockLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for ServerLockLevel.
func (l *ServerLockLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" || s == "unknown" {
		*l = ServerUnknown
		return nil
	}
	level, err := ParseServerLockLevel(s)
	if err != nil {
		return err
	}
	*l = level
	return nil
}
