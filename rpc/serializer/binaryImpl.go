package serializer

import (
	"encoding/binary"

	"github.com/ValentinKolb/dLock/lib/lockmgr"
	"github.com/ValentinKolb/dLock/rpc/common"
	"github.com/juju/errors"
)

// ErrShortFrame is returned if a binary frame ends before all announced fields were read
const ErrShortFrame = errors.ConstError("frame too short")

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasLockID      uint16 = 1 << 0
	hasThreadID    uint16 = 1 << 1
	hasLevel       uint16 = 1 << 2
	hasLockLevel   uint16 = 1 << 3
	hasLease       uint16 = 1 << 4
	hasContexts    uint16 = 1 << 5
	hasParticipant uint16 = 1 << 6
	hasOk          uint16 = 1 << 7
	hasErr         uint16 = 1 << 8
)

// headerSize is 1 byte for MsgType + 2 bytes for flags
const headerSize = 3

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	result := make([]byte, b.sizeBytes(msg))

	// Write message type
	result[0] = byte(msg.MsgType)

	var flags uint16 = 0
	pos := headerSize

	// Handle LockID
	if msg.LockID != "" {
		flags |= hasLockID
		pos = putString(result, pos, string(msg.LockID))
	}

	// Handle ThreadID
	if msg.ThreadID != 0 {
		flags |= hasThreadID
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(msg.ThreadID))
		pos += 8
	}

	// Handle Level
	if msg.Level != lockmgr.ServerUnknown {
		flags |= hasLevel
		result[pos] = byte(msg.Level)
		pos += 1
	}

	// Handle LockLevel
	if msg.LockLevel != lockmgr.LevelUnknown {
		flags |= hasLockLevel
		result[pos] = byte(msg.LockLevel)
		pos += 1
	}

	// Handle Lease (two's complement, a negative lease survives the round trip)
	if msg.Lease != 0 {
		flags |= hasLease
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(int64(msg.Lease)))
		pos += 8
	}

	// Handle Contexts
	if msg.Contexts != nil {
		flags |= hasContexts
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Contexts)))
		pos += 4

		for _, ctx := range msg.Contexts {
			pos = putString(result, pos, string(ctx.LockID))
			binary.BigEndian.PutUint64(result[pos:pos+8], uint64(ctx.ParticipantID))
			pos += 8
			binary.BigEndian.PutUint64(result[pos:pos+8], uint64(ctx.ThreadID))
			pos += 8
			result[pos] = byte(ctx.State)
			pos += 1
		}
	}

	// Handle ParticipantID
	if msg.ParticipantID != 0 {
		flags |= hasParticipant
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(msg.ParticipantID))
		pos += 8
	}

	// Handle Ok
	if msg.Ok {
		flags |= hasOk
		result[pos] = 1
		pos += 1
	}

	// Handle Err
	if msg.Err != "" {
		flags |= hasErr
		putString(result, pos, msg.Err)
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(result[1:3], flags)

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerSize {
		return errors.Annotate(ErrShortFrame, "message header")
	}

	// Start from an empty message, fields that are not present stay zero
	*msg = common.Message{}

	msg.MsgType = common.MessageType(data[0])
	flags := binary.BigEndian.Uint16(data[1:3])
	r := &frameReader{data: data, pos: headerSize}

	if flags&hasLockID != 0 {
		msg.LockID = lockmgr.LockID(r.readString("lock id"))
	}
	if flags&hasThreadID != 0 {
		msg.ThreadID = lockmgr.ThreadID(r.readUint64("thread id"))
	}
	if flags&hasLevel != 0 {
		msg.Level = lockmgr.ServerLockLevel(r.readByte("level"))
	}
	if flags&hasLockLevel != 0 {
		msg.LockLevel = lockmgr.LockLevel(r.readByte("lock level"))
	}
	if flags&hasLease != 0 {
		msg.Lease = int(int64(r.readUint64("lease")))
	}

	if flags&hasContexts != 0 {
		count := r.readUint32("context count")
		if r.err == nil {
			// every context needs at least 4+8+8+1 bytes, do not trust the count blindly
			if int(count) > (len(data)-r.pos)/21 {
				return errors.Annotatef(ErrShortFrame, "%d contexts", count)
			}
			msg.Contexts = make([]lockmgr.ExchangeContext, count)
		}
		for i := range msg.Contexts {
			msg.Contexts[i] = lockmgr.ExchangeContext{
				LockID:        lockmgr.LockID(r.readString("context lock id")),
				ParticipantID: lockmgr.ParticipantID(r.readUint64("context participant")),
				ThreadID:      lockmgr.ThreadID(r.readUint64("context thread")),
				State:         lockmgr.HolderState(r.readByte("context state")),
			}
		}
	}

	if flags&hasParticipant != 0 {
		msg.ParticipantID = lockmgr.ParticipantID(r.readUint64("participant id"))
	}
	if flags&hasOk != 0 {
		msg.Ok = r.readByte("ok flag") != 0
	}
	if flags&hasErr != 0 {
		msg.Err = r.readString("error")
	}

	return r.err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize

	if msg.LockID != "" {
		size += 4 + len(msg.LockID) // 4 bytes for length + lock id
	}
	if msg.ThreadID != 0 {
		size += 8 // uint64
	}
	if msg.Level != lockmgr.ServerUnknown {
		size += 1
	}
	if msg.LockLevel != lockmgr.LevelUnknown {
		size += 1
	}
	if msg.Lease != 0 {
		size += 8 // int64
	}
	if msg.Contexts != nil {
		size += 4 // count
		for _, ctx := range msg.Contexts {
			size += 4 + len(ctx.LockID) + 8 + 8 + 1
		}
	}
	if msg.ParticipantID != 0 {
		size += 8 // uint64
	}
	if msg.Ok {
		size += 1 // 1 byte for boolean
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err) // 4 bytes for length + error string
	}

	return size
}

// putString writes a length prefixed string and returns the new position
func putString(buf []byte, pos int, s string) int {
	binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(len(s)))
	pos += 4
	copy(buf[pos:pos+len(s)], s)
	return pos + len(s)
}

// frameReader reads fields from a binary frame. After the first failed read
// every further read returns a zero value and err keeps the first error.
type frameReader struct {
	data []byte
	pos  int
	err  error
}

func (r *frameReader) take(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = errors.Annotate(ErrShortFrame, field)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *frameReader) readByte(field string) byte {
	if b := r.take(1, field); b != nil {
		return b[0]
	}
	return 0
}

func (r *frameReader) readUint32(field string) uint32 {
	if b := r.take(4, field); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *frameReader) readUint64(field string) uint64 {
	if b := r.take(8, field); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

func (r *frameReader) readString(field string) string {
	n := r.readUint32(field)
	if b := r.take(int(n), field); b != nil {
		return string(b)
	}
	return ""
}
