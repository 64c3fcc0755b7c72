package serializer

import (
	"bytes"
	"encoding/gob"

	"github.com/ValentinKolb/dLock/rpc/common"
	"github.com/juju/errors"
)

// NewGOBSerializer creates a new serializer using Go's binary gob format
func NewGOBSerializer() IRPCSerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements the IRPCSerializer interface using gob encoding.
// Every frame carries its own type description, the serializer keeps no stream state.
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return nil, errors.Annotatef(err, "encode %s frame", msg.MsgType)
	}
	return buf.Bytes(), nil
}

func (g gobSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	// gob skips zero fields, so a reused message has to be cleared first
	*msg = common.Message{}
	return errors.Annotate(gob.NewDecoder(bytes.NewReader(b)).Decode(msg), "decode gob frame")
}
