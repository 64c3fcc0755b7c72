package serializer

import (
	"encoding/json"

	"github.com/ValentinKolb/dLock/rpc/common"
	"github.com/juju/errors"
)

// NewJSONSerializer creates a new serializer using json encoding.
// The frames are readable and match the lines of a replay script.
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	return data, errors.Annotatef(err, "encode %s frame", msg.MsgType)
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	// fields missing in the frame must not keep values of a reused message
	*msg = common.Message{}
	return errors.Annotate(json.Unmarshal(b, msg), "decode json frame")
}
