package serializer

import "github.com/ValentinKolb/dLock/rpc/common"

// IRPCSerializer is the interface for all lock frame serializers
type IRPCSerializer interface {
	// Serialize serializes a Message into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into a Message
	// It takes a byte array and a pointer to a Message as parameters
	// It returns an error if any
	Deserialize(b []byte, msg *common.Message) error
}

// FromName returns the serializer registered under the name (json, gob or binary)
func FromName(name string) (IRPCSerializer, bool) {
	switch name {
	case "json":
		return NewJSONSerializer(), true
	case "gob":
		return NewGOBSerializer(), true
	case "binary":
		return NewBinarySerializer(), true
	default:
		return nil, false
	}
}
