package client

import (
	"context"

	"github.com/ValentinKolb/dLock/rpc/common"
	"github.com/ValentinKolb/dLock/rpc/serializer"
	"github.com/ValentinKolb/dLock/rpc/transport"
	"github.com/juju/errors"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// ErrServerRejected is returned if the lock server answers a frame with an error
const ErrServerRejected = errors.ConstError("rejected by lock server")

// rpcClientBase is a struct that stores all data needed to talk to the lock server.
// Used by the server authority and the client adapter with composition pattern
type rpcClientBase struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest is a helper function used to send participant frames to the lock server.
// It serializes the frame, sends it and checks the acknowledgement: an error frame or an
// acknowledgement of another type than success is returned as an error.
func invokeRPCRequest(ctx context.Context, req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, errors.Annotatef(err, "serialize %s", req.MsgType)
	}

	// Send the frame
	respBytes, err := transport.Send(ctx, reqBytes)
	if err != nil {
		return nil, errors.Annotatef(err, "send %s", req.MsgType)
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := serializer.Deserialize(respBytes, resp); err != nil {
		return nil, errors.Annotatef(err, "deserialize answer to %s", req.MsgType)
	}

	// Check if the response is an error response
	if resp.MsgType == common.MsgTError || resp.Err != "" {
		return nil, errors.Annotatef(ErrServerRejected, "%s on %s: %s", req.MsgType, req.LockID, resp.Err)
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != common.MsgTSuccess {
		return nil, errors.Errorf("unexpected answer to %s: %s, expected %s", req.MsgType, resp.MsgType, common.MsgTSuccess)
	}

	return resp, nil
}
