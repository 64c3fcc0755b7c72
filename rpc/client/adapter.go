package client

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/dLock/lib/lockmgr"
	"github.com/ValentinKolb/dLock/rpc/common"
	"github.com/ValentinKolb/dLock/rpc/serializer"
)

// IRPCClientAdapter handles the frames the lock server pushes to a participant
type IRPCClientAdapter interface {
	// Handle decodes a server frame, applies it to the client lock manager and returns
	// the encoded answer. Errors are reported as error frames, never as a nil answer
	// unless the answer itself cannot be encoded.
	Handle(req []byte) (resp []byte)
}

// NewRPCClientAdapter creates the adapter that drives the manager from server frames.
// Every frame is applied with the frame timeout of the config.
func NewRPCClientAdapter(
	manager lockmgr.IClientLockManager,
	config common.ClientConfig,
	serializer serializer.IRPCSerializer,
) IRPCClientAdapter {
	return &rpcClientAdapter{
		manager:    manager,
		config:     config,
		serializer: serializer,
	}
}

type rpcClientAdapter struct {
	manager    lockmgr.IClientLockManager
	config     common.ClientConfig
	serializer serializer.IRPCSerializer
}

func (a *rpcClientAdapter) Handle(req []byte) []byte {
	msg := common.Message{}
	var resp *common.Message

	if err := a.serializer.Deserialize(req, &msg); err != nil {
		resp = common.NewErrorResponse(fmt.Sprintf("invalid frame: %v", err))
	} else {
		resp = a.dispatch(&msg)
	}

	data, err := a.serializer.Serialize(*resp)
	if err != nil {
		Logger.Errorf("failed to serialize answer to %s: %v", msg.MsgType, err)
		return nil
	}
	return data
}

// dispatch applies one server frame to the manager
func (a *rpcClientAdapter) dispatch(msg *common.Message) *common.Message {
	ctx := context.Background()
	if timeout := a.config.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		Logger.Debugf("handled %s on %s in %s", msg.MsgType, msg.LockID, time.Since(start))
	}()

	switch msg.MsgType {
	case common.MsgTLCKAward:
		return common.NewResponse(a.manager.OnAwarded(ctx, msg.LockID, msg.Level))
	case common.MsgTLCKRecall:
		return common.NewResponse(a.manager.OnRecalled(ctx, msg.LockID, msg.Level, msg.Lease))
	case common.MsgTLCKRecallCommitted:
		return common.NewResponse(a.manager.OnRecallCommitted(ctx, msg.LockID))
	case common.MsgTLCKResync:
		contexts, err := a.manager.Contexts()
		return common.NewResyncResponse(lockmgr.ParticipantID(a.config.ParticipantID), contexts, err)
	default:
		return common.NewErrorResponse(fmt.Sprintf("unsupported message type: %s", msg.MsgType))
	}
}
