package client

import (
	"context"

	"github.com/ValentinKolb/dLock/lib/lockmgr"
	"github.com/ValentinKolb/dLock/rpc/common"
	"github.com/ValentinKolb/dLock/rpc/serializer"
	"github.com/ValentinKolb/dLock/rpc/transport"
)

// NewRPCServerAuthority creates a lockmgr.IServerAuthority that sends request and
// recall commit frames to the lock server. The transport must be connected.
func NewRPCServerAuthority(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) lockmgr.IServerAuthority {
	return &rpcServerAuthority{
		rpcClientBase{
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}
}

type rpcServerAuthority struct {
	rpcClientBase
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the lockmgr package in interface.go)
// --------------------------------------------------------------------------

func (a *rpcServerAuthority) RequestLock(ctx context.Context, lock lockmgr.LockID, participant lockmgr.ParticipantID, level lockmgr.ServerLockLevel) error {
	req := common.NewRequestMessage(lock, participant, level)
	_, err := invokeRPCRequest(ctx, req, a.transport, a.serializer)
	return err
}

func (a *rpcServerAuthority) CommitRecall(ctx context.Context, lock lockmgr.LockID, participant lockmgr.ParticipantID, retained []lockmgr.ExchangeContext) error {
	req := common.NewRecallCommitMessage(lock, participant, retained)
	_, err := invokeRPCRequest(ctx, req, a.transport, a.serializer)
	return err
}
