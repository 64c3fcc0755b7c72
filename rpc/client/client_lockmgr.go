package client

import (
	"github.com/ValentinKolb/dLock/lib/lockmgr"
	"github.com/ValentinKolb/dLock/rpc/common"
	"github.com/ValentinKolb/dLock/rpc/serializer"
	"github.com/ValentinKolb/dLock/rpc/transport"
	"github.com/juju/errors"
)

// NewRPCClientLockMgr creates the client lock manager of a participant that talks to the
// lock server over the transport. The transport is connected, the inbound adapter is
// registered as its handler, and closing the manager closes the transport.
// The flusher may be nil.
func NewRPCClientLockMgr(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
	flusher lockmgr.IFlusher,
) (lockmgr.IClientLockManager, error) {

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, errors.Annotate(err, "connect transport")
	}

	authority := NewRPCServerAuthority(config, transport, serializer)
	manager := lockmgr.NewClientLockManager(config.ToManagerConfig(), authority, flusher)

	adapter := NewRPCClientAdapter(manager, config, serializer)
	transport.RegisterHandler(adapter.Handle)

	return &rpcClientLockMgr{
		IClientLockManager: manager,
		transport:          transport,
	}, nil
}

// rpcClientLockMgr is a client lock manager that owns its transport
type rpcClientLockMgr struct {
	lockmgr.IClientLockManager
	transport transport.IRPCClientTransport
}

func (m *rpcClientLockMgr) Close() error {
	mgrErr := m.IClientLockManager.Close()
	if err := m.transport.Close(); err != nil {
		return errors.Annotate(err, "close transport")
	}
	return mgrErr
}
