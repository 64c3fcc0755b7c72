package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ValentinKolb/dLock/rpc/common"
	"github.com/ValentinKolb/dLock/rpc/transport"
	"github.com/juju/errors"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

const (
	// ErrNotConnected is returned if a frame is sent before Connect or after Close
	ErrNotConnected = errors.ConstError("transport not connected")
	// ErrNoHandler is returned if the server pushes a frame before a handler was registered
	ErrNoHandler = errors.ConstError("no handler registered")
)

// ServerFunc answers a frame sent by the participant
type ServerFunc func(ctx context.Context, req []byte) (resp []byte, err error)

// IMemoryClientTransport is an in-process transport. Frames sent by the participant are
// handed to a ServerFunc, frames of the server are delivered with Push.
type IMemoryClientTransport interface {
	transport.IRPCClientTransport
	// Push delivers a frame of the server to the registered handler and returns its answer
	Push(frame []byte) ([]byte, error)
}

// NewMemoryClientTransport creates a new in-process transport backed by the server function
func NewMemoryClientTransport(server ServerFunc) IMemoryClientTransport {
	return &clientTransport{server: server}
}

// clientTransport implements IMemoryClientTransport
type clientTransport struct {
	server    ServerFunc
	mu        sync.RWMutex
	handler   transport.HandleFunc
	connected bool
	timeout   time.Duration
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (c *clientTransport) Connect(config common.ClientConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timeout = config.Timeout()
	c.connected = true
	Logger.Debugf("memory transport of participant %d connected", config.ParticipantID)
	return nil
}

func (c *clientTransport) Send(ctx context.Context, req []byte) ([]byte, error) {
	c.mu.RLock()
	connected, timeout := c.connected, c.timeout
	c.mu.RUnlock()

	if !connected {
		return nil, ErrNotConnected
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.server(ctx, req)
}

func (c *clientTransport) RegisterHandler(handler transport.HandleFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

func (c *clientTransport) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *clientTransport) Push(frame []byte) ([]byte, error) {
	c.mu.RLock()
	handler, connected := c.handler, c.connected
	c.mu.RUnlock()

	if !connected {
		return nil, ErrNotConnected
	}
	if handler == nil {
		return nil, ErrNoHandler
	}
	return handler(frame), nil
}
