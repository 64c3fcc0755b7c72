package transport

import (
	"context"

	"github.com/ValentinKolb/dLock/rpc/common"
)

// --------------------------------------------------------------------------
// Inbound Frames
// --------------------------------------------------------------------------

// HandleFunc is a function type that handles incoming frames of the lock server.
// A transport calls it for every frame pushed to the participant (award, recall,
// recall committed, resync) and sends the returned frame back as the answer.
type HandleFunc func(req []byte) (resp []byte)

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the transport that carries the frames of
// one participant to the lock server
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a frame to the server and returns the acknowledgement frame
	Send(ctx context.Context, req []byte) (resp []byte, err error)
	// RegisterHandler registers the handler for frames pushed by the server
	RegisterHandler(handler HandleFunc)
	// Close closes the transport connection
	Close() error
}
