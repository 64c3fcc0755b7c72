// Package transport defines the boundary between a participant and the network
// that carries its lock frames. The actual network transport is provided by the
// embedding application; this package only fixes the contract.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for transports that send participant frames
//     (request, recall commit) to the lock server and deliver pushed server frames
//     to a registered handler.
//
//   - HandleFunc: Function type for the callback that handles pushed server frames.
//
//   - memory: An in-process transport that hands every frame to a local function.
//     Used by the replay command and by tests.
package transport
