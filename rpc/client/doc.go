// Package client connects the client lock manager of a participant to the lock server.
// It implements both directions of the lock frame protocol on top of a transport and
// a serializer.
//
// The package focuses on:
//   - Turning the outbound calls of the manager into request and recall commit frames
//   - Applying the frames pushed by the server (award, recall, recall committed, resync)
//   - Reporting failures of either side as frames or errors, never as panics
//
// Key Components:
//
//   - NewRPCServerAuthority: Factory function that creates a lockmgr.IServerAuthority
//     sending every call as a frame and checking the acknowledgement of the server.
//
//   - NewRPCClientAdapter: Factory function that creates the inbound side. Its Handle
//     method is registered as the handler of the transport.
//
//   - NewRPCClientLockMgr: Wires a transport, a serializer, the authority, the adapter
//     and a lockmgr.IClientLockManager into a ready participant.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  ParticipantID:       7,
//	  SweepIntervalSecond: 30,
//	  TimeoutSecond:       5,
//	}
//
//	mgr, _ := client.NewRPCClientLockMgr(config, myTransport, serializer.NewBinarySerializer(), nil)
//	defer mgr.Close()
//
//	if err := mgr.Lock(ctx, "orders", 1, lockmgr.LevelWrite); err == nil {
//	  defer mgr.Unlock(ctx, "orders", 1, lockmgr.LevelWrite)
//	}
//
// Thread Safety:
//
//	The authority and the adapter are stateless apart from their collaborators and can
//	be used concurrently. Frames pushed by the server for one lock must be delivered in
//	the order the server sent them.
package client
