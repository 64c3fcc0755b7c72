// Package memory provides an in-process implementation of transport.IRPCClientTransport.
// Frames sent by the participant are passed to a ServerFunc in the same process, frames
// of the server are delivered to the registered handler with Push. No bytes leave the
// process, which makes it the transport of the replay command and of tests.
//
// Usage Example:
//
//	t := memory.NewMemoryClientTransport(func(ctx context.Context, req []byte) ([]byte, error) {
//	    // decode req, answer with a success frame
//	    return s.Serialize(*common.NewSuccessResponse())
//	})
//	_ = t.Connect(config)
//
//	// deliver an award of the server to the participant
//	frame, _ := s.Serialize(*common.NewAwardMessage("orders", lockmgr.ServerWrite))
//	resp, err := t.Push(frame)
package memory
