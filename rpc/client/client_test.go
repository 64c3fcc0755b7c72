package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/dLock/lib/lockmgr"
	"github.com/ValentinKolb/dLock/rpc/common"
	"github.com/ValentinKolb/dLock/rpc/serializer"
	"github.com/ValentinKolb/dLock/rpc/transport/memory"
)

// testServer records every participant frame and answers with success or the configured error
type testServer struct {
	s      serializer.IRPCSerializer
	frames chan common.Message
	reject string
}

func (srv *testServer) handle(_ context.Context, req []byte) ([]byte, error) {
	msg := common.Message{}
	if err := srv.s.Deserialize(req, &msg); err != nil {
		return nil, err
	}
	srv.frames <- msg
	if srv.reject != "" {
		return srv.s.Serialize(*common.NewErrorResponse(srv.reject))
	}
	return srv.s.Serialize(*common.NewSuccessResponse())
}

func (srv *testServer) expect(t *testing.T, msgType common.MessageType) common.Message {
	t.Helper()
	select {
	case msg := <-srv.frames:
		if msg.MsgType != msgType {
			t.Fatalf("frame = %s, want %s", msg.MsgType, msgType)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for %s frame", msgType)
	}
	return common.Message{}
}

// push delivers a server frame and returns the decoded answer
func push(t *testing.T, tr memory.IMemoryClientTransport, s serializer.IRPCSerializer, msg *common.Message) common.Message {
	t.Helper()
	frame, err := s.Serialize(*msg)
	if err != nil {
		t.Fatal(err)
	}
	data, err := tr.Push(frame)
	if err != nil {
		t.Fatal(err)
	}
	resp := common.Message{}
	if err := s.Deserialize(data, &resp); err != nil {
		t.Fatalf("invalid answer to %s: %v", msg.MsgType, err)
	}
	return resp
}

func newTestClient(t *testing.T, s serializer.IRPCSerializer) (lockmgr.IClientLockManager, memory.IMemoryClientTransport, *testServer) {
	t.Helper()
	srv := &testServer{s: s, frames: make(chan common.Message, 16)}
	tr := memory.NewMemoryClientTransport(srv.handle)

	mgr, err := NewRPCClientLockMgr(common.ClientConfig{ParticipantID: 7, TimeoutSecond: 5}, tr, s, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr, tr, srv
}

// TestClientLockMgrFrames tests a full greedy cycle over serialized frames
func TestClientLockMgrFrames(t *testing.T) {
	for _, name := range []string{"json", "gob", "binary"} {
		t.Run(name, func(t *testing.T) {
			s, _ := serializer.FromName(name)
			mgr, tr, srv := newTestClient(t, s)
			ctx := context.Background()

			done := make(chan error, 1)
			go func() { done <- mgr.Lock(ctx, "a", 1, lockmgr.LevelWrite) }()

			req := srv.expect(t, common.MsgTLCKRequest)
			if req.LockID != "a" || req.Level != lockmgr.ServerWrite || req.ParticipantID != 7 {
				t.Fatalf("request = %+v", req)
			}

			if resp := push(t, tr, s, common.NewAwardMessage("a", lockmgr.ServerWrite)); resp.MsgType != common.MsgTSuccess {
				t.Fatalf("award answered with %+v", resp)
			}
			select {
			case err := <-done:
				if err != nil {
					t.Fatal(err)
				}
			case <-time.After(time.Second):
				t.Fatal("Lock() did not return after award")
			}
			if err := mgr.Unlock(ctx, "a", 1, lockmgr.LevelWrite); err != nil {
				t.Fatal(err)
			}

			// partial recall, the write half goes back to the server
			if resp := push(t, tr, s, common.NewRecallMessage("a", lockmgr.ServerRead, 0)); resp.MsgType != common.MsgTSuccess {
				t.Fatalf("recall answered with %+v", resp)
			}
			commit := srv.expect(t, common.MsgTLCKRecallCommit)
			if commit.LockID != "a" || len(commit.Contexts) != 0 {
				t.Errorf("recall commit = %+v", commit)
			}

			resync := push(t, tr, s, common.NewResyncRequest())
			want := lockmgr.ExchangeContext{LockID: "a", ParticipantID: 7, ThreadID: lockmgr.ParticipantWide, State: lockmgr.GreedyHolderWrite}
			if resync.MsgType != common.MsgTLCKResync || len(resync.Contexts) != 1 || resync.Contexts[0] != want {
				t.Errorf("resync = %+v, want the greedy write context", resync)
			}

			if resp := push(t, tr, s, common.NewRecallCommittedMessage("a")); resp.MsgType != common.MsgTSuccess {
				t.Fatalf("recall committed answered with %+v", resp)
			}
			if got := mgr.State("a"); got != lockmgr.GreedyRead {
				t.Errorf("state = %s, want GREEDY_READ", got)
			}
		})
	}
}

// TestClientAdapterErrors tests the answers to frames that cannot be applied
func TestClientAdapterErrors(t *testing.T) {
	s := serializer.NewBinarySerializer()
	_, tr, _ := newTestClient(t, s)

	tests := []struct {
		name string
		msg  *common.Message
	}{
		{"participant frame", common.NewRequestMessage("a", 1, lockmgr.ServerRead)},
		{"commit of unknown lock", common.NewRecallCommittedMessage("missing")},
		{"award without level", &common.Message{MsgType: common.MsgTLCKAward, LockID: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := push(t, tr, s, tt.msg)
			if resp.MsgType != common.MsgTError || resp.Err == "" {
				t.Errorf("answer = %+v, want error frame", resp)
			}
		})
	}

	t.Run("corrupt frame", func(t *testing.T) {
		data, err := tr.Push([]byte{1})
		if err != nil {
			t.Fatal(err)
		}
		resp := common.Message{}
		if err := s.Deserialize(data, &resp); err != nil {
			t.Fatal(err)
		}
		if resp.MsgType != common.MsgTError {
			t.Errorf("answer = %+v, want error frame", resp)
		}
	})
}

// TestClientServerRejects tests that a rejected request fails the acquisition
func TestClientServerRejects(t *testing.T) {
	s := serializer.NewJSONSerializer()
	mgr, _, srv := newTestClient(t, s)
	srv.reject = "participant unknown"

	err := mgr.Lock(context.Background(), "a", 1, lockmgr.LevelRead)
	if !errors.Is(err, ErrServerRejected) {
		t.Errorf("Lock() error = %v, want ErrServerRejected", err)
	}
	srv.expect(t, common.MsgTLCKRequest)
	if got := mgr.PendingCount("a"); got != 0 {
		t.Errorf("PendingCount() = %d, want 0", got)
	}
}

// TestClientClose tests that closing the manager closes the transport
func TestClientClose(t *testing.T) {
	s := serializer.NewBinarySerializer()
	mgr, tr, _ := newTestClient(t, s)

	if err := mgr.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Push([]byte{1, 0, 0}); !errors.Is(err, memory.ErrNotConnected) {
		t.Errorf("Push() after Close error = %v, want ErrNotConnected", err)
	}
	if err := mgr.Lock(context.Background(), "a", 1, lockmgr.LevelRead); !errors.Is(err, lockmgr.ErrManagerClosed) {
		t.Errorf("Lock() after Close error = %v, want ErrManagerClosed", err)
	}
}
