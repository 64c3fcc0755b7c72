package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/dLock/rpc/common"
)

func echoServer(_ context.Context, req []byte) ([]byte, error) {
	return append([]byte("ack:"), req...), nil
}

// TestSendRequiresConnect tests the connection lifecycle
func TestSendRequiresConnect(t *testing.T) {
	tr := NewMemoryClientTransport(echoServer)
	ctx := context.Background()

	if _, err := tr.Send(ctx, []byte("x")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() before Connect error = %v, want ErrNotConnected", err)
	}

	if err := tr.Connect(common.ClientConfig{ParticipantID: 1}); err != nil {
		t.Fatal(err)
	}
	resp, err := tr.Send(ctx, []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(resp, []byte("ack:x")) {
		t.Errorf("Send() = %q, want ack:x", resp)
	}

	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Send(ctx, []byte("x")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() after Close error = %v, want ErrNotConnected", err)
	}
}

// TestSendTimeout tests that the configured timeout bounds the server call
func TestSendTimeout(t *testing.T) {
	tr := NewMemoryClientTransport(func(ctx context.Context, _ []byte) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if err := tr.Connect(common.ClientConfig{TimeoutSecond: 1}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	_, err := tr.Send(context.Background(), []byte("x"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send() error = %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("Send() did not respect the timeout")
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tr.Send(cancelled, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Send() with cancelled context error = %v, want Canceled", err)
	}
}

// TestPush tests the delivery of server frames
func TestPush(t *testing.T) {
	tr := NewMemoryClientTransport(echoServer)
	if err := tr.Connect(common.ClientConfig{}); err != nil {
		t.Fatal(err)
	}

	if _, err := tr.Push([]byte("award")); !errors.Is(err, ErrNoHandler) {
		t.Errorf("Push() without handler error = %v, want ErrNoHandler", err)
	}

	var got []byte
	tr.RegisterHandler(func(req []byte) []byte {
		got = req
		return []byte("ok")
	})

	resp, err := tr.Push([]byte("award"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "award" || string(resp) != "ok" {
		t.Errorf("Push() delivered %q and answered %q", got, resp)
	}
}
