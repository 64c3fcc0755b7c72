package replay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/dLock/lib/lockmgr"
	"github.com/ValentinKolb/dLock/rpc/client"
	"github.com/ValentinKolb/dLock/rpc/common"
	"github.com/ValentinKolb/dLock/rpc/serializer"
	"github.com/ValentinKolb/dLock/rpc/transport/memory"
	"github.com/juju/errors"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("cmd")

// lockResult is the outcome of a lock step that ran in the background
type lockResult struct {
	step int
	msg  common.Message
	err  error
}

// replayer applies a script of lock steps and server frames to a participant
type replayer struct {
	out        io.Writer
	outMu      sync.Mutex
	serializer serializer.IRPCSerializer
	transport  memory.IMemoryClientTransport
	manager    lockmgr.IClientLockManager
	stepWait   time.Duration
	results    chan lockResult
	waiting    sync.WaitGroup
}

// newReplayer wires a participant to an in-process transport that prints every outbound frame
func newReplayer(out io.Writer, config common.ClientConfig, s serializer.IRPCSerializer, stepWait time.Duration) (*replayer, error) {
	r := &replayer{
		out:        out,
		serializer: s,
		stepWait:   stepWait,
		results:    make(chan lockResult, 1024),
	}
	r.transport = memory.NewMemoryClientTransport(r.serve)

	manager, err := client.NewRPCClientLockMgr(config, r.transport, s, r)
	if err != nil {
		return nil, err
	}
	r.manager = manager
	return r, nil
}

// printf writes a line of output, lock steps in the background print as well
func (r *replayer) printf(format string, args ...interface{}) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, format+"\n", args...)
}

// serve plays the lock server: it prints every frame of the participant and acknowledges it
func (r *replayer) serve(_ context.Context, req []byte) ([]byte, error) {
	msg := common.Message{}
	if err := r.serializer.Deserialize(req, &msg); err != nil {
		return nil, errors.Annotate(err, "decode participant frame")
	}
	r.printf("   -> %s (%d bytes)", describe(&msg), len(req))
	return r.serializer.Serialize(*common.NewSuccessResponse())
}

// Flush implements lockmgr.IFlusher, the participant has no data so it only prints
func (r *replayer) Flush(_ context.Context, lock lockmgr.LockID, level lockmgr.ServerLockLevel) error {
	r.printf("   flush %s at %s", lock, level)
	return nil
}

// run applies every line of the script. Empty lines and lines starting with # are skipped.
func (r *replayer) run(ctx context.Context, script io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scanner := bufio.NewScanner(script)
	step := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		step++

		msg := common.Message{}
		if err := serializer.NewJSONSerializer().Deserialize([]byte(line), &msg); err != nil {
			return errors.Annotatef(err, "step %d", step)
		}
		if err := r.apply(ctx, step, msg); err != nil {
			return errors.Annotatef(err, "step %d", step)
		}

		time.Sleep(r.stepWait)
		r.drain()
		if msg.LockID != "" {
			r.printf("   state %s: %s pending=%d", msg.LockID, r.manager.State(msg.LockID), r.manager.PendingCount(msg.LockID))
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Annotate(err, "read script")
	}

	// abandon every lock step that is still waiting
	cancel()
	r.waiting.Wait()
	r.drain()
	return nil
}

// apply runs a single step
func (r *replayer) apply(ctx context.Context, step int, msg common.Message) error {
	switch msg.MsgType {
	case common.MsgTLCKLock:
		r.printf("#%d lock %s %s %s", step, msg.LockID, msg.ThreadID, msg.LockLevel)
		r.waiting.Add(1)
		go func() {
			defer r.waiting.Done()
			err := r.manager.Lock(ctx, msg.LockID, msg.ThreadID, msg.LockLevel)
			r.results <- lockResult{step: step, msg: msg, err: err}
		}()
		return nil

	case common.MsgTLCKUnlock:
		r.printf("#%d unlock %s %s %s", step, msg.LockID, msg.ThreadID, msg.LockLevel)
		if err := r.manager.Unlock(ctx, msg.LockID, msg.ThreadID, msg.LockLevel); err != nil {
			r.printf("   error: %v", err)
		}
		return nil

	default:
		if !msg.MsgType.IsInbound() {
			return errors.NotSupportedf("%s in a replay script", msg.MsgType)
		}
		r.printf("#%d <- %s", step, describe(&msg))

		frame, err := r.serializer.Serialize(msg)
		if err != nil {
			return err
		}
		data, err := r.transport.Push(frame)
		if err != nil {
			return err
		}
		answer := common.Message{}
		if err := r.serializer.Deserialize(data, &answer); err != nil {
			return errors.Annotate(err, "decode answer")
		}
		if answer.MsgType == common.MsgTError {
			r.printf("   error: %s", answer.Err)
		} else if answer.MsgType == common.MsgTLCKResync {
			for _, c := range answer.Contexts {
				r.printf("   context %s", c)
			}
		}
		return nil
	}
}

// drain prints the results of finished lock steps
func (r *replayer) drain() {
	for {
		select {
		case res := <-r.results:
			switch {
			case res.err == nil:
				r.printf("   granted %s %s %s (step %d)", res.msg.LockID, res.msg.ThreadID, res.msg.LockLevel, res.step)
			case errors.Is(res.err, context.Canceled):
				r.printf("   abandoned %s %s %s (step %d)", res.msg.LockID, res.msg.ThreadID, res.msg.LockLevel, res.step)
			default:
				r.printf("   failed %s %s %s (step %d): %v", res.msg.LockID, res.msg.ThreadID, res.msg.LockLevel, res.step, res.err)
			}
		default:
			return
		}
	}
}

// close shuts the participant down
func (r *replayer) close() error {
	return r.manager.Close()
}

// describe returns a short readable form of a frame
func describe(msg *common.Message) string {
	var sb strings.Builder
	sb.WriteString(msg.MsgType.String())
	if msg.LockID != "" {
		sb.WriteString(" " + string(msg.LockID))
	}
	if msg.Level != lockmgr.ServerUnknown {
		sb.WriteString(" " + msg.Level.String())
	}
	if msg.MsgType == common.MsgTLCKRecall {
		sb.WriteString(fmt.Sprintf(" lease=%d", msg.Lease))
	}
	if msg.MsgType == common.MsgTLCKRecallCommit {
		held := make([]string, 0, len(msg.Contexts))
		for _, c := range msg.Contexts {
			held = append(held, fmt.Sprintf("%s:%s", c.ThreadID, c.State))
		}
		sb.WriteString(" retained=[" + strings.Join(held, " ") + "]")
	}
	return sb.String()
}
