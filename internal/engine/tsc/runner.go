// Package tsc runs the embedded compiler engine inside a held Node.js
// process and adapts it to the engine interfaces.
//
// The process is started once and reused for the lifetime of the worker.
// Messages are JSON lines over two dedicated pipes (fds 3 and 4 on the
// node side); stdout/stderr are drained into the logger. The protocol is
// synchronous and reentrant: while an operation is in flight the node side
// may issue host callbacks, which the Go side services on the same
// goroutine before the operation's own response arrives. Both sides read
// one message at a time, so nesting is bounded by the callback depth and
// ids never race.
package tsc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// outbound is one Go-to-node line: either a new operation or a reply to a
// callback the node side issued.
type outbound struct {
	ID      int             `json:"id"`
	Op      string          `json:"op,omitempty"`
	Args    json.RawMessage `json:"args,omitempty"`
	Reply   bool            `json:"reply,omitempty"`
	Res     any             `json:"res,omitempty"`
	ErrText string          `json:"errtext,omitempty"`
}

// inbound is one node-to-Go line: either the response to an operation or a
// host callback referencing the in-flight operation.
type inbound struct {
	ID      int             `json:"id"`
	Status  string          `json:"status,omitempty"`
	Res     json.RawMessage `json:"res,omitempty"`
	ErrText string          `json:"errtext,omitempty"`
	Call    string          `json:"call,omitempty"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// callbackHandler services one host callback and returns its result value.
type callbackHandler func(call string, args json.RawMessage) (any, error)

// Runner owns the held node process and the message channel to it.
type Runner struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	write   io.Writer
	scanner *bufio.Scanner
	closers []io.Closer
	seq     int
	log     *zap.Logger

	// onCallback is installed by the engine for the duration of operations
	// that may trigger host callbacks.
	onCallback callbackHandler

	// servicing counts callback handlers currently executing. Nonzero means
	// we are inside Do on this goroutine already, so a nested operation must
	// not re-acquire mu.
	servicing int
}

// Params configures a new Runner. Log may be nil.
type Params struct {
	// NodeBinary overrides the node executable name; default "node".
	NodeBinary string
	// ExtraFlags are appended to the node command line.
	ExtraFlags []string
	Log        *zap.Logger
}

// Start launches the node process with the embedded harness and returns a
// runner once the pipes are wired. The context bounds the process lifetime;
// cancellation kills it.
func Start(ctx context.Context, p Params) (*Runner, error) {
	bin := p.NodeBinary
	if bin == "" {
		bin = "node"
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, bin, "-e", jsHarness)
	cmd.Args = append(cmd.Args, p.ExtraFlags...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("tsc: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("tsc: stderr pipe: %w", err)
	}

	// os.Pipe returns (read, write). The node side reads fd 3 and writes
	// fd 4.
	remoteRead, localWrite, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("tsc: request pipe: %w", err)
	}
	localRead, remoteWrite, err := os.Pipe()
	if err != nil {
		remoteRead.Close()
		localWrite.Close()
		return nil, fmt.Errorf("tsc: response pipe: %w", err)
	}
	cmd.ExtraFiles = []*os.File{remoteRead, remoteWrite}

	if err := cmd.Start(); err != nil {
		for _, f := range []*os.File{remoteRead, localWrite, localRead, remoteWrite} {
			f.Close()
		}
		return nil, fmt.Errorf("tsc: start node: %w", err)
	}
	// The child holds its own descriptors now.
	remoteRead.Close()
	remoteWrite.Close()

	scanner := bufio.NewScanner(localRead)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)

	r := &Runner{
		cmd:     cmd,
		write:   localWrite,
		scanner: scanner,
		closers: []io.Closer{localWrite, localRead},
		log:     log,
	}
	go r.drain(stdout, "node.stdout")
	go r.drain(stderr, "node.stderr")
	return r, nil
}

func (r *Runner) drain(src io.Reader, stream string) {
	scan := bufio.NewScanner(src)
	for scan.Scan() {
		r.log.Debug(scan.Text(), zap.String("stream", stream))
	}
}

// bindCallback installs the handler for callbacks issued during subsequent
// operations. Passing nil uninstalls it.
func (r *Runner) bindCallback(h callbackHandler) { r.onCallback = h }

// Do runs one operation to completion, servicing any host callbacks the
// node side issues along the way. Exactly one top-level Do runs at a time;
// a Do issued from inside a callback handler joins the in-flight exchange
// instead of re-acquiring the lock, since everything runs on the servicing
// goroutine.
func (r *Runner) Do(op string, args any, out any) error {
	if r.servicing > 0 {
		return r.do(op, args, out)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.do(op, args, out)
}

// do is the lock-free core, reentered when a callback handler itself needs
// a nested operation.
func (r *Runner) do(op string, args any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("tsc: encode %s args: %w", op, err)
	}
	r.seq++
	id := r.seq
	if err := r.writeLine(outbound{ID: id, Op: op, Args: raw}); err != nil {
		return err
	}

	for {
		msg, err := r.readLine()
		if err != nil {
			return err
		}
		if msg.Call != "" {
			if err := r.serviceCall(msg); err != nil {
				return err
			}
			continue
		}
		if msg.ID != id {
			return fmt.Errorf("tsc: response id %d for in-flight op %d (%s)", msg.ID, id, op)
		}
		if msg.Status != "ok" {
			return fmt.Errorf("tsc: %s: %s", op, msg.ErrText)
		}
		if out == nil || len(msg.Res) == 0 {
			return nil
		}
		if err := json.Unmarshal(msg.Res, out); err != nil {
			return fmt.Errorf("tsc: decode %s result: %w", op, err)
		}
		return nil
	}
}

func (r *Runner) serviceCall(msg *inbound) error {
	if r.onCallback == nil {
		return r.writeLine(outbound{ID: msg.ID, Reply: true, ErrText: "no callback handler bound"})
	}
	r.servicing++
	res, err := r.onCallback(msg.Call, msg.Args)
	r.servicing--
	if err != nil {
		return r.writeLine(outbound{ID: msg.ID, Reply: true, ErrText: err.Error()})
	}
	return r.writeLine(outbound{ID: msg.ID, Reply: true, Res: res})
}

func (r *Runner) writeLine(v outbound) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("tsc: encode message: %w", err)
	}
	data = append(data, '\n')
	if _, err := r.write.Write(data); err != nil {
		return fmt.Errorf("tsc: write to engine: %w", err)
	}
	return nil
}

func (r *Runner) readLine() (*inbound, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, fmt.Errorf("tsc: read from engine: %w", err)
		}
		return nil, fmt.Errorf("tsc: engine closed the pipe")
	}
	var msg inbound
	if err := json.Unmarshal(r.scanner.Bytes(), &msg); err != nil {
		return nil, fmt.Errorf("tsc: decode message %q: %w", r.scanner.Bytes(), err)
	}
	return &msg, nil
}

// Close asks the harness to exit and reaps the process.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Blank op is the shutdown signal; the harness exits without replying.
	_ = r.writeLine(outbound{ID: 0, Op: "shutdown"})
	for _, c := range r.closers {
		c.Close()
	}
	return r.cmd.Wait()
}
