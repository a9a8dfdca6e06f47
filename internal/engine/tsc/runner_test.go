package tsc

import (
	"bufio"
	"encoding/json"
	"io"
	"testing"
	"time"

	"go.uber.org/zap"
)

// newPipeRunner wires a Runner to an in-memory peer instead of a node
// process. The returned scanner and writer are the peer's ends.
func newPipeRunner(t *testing.T) (*Runner, *bufio.Scanner, io.Writer) {
	t.Helper()
	opR, opW := io.Pipe()
	respR, respW := io.Pipe()
	t.Cleanup(func() {
		opW.Close()
		respW.Close()
	})
	r := &Runner{
		write:   opW,
		scanner: bufio.NewScanner(respR),
		log:     zap.NewNop(),
	}
	return r, bufio.NewScanner(opR), respW
}

func peerRead(t *testing.T, scan *bufio.Scanner) outbound {
	t.Helper()
	if !scan.Scan() {
		t.Errorf("peer: pipe closed early: %v", scan.Err())
		return outbound{}
	}
	var msg outbound
	if err := json.Unmarshal(scan.Bytes(), &msg); err != nil {
		t.Errorf("peer: decode %q: %v", scan.Bytes(), err)
	}
	return msg
}

func peerWrite(t *testing.T, w io.Writer, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Errorf("peer: encode: %v", err)
		return
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		t.Errorf("peer: write: %v", err)
	}
}

// A callback handler that itself issues an operation (the lazy-parse path)
// must complete on the same goroutine while the outer operation is still in
// flight.
func TestNestedOperationDuringCallback(t *testing.T) {
	r, peerIn, peerOut := newPipeRunner(t)

	handlerRan := false
	r.bindCallback(func(call string, args json.RawMessage) (any, error) {
		if call != "getSourceFile" {
			t.Errorf("unexpected callback %q", call)
		}
		var res struct {
			Handle string `json:"handle"`
		}
		if err := r.Do("parse", map[string]any{"url": "file:///a.ts"}, &res); err != nil {
			return nil, err
		}
		handlerRan = true
		return map[string]any{"found": true, "handle": res.Handle}, nil
	})

	go func() {
		outer := peerRead(t, peerIn)
		if outer.Op != "createProgram" {
			t.Errorf("peer: first op = %q", outer.Op)
		}
		peerWrite(t, peerOut, map[string]any{
			"id":   1000000001,
			"call": "getSourceFile",
			"args": map[string]any{"url": "file:///a.ts"},
		})
		nested := peerRead(t, peerIn)
		if nested.Op != "parse" {
			t.Errorf("peer: nested op = %q", nested.Op)
		}
		peerWrite(t, peerOut, map[string]any{
			"id":     nested.ID,
			"status": "ok",
			"res":    map[string]any{"handle": "sf1"},
		})
		reply := peerRead(t, peerIn)
		if !reply.Reply || reply.ID != 1000000001 {
			t.Errorf("peer: callback reply = %+v", reply)
		}
		peerWrite(t, peerOut, map[string]any{
			"id":     outer.ID,
			"status": "ok",
			"res":    map[string]any{"program": "p1"},
		})
	}()

	var out struct {
		Program string `json:"program"`
	}
	done := make(chan error, 1)
	go func() {
		done <- r.Do("createProgram", map[string]any{"rootNames": []string{"file:///a.ts"}}, &out)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Do: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("operation stalled; nested Do did not complete")
	}
	if !handlerRan {
		t.Fatalf("callback handler never finished")
	}
	if out.Program != "p1" {
		t.Fatalf("program = %q", out.Program)
	}
}

func TestCallbackErrorBecomesReplyError(t *testing.T) {
	r, peerIn, peerOut := newPipeRunner(t)

	r.bindCallback(func(call string, args json.RawMessage) (any, error) {
		return nil, io.ErrUnexpectedEOF
	})

	go func() {
		outer := peerRead(t, peerIn)
		peerWrite(t, peerOut, map[string]any{
			"id":   1000000001,
			"call": "readFile",
			"args": map[string]any{"path": "/x"},
		})
		reply := peerRead(t, peerIn)
		if !reply.Reply || reply.ErrText == "" {
			t.Errorf("peer: error reply = %+v", reply)
		}
		peerWrite(t, peerOut, map[string]any{
			"id":      outer.ID,
			"status":  "err",
			"errtext": "host refused",
		})
	}()

	done := make(chan error, 1)
	go func() { done <- r.Do("emit", map[string]any{}, nil) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected operation failure")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("operation stalled")
	}
}
