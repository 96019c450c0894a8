package bridge

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/edbgstack/edbgstack/pkg/stack"
)

func echoStack(t *testing.T) *stack.Stack {
	t.Helper()
	st, err := stack.BuildStack("raw")
	if err != nil {
		t.Fatalf("BuildStack: %v", err)
	}
	// raw has no physical layer of its own; loop its outbound bytes
	// straight back in as the "target"'s reply, so Encode(req) always
	// produces a matching Decode(req) on the way back up.
	st.SetDownSink(func(data []byte) error {
		return st.Decode(data)
	})
	return st
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func TestBridge_RequestReply(t *testing.T) {
	st := echoStack(t)
	b := New(st)
	addr := freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := b.Serve(ctx, addr); err != nil {
			t.Logf("Serve: %v", err)
		}
	}()
	waitForListener(t, addr)
	defer b.Close()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer dialCancel()
	c, err := Dial(dialCtx, addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer reqCancel()
	reply, err := c.Request(reqCtx, []byte("hello"))
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if !bytes.Equal(reply, []byte("hello")) {
		t.Errorf("got reply %q, want %q", reply, "hello")
	}
}

func TestBridge_RejectsConcurrentConnection(t *testing.T) {
	st := echoStack(t)
	b := New(st)
	addr := freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Serve(ctx, addr) }()
	waitForListener(t, addr)
	defer b.Close()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer dialCancel()

	first, err := Dial(dialCtx, addr)
	if err != nil {
		t.Fatalf("first Dial: %v", err)
	}
	defer first.Close()

	second, err := Dial(dialCtx, addr)
	if err != nil {
		t.Fatalf("second Dial: %v", err)
	}
	defer second.Close()

	// The bridge closes the second connection outright rather than
	// queuing it; a read on it should observe EOF.
	buf := make([]byte, 1)
	_ = second.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := second.conn.Read(buf); err == nil {
		t.Error("expected the concurrent connection to be closed, got a successful read")
	}
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("listener at %s never came up", addr)
}
