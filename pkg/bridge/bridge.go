// Package bridge exposes the top of a protocol stack as a TCP request/reply
// endpoint, plus an optional sibling fan-out endpoint for a pubterm layer's
// non-debug output. It stands in for the reference implementation's ZMQ
// REQ/REP and PUB sockets (no ZMQ binding exists anywhere in the example
// pack; spec.md §6 redefines both as plain TCP).
package bridge

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/edbgstack/edbgstack/pkg/stack"
)

// ErrOperationCancelled is logged when Close is called while a request is
// still outstanding. The connection is then closed without a reply frame,
// so the client sees its read fail; no error value is sent to it.
var ErrOperationCancelled = errors.New("bridge: operation cancelled")

// ErrBusy is logged (and the offending connection closed) when a second
// request arrives while one is already outstanding — the REQ/REP
// discipline of spec.md §4.9 is enforced by erroring rather than queuing.
var ErrBusy = errors.New("bridge: request already outstanding")

// DefaultPort is the bridge's default REQ/REP listen port.
const DefaultPort = 19026

// maxFrameLen bounds a single request/reply frame; well above any
// realistic debug payload, it exists only to reject a corrupt or
// malicious length prefix before allocating a buffer for it.
const maxFrameLen = 16 << 20

// Bridge couples a stack.Stack to the network: one connected client at a
// time sends length-prefixed request frames and receives length-prefixed
// reply frames, one for one.
type Bridge struct {
	st *stack.Stack

	mu      sync.Mutex
	active  net.Conn
	pending chan []byte

	reqListener net.Listener
	pubListener net.Listener
	pub         *pubHub

	closeOnce sync.Once
	done      chan struct{}
}

// New wraps st for network access. st must already be built (e.g. via
// stack.BuildStack) and not yet serving any other caller.
func New(st *stack.Stack) *Bridge {
	b := &Bridge{st: st, done: make(chan struct{})}
	st.SetUpSink(b.onDecode)
	return b
}

// Serve binds addr (":19026" style) and runs the REQ/REP endpoint until
// ctx is cancelled or Close is called. Only one client connection is
// served at a time; additional connections are closed immediately.
func (b *Bridge) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bridge: listen %s: %w", addr, err)
	}
	b.mu.Lock()
	b.reqListener = ln
	b.mu.Unlock()

	log.Info().Str("addr", ln.Addr().String()).Msg("bridge: req/rep endpoint listening")

	go func() {
		select {
		case <-ctx.Done():
			_ = b.Close()
		case <-b.done:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-b.done:
				return nil
			default:
			}
			return fmt.Errorf("bridge: accept: %w", err)
		}

		b.mu.Lock()
		busy := b.active != nil
		if !busy {
			b.active = conn
		}
		b.mu.Unlock()

		if busy {
			log.Warn().Str("remote", conn.RemoteAddr().String()).Msg("bridge: rejecting concurrent client, one REQ/REP peer at a time")
			_ = conn.Close()
			continue
		}

		go b.serveConn(conn)
	}
}

// ServePublish binds addr as the pubterm fan-out companion: every byte
// PublishSink receives from the stack's terminal layer is broadcast
// verbatim to every connected subscriber. Call only when the composed
// stack description uses the pubterm layer variant.
func (b *Bridge) ServePublish(ctx context.Context, addr string) error {
	hub := newPubHub()
	if err := hub.listenAndServe(addr); err != nil {
		return fmt.Errorf("bridge: publish listen %s: %w", addr, err)
	}

	b.mu.Lock()
	b.pub = hub
	b.pubListener = hub.ln
	b.mu.Unlock()

	attachPublish(b.st, hub.publish)
	log.Info().Str("addr", hub.ln.Addr().String()).Msg("bridge: pub endpoint listening")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
		}
		_ = hub.close()
	}()
	return nil
}

func (b *Bridge) serveConn(conn net.Conn) {
	defer func() {
		_ = conn.Close()
		b.mu.Lock()
		b.active = nil
		b.mu.Unlock()
	}()

	for {
		req, err := readFrame(conn)
		if err != nil {
			if err != io.EOF {
				log.Debug().Err(err).Msg("bridge: client read failed")
			}
			return
		}

		replyCh := make(chan []byte, 1)
		b.mu.Lock()
		if b.pending != nil {
			b.mu.Unlock()
			log.Warn().Err(ErrBusy).Msg("bridge: closing connection")
			return
		}
		b.pending = replyCh
		b.mu.Unlock()

		if err := b.st.Encode(req); err != nil {
			log.Error().Err(err).Msg("bridge: stack encode failed")
			b.mu.Lock()
			b.pending = nil
			b.mu.Unlock()
			return
		}

		select {
		case reply := <-replyCh:
			if err := writeFrame(conn, reply); err != nil {
				log.Debug().Err(err).Msg("bridge: client write failed")
				return
			}
		case <-b.done:
			log.Debug().Err(ErrOperationCancelled).Msg("bridge: shutting down with a request outstanding")
			return
		}
	}
}

// onDecode is wired as the stack's up sink: it completes whichever
// request is currently outstanding. A decode with nothing pending (the
// target sent unsolicited bytes, or replied twice) is logged and dropped.
func (b *Bridge) onDecode(data []byte) error {
	b.mu.Lock()
	ch := b.pending
	b.pending = nil
	b.mu.Unlock()

	if ch == nil {
		log.Warn().Int("len", len(data)).Msg("bridge: decoded reply with no outstanding request, dropped")
		return nil
	}
	ch <- append([]byte(nil), data...)
	return nil
}

// Close unbinds both sockets, cancels any connection's outstanding
// request, and tears down the stack.
func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)

		b.mu.Lock()
		if b.reqListener != nil {
			_ = b.reqListener.Close()
		}
		if b.active != nil {
			_ = b.active.Close()
		}
		pub := b.pub
		b.mu.Unlock()

		if pub != nil {
			_ = pub.close()
		}
		err = b.st.Close()
	})
	return err
}

func attachPublish(st *stack.Stack, sink stack.Sink) {
	st.Walk(func(l stack.Layer) {
		if t, ok := l.(*stack.TerminalLayer); ok {
			t.PublishSink = sink
		}
	})
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameLen {
		return nil, fmt.Errorf("bridge: frame length %d exceeds maximum", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeFrame(w io.Writer, data []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}
