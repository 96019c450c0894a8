// Package stack implements the embedded-debugger protocol stack: a
// composable chain of byte-oriented layers between an application and a
// physical transport.
package stack

import (
	"sync"
	"time"
)

// Sink is an external boundary callback: the application-side consumer of
// decoded payloads at the top of a stack, or the transport-side consumer of
// encoded wire bytes at the bottom.
type Sink func(data []byte) error

// Layer is a single node in a protocol stack chain. Encode carries
// application bytes down towards the physical transport; Decode carries
// wire bytes up towards the application. A Layer is owned exclusively by
// the stack it belongs to.
type Layer interface {
	Encode(payload []byte) error
	Decode(frame []byte) error

	// MTU returns the maximum payload this layer accepts in one Encode, or
	// 0 if no limit is known.
	MTU() int

	// Timeout runs maintenance triggered by inactivity; layers that own
	// retransmit state react to it.
	Timeout()

	// LastActivity is the most recent activity timestamp on this layer or
	// anything below it.
	LastActivity() time.Time

	Close() error

	// Wrap makes child this layer's down-neighbour (building top-down:
	// child is the layer built after this one). It does not set child's
	// up-neighbour; the package-level wrap helper links both directions.
	Wrap(child Layer)

	// SetDownSink attaches an external sink below the bottom-most layer.
	SetDownSink(s Sink)
	// SetUpSink attaches an external sink above the top-most layer.
	SetUpSink(s Sink)
}

// Base implements the shared bookkeeping every concrete layer embeds:
// chaining, activity tracking, the default forward-downward behaviour for
// MTU/Timeout, and a no-op Close. Concrete layers provide Encode/Decode
// and, where they add overhead, MTU.
type Base struct {
	mu   sync.Mutex
	down Layer
	up   Layer

	downSink Sink
	upSink   Sink

	lastActivity time.Time
}

// Wrap sets child as this layer's down-neighbour. It does not set child's
// up-neighbour (Go can't reach another layer's embedded Base from here);
// callers use the package-level wrap() helper, which does both halves of
// the link via the upSetter interface.
func (b *Base) Wrap(child Layer) {
	b.mu.Lock()
	b.down = child
	b.mu.Unlock()
}

func (b *Base) SetDownSink(s Sink) {
	b.mu.Lock()
	b.downSink = s
	b.mu.Unlock()
}

func (b *Base) SetUpSink(s Sink) {
	b.mu.Lock()
	b.upSink = s
	b.mu.Unlock()
}

func (b *Base) Touch() {
	b.mu.Lock()
	b.lastActivity = time.Now()
	b.mu.Unlock()
}

func (b *Base) ForwardDown(data []byte) error {
	b.mu.Lock()
	down, sink := b.down, b.downSink
	b.mu.Unlock()

	if down != nil {
		return down.Encode(data)
	}
	if sink != nil {
		return sink(data)
	}
	return nil
}

func (b *Base) ForwardUp(data []byte) error {
	b.mu.Lock()
	up, sink := b.up, b.upSink
	b.mu.Unlock()

	if up != nil {
		return up.Decode(data)
	}
	if sink != nil {
		return sink(data)
	}
	return nil
}

// MTU forwards the neighbour's MTU unchanged; this is the default for a
// layer that adds no overhead of its own.
func (b *Base) MTU() int {
	b.mu.Lock()
	down := b.down
	b.mu.Unlock()
	if down != nil {
		return down.MTU()
	}
	return 0
}

func (b *Base) Timeout() {
	b.mu.Lock()
	down := b.down
	b.mu.Unlock()
	if down != nil {
		down.Timeout()
	}
}

func (b *Base) LastActivity() time.Time {
	b.mu.Lock()
	down, own := b.down, b.lastActivity
	b.mu.Unlock()

	if down == nil {
		return own
	}
	if below := down.LastActivity(); below.After(own) {
		return below
	}
	return own
}

// Close is a no-op by default: most layers hold no resource of their own.
// A layer that owns one (a socket, a file descriptor) overrides this.
// Closing a whole stack means walking every layer and closing each in
// turn (see Stack.Close) rather than relying on cascading propagation —
// that mirrors how the reference bridge tears one down.
func (b *Base) Close() error {
	return nil
}

// wrap links parent above child: child.up = parent, parent.down = child.
// This is the helper Build uses to chain layers instead of poking at
// Base.down/up directly, since Base.Wrap alone can't reach the child's
// embedded Base to set its up pointer (Go has no virtual Base access).
func wrap(parent, child Layer) {
	parent.Wrap(child)
	setUp(child, parent)
}

// upSetter is implemented by every concrete layer via its embedded *Base,
// giving wrap() a way to set the up-pointer on an arbitrary Layer.
type upSetter interface {
	setUpLayer(Layer)
}

func (b *Base) setUpLayer(l Layer) {
	b.mu.Lock()
	b.up = l
	b.mu.Unlock()
}

func setUp(child Layer, parent Layer) {
	if s, ok := child.(upSetter); ok {
		s.setUpLayer(parent)
	}
}

// downLayer exposes this layer's down-neighbour to package-internal chain
// walkers (Stack construction in BuildStack).
func (b *Base) downLayer() Layer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.down
}

// clampPositive clamps m to at least 1. Callers check for an unknown (0)
// MTU before subtracting overhead, so a result <= 0 here means the
// overhead used up the whole MTU.
func clampPositive(m int) int {
	if m <= 0 {
		return 1
	}
	return m
}
