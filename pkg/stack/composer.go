package stack

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Constructor builds a layer from its textual argument (empty string if the
// description gave none).
type Constructor func(arg string) Layer

var registry = map[string]Constructor{
	"ascii":   func(a string) Layer { return NewAsciiLayer(a) },
	"term":    func(a string) Layer { return NewTerminalLayer(a) },
	"pubterm": func(a string) Layer { return NewPubTerminalLayer(a) },
	"segment": func(a string) Layer { return NewSegmentationLayer(a) },
	"arq":     func(a string) Layer { return NewArqLayer(a) },
	"crc8":    func(a string) Layer { return NewCrc8Layer(a) },
	"crc16":   func(a string) Layer { return NewCrc16Layer(a) },
	"crc32":   func(a string) Layer { return NewCrc32Layer(a) },
	"loop":    func(a string) Layer { return NewLoopbackLayer(a) },
	"raw":     func(a string) Layer { return NewRawLayer(a) },
}

// RegisterLayerType adds a new layer type to the registry, or replaces an
// existing one of the same name.
func RegisterLayerType(name string, ctor Constructor) {
	registry[name] = ctor
}

// Build parses a stack description — a comma-separated list of
// name(=arg)? terms, application layer first, physical layer last — and
// returns the fully wired chain (its topmost Layer). The description must
// name at least one layer.
//
// Grammar: name(=arg)? (, name(=arg)?)*
func Build(description string) (Layer, error) {
	terms := strings.Split(description, ",")

	var built []Layer
	for _, term := range terms {
		name, arg, _ := strings.Cut(term, "=")
		if name == "" {
			return nil, fmt.Errorf("%w: in %q", ErrMissingLayerType, description)
		}

		ctor, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLayerType, name)
		}
		layer := ctor(arg)

		if len(built) > 0 {
			wrap(built[len(built)-1], layer)
		}
		built = append(built, layer)
	}

	if len(built) == 0 {
		return nil, fmt.Errorf("stack: empty stack description")
	}
	return built[0], nil
}

// Stack is a composed chain of layers treated as a single unit: Encode
// enters at the application-facing top, Decode enters at the
// physical-facing bottom, and a Stack can itself be nested inside another
// stack description (it satisfies Layer). Timeout always starts at the top
// layer and rides the normal propagate-downward chain from there.
type Stack struct {
	Base
	layers []Layer // top (index 0, application) to bottom (physical)

	encodeCount, decodeCount atomic.Uint64
	encodeBytes, decodeBytes atomic.Uint64
}

// Stats is a point-in-time snapshot of a Stack's request/reply traffic,
// exposed by the admin HTTP API.
type Stats struct {
	EncodeCount uint64 `json:"encode_count"`
	DecodeCount uint64 `json:"decode_count"`
	EncodeBytes uint64 `json:"encode_bytes"`
	DecodeBytes uint64 `json:"decode_bytes"`
}

// Stats returns a snapshot of this stack's Encode/Decode traffic counters.
func (s *Stack) Stats() Stats {
	return Stats{
		EncodeCount: s.encodeCount.Load(),
		DecodeCount: s.decodeCount.Load(),
		EncodeBytes: s.encodeBytes.Load(),
		DecodeBytes: s.decodeBytes.Load(),
	}
}

// NewStack wires layers (already built top-down, e.g. by Build) into a
// Stack. An empty slice yields a single pass-through raw layer.
func NewStack(layers []Layer) *Stack {
	if len(layers) == 0 {
		layers = []Layer{NewRawLayer("")}
	}
	s := &Stack{layers: layers}

	bottom := layers[len(layers)-1]
	bottom.SetDownSink(func(data []byte) error { return s.Base.ForwardDown(data) })
	top := layers[0]
	top.SetUpSink(func(data []byte) error { return s.Base.ForwardUp(data) })

	return s
}

// BuildStack parses description with Build and wraps the result in a Stack.
func BuildStack(description string) (*Stack, error) {
	top, err := Build(description)
	if err != nil {
		return nil, err
	}
	var layers []Layer
	for l := top; l != nil; {
		layers = append(layers, l)
		d, ok := l.(downer)
		if !ok {
			break
		}
		l = d.downLayer()
	}
	return NewStack(layers), nil
}

// downer exposes a layer's down-neighbour to package-internal helpers that
// need to walk the chain (Stack construction in BuildStack).
type downer interface {
	downLayer() Layer
}

func (s *Stack) Encode(payload []byte) error {
	s.Touch()
	s.encodeCount.Add(1)
	s.encodeBytes.Add(uint64(len(payload)))
	return s.layers[0].Encode(payload)
}

func (s *Stack) Decode(frame []byte) error {
	s.Touch()
	s.decodeCount.Add(1)
	s.decodeBytes.Add(uint64(len(frame)))
	return s.layers[len(s.layers)-1].Decode(frame)
}

func (s *Stack) MTU() int {
	return s.layers[0].MTU()
}

// Timeout starts maintenance at the application-facing layer, same as
// every other layer's Timeout propagating towards the physical side — the
// stack boundary is transparent to it.
func (s *Stack) Timeout() {
	s.layers[0].Timeout()
}

func (s *Stack) LastActivity() time.Time {
	return s.layers[0].LastActivity()
}

// Close walks every layer in the stack and closes each in turn, collecting
// the first error encountered. Closing the whole chain this way (rather
// than relying on cascading propagation) mirrors the reference bridge's
// shutdown, since most layers' Close is a no-op and only the ones holding
// a real resource (an adapter, a socket) do anything.
func (s *Stack) Close() error {
	var first error
	s.Walk(func(l Layer) {
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	})
	return first
}

// Walk calls fn for every concrete layer in the stack, top to bottom,
// flattening any nested Stack values as it goes.
func (s *Stack) Walk(fn func(Layer)) {
	for _, l := range s.layers {
		if nested, ok := l.(*Stack); ok {
			nested.Walk(fn)
			continue
		}
		fn(l)
	}
}
