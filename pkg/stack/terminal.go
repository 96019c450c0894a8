package stack

import "bytes"

// APC/ST ANSI escape markers delimiting a debug payload on the wire.
var (
	termStart = []byte{0x1b, 0x5f} // ESC _
	termEnd   = []byte{0x1b, 0x5c} // ESC \
)

// TerminalLayer wraps debug payloads in an APC...ST envelope. Bytes decoded
// outside an envelope are routed to NonDebugSink unchanged, except that a
// \r inside an extracted debug payload is stripped (Windows CRLF
// injection). IgnoreUntilFirstEncode discards all inbound bytes (still
// routed to NonDebugSink) until the first local Encode call, to swallow
// boot noise ahead of the first handshake.
type TerminalLayer struct {
	Base

	// NonDebugSink receives bytes decoded outside an APC...ST envelope.
	NonDebugSink Sink
	// PublishSink, when set (pubterm variant), also receives every
	// non-debug byte, verbatim, independent of NonDebugSink.
	PublishSink Sink

	IgnoreUntilFirstEncode bool

	buf         bytes.Buffer
	inMsg       bool
	encodedOnce bool
}

// NewTerminalLayer constructs a terminal framing layer. arg is unused; wire
// NonDebugSink/PublishSink after construction. IgnoreUntilFirstEncode
// defaults to false; set it explicitly to suppress boot noise ahead of the
// first handshake (spec.md §4.3/§9 — this is an opt-in, not the wire
// protocol's default behaviour).
func NewTerminalLayer(_ string) *TerminalLayer {
	return &TerminalLayer{}
}

// NewPubTerminalLayer is the pubterm variant: identical framing, plus every
// non-debug byte is also published to PublishSink.
func NewPubTerminalLayer(arg string) *TerminalLayer {
	return NewTerminalLayer(arg)
}

func (l *TerminalLayer) Encode(payload []byte) error {
	l.Touch()
	l.encodedOnce = true

	framed := make([]byte, 0, len(payload)+len(termStart)+len(termEnd))
	framed = append(framed, termStart...)
	framed = append(framed, payload...)
	framed = append(framed, termEnd...)
	return l.ForwardDown(framed)
}

// Inject sends raw bytes down the stack without the APC/ST envelope —
// used to pass non-debug text straight through on the encode side.
func (l *TerminalLayer) Inject(data []byte) error {
	l.Touch()
	return l.ForwardDown(data)
}

func (l *TerminalLayer) nonDebug(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if l.PublishSink != nil {
		if err := l.PublishSink(data); err != nil {
			return err
		}
	}
	if l.NonDebugSink != nil {
		return l.NonDebugSink(data)
	}
	return nil
}

func (l *TerminalLayer) Decode(frame []byte) error {
	if len(frame) == 0 {
		return nil
	}
	l.Touch()

	if l.IgnoreUntilFirstEncode && !l.encodedOnce && !l.inMsg {
		return l.nonDebug(frame)
	}

	l.buf.Write(frame)

	// A chunk ending exactly on the first byte of a two-byte marker:
	// retain everything and wait for the rest to arrive.
	if tail := l.buf.Bytes(); len(tail) > 0 && tail[len(tail)-1] == termStart[0] {
		return nil
	}

	for {
		data := l.buf.Bytes()
		if !l.inMsg {
			idx := bytes.Index(data, termStart)
			if idx < 0 {
				// No start marker: everything is non-debug.
				if err := l.nonDebug(data); err != nil {
					return err
				}
				l.buf.Reset()
				return nil
			}
			if idx > 0 {
				if err := l.nonDebug(data[:idx]); err != nil {
					return err
				}
			}
			rest := append([]byte(nil), data[idx+len(termStart):]...)
			l.buf.Reset()
			l.buf.Write(rest)
			l.inMsg = true
			continue
		}

		data = l.buf.Bytes()
		idx := bytes.Index(data, termEnd)
		if idx < 0 {
			// No end marker yet: wait for more data.
			return nil
		}

		msg := bytes.ReplaceAll(data[:idx], []byte{'\r'}, nil)
		rest := append([]byte(nil), data[idx+len(termEnd):]...)
		l.buf.Reset()
		l.buf.Write(rest)
		l.inMsg = false

		if err := l.ForwardUp(msg); err != nil {
			return err
		}
	}
}

// MTU shrinks by the size of the two markers (4 bytes total).
func (l *TerminalLayer) MTU() int {
	m := l.Base.MTU()
	if m <= 0 {
		return 0
	}
	return clampPositive(m - len(termStart) - len(termEnd))
}
