package stack

// AsciiLayer escapes control bytes and 0x7F so the wire stream stays within
// the printable ASCII range. A control byte c (< 0x20) becomes the pair
// {0x7F, c|0x40}; 0x7F itself becomes {0x7F, 0x7F}.
type AsciiLayer struct {
	Base
}

// NewAsciiLayer constructs an ascii-escape layer. It ignores any arg (the
// composer passes one through uniformly for every layer type).
func NewAsciiLayer(_ string) *AsciiLayer {
	return &AsciiLayer{}
}

func (l *AsciiLayer) Encode(payload []byte) error {
	l.Touch()

	out := make([]byte, 0, len(payload)+len(payload)/4+2)
	for _, b := range payload {
		switch {
		case b < 0x20:
			out = append(out, 0x7f, b|0x40)
		case b == 0x7f:
			out = append(out, 0x7f, 0x7f)
		default:
			out = append(out, b)
		}
	}
	return l.ForwardDown(out)
}

func (l *AsciiLayer) Decode(frame []byte) error {
	l.Touch()

	out := make([]byte, 0, len(frame))
	escaped := false
	for _, b := range frame {
		switch {
		case escaped:
			if b == 0x7f {
				out = append(out, 0x7f)
			} else {
				out = append(out, b&0x3f)
			}
			escaped = false
		case b == 0x7f:
			escaped = true
		default:
			out = append(out, b)
		}
	}
	return l.ForwardUp(out)
}

// MTU is halved: any byte may expand to two on the wire.
func (l *AsciiLayer) MTU() int {
	m := l.Base.MTU()
	if m <= 0 {
		return 0
	}
	return clampPositive(m / 2)
}
