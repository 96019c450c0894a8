package stack

// RawLayer forwards bytes unchanged in both directions — the default
// terminator when no framing or integrity concern applies below it.
type RawLayer struct{ Base }

func NewRawLayer(_ string) *RawLayer { return &RawLayer{} }

func (l *RawLayer) Encode(payload []byte) error {
	l.Touch()
	return l.ForwardDown(payload)
}

func (l *RawLayer) Decode(frame []byte) error {
	l.Touch()
	return l.ForwardUp(frame)
}
