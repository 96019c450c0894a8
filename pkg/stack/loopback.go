package stack

// LoopbackLayer feeds every encoded payload straight back into its own
// Decode before forwarding it down, for stack self-test without a real
// transport underneath.
type LoopbackLayer struct{ Base }

func NewLoopbackLayer(_ string) *LoopbackLayer { return &LoopbackLayer{} }

func (l *LoopbackLayer) Encode(payload []byte) error {
	l.Touch()
	if err := l.Decode(payload); err != nil {
		return err
	}
	return l.ForwardDown(payload)
}

func (l *LoopbackLayer) Decode(frame []byte) error {
	l.Touch()
	return l.ForwardUp(frame)
}
