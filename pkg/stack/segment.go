package stack

import "strconv"

// Continuation/end markers appended to every wire-level segment.
const (
	segContinue = 'C'
	segEnd      = 'E'
)

// SegmentationLayer splits an Encode payload larger than the MTU below it
// into multiple wire frames, and reassembles Decode frames carrying the
// same markers back into one payload. Every frame this layer sends down
// ends in one marker byte, which counts against the MTU: a chunk carries at
// most MTU-1 payload bytes.
type SegmentationLayer struct {
	Base

	// MTUOverride, when > 0, is used instead of the layer below's MTU to
	// size outgoing chunks.
	MTUOverride int

	buf []byte
}

// NewSegmentationLayer constructs a segmentation layer. arg, if non-empty,
// is parsed as the chunk size and stored in MTUOverride (mirrors the
// reference SegmentationLayer's int(mtu) constructor argument); a missing
// or unparsable arg leaves MTUOverride at 0, falling back to the layer
// below's MTU.
func NewSegmentationLayer(arg string) *SegmentationLayer {
	l := &SegmentationLayer{}
	if arg != "" {
		if mtu, err := strconv.Atoi(arg); err == nil {
			l.MTUOverride = mtu
		}
	}
	return l
}

func (l *SegmentationLayer) effectiveMTU() int {
	if l.MTUOverride > 0 {
		return l.MTUOverride
	}
	return l.Base.MTU()
}

func (l *SegmentationLayer) Encode(payload []byte) error {
	l.Touch()

	mtu := l.effectiveMTU()
	if mtu <= 0 {
		frame := append(append([]byte(nil), payload...), segEnd)
		return l.ForwardDown(frame)
	}

	chunkSize := mtu - 1
	if chunkSize < 1 {
		chunkSize = 1
	}

	for off := 0; off < len(payload); off += chunkSize {
		end := off + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		marker := byte(segContinue)
		if end >= len(payload) {
			marker = segEnd
		}
		frame := make([]byte, 0, end-off+1)
		frame = append(frame, payload[off:end]...)
		frame = append(frame, marker)
		if err := l.ForwardDown(frame); err != nil {
			return err
		}
	}
	return nil
}

func (l *SegmentationLayer) Decode(frame []byte) error {
	l.Touch()
	if len(frame) == 0 {
		return nil
	}

	marker := frame[len(frame)-1]
	body := frame[:len(frame)-1]
	l.buf = append(l.buf, body...)

	if marker != segEnd {
		return nil
	}

	msg := l.buf
	l.buf = nil
	return l.ForwardUp(msg)
}

// MTU is unbounded: this layer fragments payloads of any size.
func (l *SegmentationLayer) MTU() int {
	return 0
}

// Timeout discards any partial reassembly before propagating: a retransmit
// from the layer below will resend the segment from its start, so a
// half-assembled buffer here would only corrupt the next message.
func (l *SegmentationLayer) Timeout() {
	l.buf = nil
	l.Base.Timeout()
}
