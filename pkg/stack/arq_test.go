package stack

import (
	"bytes"
	"testing"
)

// arqHarness wires an ArqLayer directly to a fake wire: sent frames land in
// `sent`, and feedReply() delivers a frame back into the layer's Decode as
// if the peer had replied.
type arqHarness struct {
	l    *ArqLayer
	sent [][]byte
	up   []byte
}

func newArqHarness() *arqHarness {
	h := &arqHarness{l: NewArqLayer("")}
	h.l.SetDownSink(func(data []byte) error {
		h.sent = append(h.sent, append([]byte(nil), data...))
		return nil
	})
	h.l.SetUpSink(func(data []byte) error {
		h.up = append([]byte(nil), data...)
		return nil
	})
	return h
}

func TestArqLayer_FirstEncodeSendsResetThenRequest(t *testing.T) {
	h := newArqHarness()
	if err := h.l.Encode([]byte("ping")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(h.sent) != 1 || !bytes.Equal(h.sent[0], []byte{ResetFlag}) {
		t.Fatalf("expected only a reset frame sent before sync completes, got %x", h.sent)
	}

	// Peer acks the reset: a bare ResetFlag reply.
	if err := h.l.Decode([]byte{ResetFlag}); err != nil {
		t.Fatalf("Decode reset ack: %v", err)
	}
	if len(h.sent) != 2 {
		t.Fatalf("expected the queued request to flush after reset ack, got %d frames", len(h.sent))
	}
	if !bytes.Equal(h.sent[1][1:], []byte("ping")) {
		t.Errorf("flushed request body = %q, want %q", h.sent[1][1:], "ping")
	}
}

func TestArqLayer_DecodeMatchingSeqForwardsUp(t *testing.T) {
	h := newArqHarness()
	if err := h.l.Encode([]byte("ping")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := h.l.Decode([]byte{ResetFlag}); err != nil {
		t.Fatalf("Decode reset ack: %v", err)
	}

	reply := append(encodeSeq(1), []byte("pong")...)
	if err := h.l.Decode(reply); err != nil {
		t.Fatalf("Decode reply: %v", err)
	}
	if string(h.up) != "pong" {
		t.Errorf("got %q, want %q", h.up, "pong")
	}
}

func TestArqLayer_DecodeWrongSeqDropped(t *testing.T) {
	h := newArqHarness()
	if err := h.l.Encode([]byte("ping")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := h.l.Decode([]byte{ResetFlag}); err != nil {
		t.Fatalf("Decode reset ack: %v", err)
	}

	wrongReply := append(encodeSeq(99), []byte("stale")...)
	if err := h.l.Decode(wrongReply); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if h.up != nil {
		t.Errorf("expected wrong-seq reply dropped, got forwarded: %q", h.up)
	}
}

func TestArqLayer_TimeoutRetransmits(t *testing.T) {
	h := newArqHarness()
	if err := h.l.Encode([]byte("ping")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	before := len(h.sent)
	h.l.Timeout()
	if len(h.sent) != before+1 {
		t.Fatalf("expected Timeout to resend the outstanding reset, got %d new frames", len(h.sent)-before)
	}
	if !bytes.Equal(h.sent[len(h.sent)-1], []byte{ResetFlag}) {
		t.Errorf("expected retransmitted reset frame, got %x", h.sent[len(h.sent)-1])
	}
}

func TestArqLayer_TimeoutAfterReplyDoesNotRetransmit(t *testing.T) {
	h := newArqHarness()
	if err := h.l.Encode([]byte("ping")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := h.l.Decode([]byte{ResetFlag}); err != nil {
		t.Fatalf("Decode reset ack: %v", err)
	}

	reply := append(encodeSeq(1), []byte("pong")...)
	if err := h.l.Decode(reply); err != nil {
		t.Fatalf("Decode reply: %v", err)
	}
	if h.l.reqOutstanding {
		t.Fatalf("expected reqOutstanding false once the reply arrived")
	}
	if h.l.request != nil {
		t.Fatalf("expected request to be cleared once the reply arrived, got %x", h.l.request)
	}

	before := len(h.sent)
	h.l.Timeout()
	if len(h.sent) != before {
		t.Fatalf("expected Timeout with no outstanding request to send nothing, got %d new frames: %x", len(h.sent)-before, h.sent[before:])
	}
}

func TestArqLayer_MTUShrinksBySequenceHeader(t *testing.T) {
	l := NewArqLayer("")
	raw := NewRawLayer("")
	wrap(l, raw)
	if got := l.MTU(); got != 0 {
		t.Errorf("MTU over unbounded raw: got %d, want 0", got)
	}

	// crc8 advertises 256 with nothing below it; the 4-byte header comes off that.
	bounded := NewArqLayer("")
	wrap(bounded, NewCrc8Layer(""))
	if got := bounded.MTU(); got != 252 {
		t.Errorf("MTU over crc8: got %d, want 252", got)
	}
}
