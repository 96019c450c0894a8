package stack

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// ArqLayer implements the half-duplex request/reply ARQ discipline: every
// encoded request is seq-numbered and held for retransmit until its reply's
// matching seq comes back; Timeout() (driven by the stack's scheduler, not a
// timer owned by this layer) resends the outstanding request or reset.
type ArqLayer struct {
	Base

	sendMu sync.Mutex // serializes frames hitting the layer below, like libstored's asyncio.Lock

	reqOutstanding bool
	request        [][]byte

	needReset bool
	syncing   bool

	decodeSeq      uint32
	decodeSeqStart uint32
	encodeSeq      uint32
	encodeSeqStart uint32
}

// NewArqLayer constructs an ARQ layer. arg is unused; the reset handshake
// runs lazily on the first Encode.
func NewArqLayer(_ string) *ArqLayer {
	return &ArqLayer{needReset: true, decodeSeq: 1, decodeSeqStart: 1}
}

func (l *ArqLayer) sendFrame(data []byte) error {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()
	return l.ForwardDown(data)
}

func (l *ArqLayer) sync() error {
	if l.syncing {
		return nil
	}
	l.syncing = true
	l.encodeSeq = 0
	return l.sendFrame([]byte{ResetFlag})
}

// Reset forces the next Encode to re-run the reset handshake before sending.
func (l *ArqLayer) Reset() {
	l.needReset = true
	l.request = nil
}

func (l *ArqLayer) Encode(payload []byte) error {
	l.Touch()

	if l.needReset {
		l.needReset = false
		if err := l.sync(); err != nil {
			return err
		}
	}

	if !l.reqOutstanding {
		l.request = nil
		l.encodeSeqStart = l.encodeSeq
	}
	l.reqOutstanding = true
	l.encodeSeq = nextSeq(l.encodeSeq)
	if l.encodeSeq == l.encodeSeqStart {
		return fmt.Errorf("arq: %w", ErrRequestTooLarge)
	}

	frame := append(encodeSeq(l.encodeSeq), payload...)
	l.request = append(l.request, frame)

	if l.syncing {
		return nil
	}
	return l.sendFrame(frame)
}

func (l *ArqLayer) Decode(data []byte) error {
	l.Touch()
	if len(data) == 0 {
		return nil
	}

	seq, msg, err := decodeSeq(data)
	if err != nil {
		return err
	}

	// The bare reset ack that completes the sync handshake below is not a
	// reply to the queued request: l.request still needs to reach the wire
	// once syncing flips off at the end of this function, so it must not
	// be mistaken for an answered request here.
	resetAck := l.syncing && data[0] == ResetFlag

	if data[0]&ResetFlag != 0 {
		l.decodeSeq = seq
	}

	if l.reqOutstanding && !resetAck {
		// A reply to the outstanding request is arriving; this is its
		// first part. The request is answered, so there is nothing left
		// to retransmit.
		l.reqOutstanding = false
		l.decodeSeqStart = l.decodeSeq
		l.request = nil
	}

	if seq == l.decodeSeq {
		l.decodeSeq = nextSeq(l.decodeSeq)
		if len(msg) > 0 {
			if err := l.ForwardUp(msg); err != nil {
				return err
			}
		}
	} else {
		log.Debug().Uint32("got", seq).Uint32("want", l.decodeSeq).Msg("arq: unexpected seq, dropped")
	}

	if l.syncing && data[0] == ResetFlag {
		l.syncing = false
		for _, r := range l.request {
			if err := l.sendFrame(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// retransmit resends the outstanding request (or the reset frame, if the
// handshake hasn't completed yet). A timeout mid-reply also rewinds
// decodeSeq back to the start of the request, since the peer will resend
// its reply from the beginning. When no request is outstanding and the
// reset handshake isn't in flight, there is nothing to retransmit: the
// scheduler fires on every idle tick regardless of ARQ state, so this
// layer must gate itself (spec §4.11).
func (l *ArqLayer) retransmit() error {
	if !l.reqOutstanding && !l.syncing {
		return nil
	}

	log.Debug().Msg("arq: retransmit")

	if !l.reqOutstanding {
		l.decodeSeq = l.decodeSeqStart
	}

	if l.syncing {
		return l.sendFrame([]byte{ResetFlag})
	}
	for _, r := range l.request {
		if err := l.sendFrame(r); err != nil {
			return err
		}
	}
	return nil
}

// Timeout owns retransmission itself instead of propagating further down —
// the layer below has nothing of its own to retry.
func (l *ArqLayer) Timeout() {
	l.Touch()
	if err := l.retransmit(); err != nil {
		log.Debug().Err(err).Msg("arq: retransmit failed")
	}
}

// MTU shrinks by the worst-case 4-byte sequence header.
func (l *ArqLayer) MTU() int {
	m := l.Base.MTU()
	if m <= 0 {
		return 0
	}
	return clampPositive(m - 4)
}
