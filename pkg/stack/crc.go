package stack

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/rs/zerolog/log"
)

// crc8 computes a non-reflected CRC-8 with polynomial 0xA6 (libstored's
// crcmod parameter 0x1A6, which folds in the implicit leading coefficient)
// and init 0xFF, no output XOR. No ecosystem CRC library carries this
// polynomial, so the bit engine is hand-rolled.
func crc8(data []byte) byte {
	const poly = 0xA6
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// crc16 computes a non-reflected CRC-16 with polynomial 0xBAAD (crcmod
// parameter 0x1BAAD) and init 0xFFFF, no output XOR.
func crc16(data []byte) uint16 {
	const poly = 0xBAAD
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// Crc8Layer appends/checks a trailing CRC-8 byte.
type Crc8Layer struct{ Base }

func NewCrc8Layer(_ string) *Crc8Layer { return &Crc8Layer{} }

func (l *Crc8Layer) Encode(payload []byte) error {
	l.Touch()
	frame := append(append([]byte(nil), payload...), crc8(payload))
	return l.ForwardDown(frame)
}

func (l *Crc8Layer) Decode(frame []byte) error {
	l.Touch()
	if len(frame) == 0 {
		return nil
	}
	body, trailer := frame[:len(frame)-1], frame[len(frame)-1]
	if crc8(body) != trailer {
		return nil
	}
	log.Debug().Bytes("frame", frame).Msg("crc8: valid")
	return l.ForwardUp(body)
}

// MTU is capped at 256 bytes to keep the 2-bit error detection guarantee.
func (l *Crc8Layer) MTU() int {
	m := l.Base.MTU()
	if m <= 0 {
		return 256
	}
	if m-1 > 256 {
		return 256
	}
	return clampPositive(m - 1)
}

// Crc16Layer appends/checks a trailing big-endian CRC-16.
type Crc16Layer struct{ Base }

func NewCrc16Layer(_ string) *Crc16Layer { return &Crc16Layer{} }

func (l *Crc16Layer) Encode(payload []byte) error {
	l.Touch()
	frame := append(append([]byte(nil), payload...), 0, 0)
	binary.BigEndian.PutUint16(frame[len(payload):], crc16(payload))
	return l.ForwardDown(frame)
}

func (l *Crc16Layer) Decode(frame []byte) error {
	l.Touch()
	if len(frame) < 2 {
		return nil
	}
	body := frame[:len(frame)-2]
	trailer := binary.BigEndian.Uint16(frame[len(frame)-2:])
	if crc16(body) != trailer {
		return nil
	}
	log.Debug().Bytes("frame", frame).Msg("crc16: valid")
	return l.ForwardUp(body)
}

// MTU is capped at 256 bytes to keep the 4-bit error detection guarantee.
func (l *Crc16Layer) MTU() int {
	m := l.Base.MTU()
	if m <= 0 {
		return 256
	}
	if m-2 > 256 {
		return 256
	}
	return clampPositive(m - 2)
}

// Crc32Layer appends/checks a trailing big-endian CRC-32 (standard IEEE
// polynomial, reflected, matching stdlib hash/crc32's table bit-for-bit —
// reimplementing it by hand would only reintroduce bugs stdlib avoids).
type Crc32Layer struct{ Base }

func NewCrc32Layer(_ string) *Crc32Layer { return &Crc32Layer{} }

func (l *Crc32Layer) Encode(payload []byte) error {
	l.Touch()
	frame := append(append([]byte(nil), payload...), 0, 0, 0, 0)
	binary.BigEndian.PutUint32(frame[len(payload):], crc32.ChecksumIEEE(payload))
	return l.ForwardDown(frame)
}

func (l *Crc32Layer) Decode(frame []byte) error {
	l.Touch()
	if len(frame) < 4 {
		return nil
	}
	body := frame[:len(frame)-4]
	trailer := binary.BigEndian.Uint32(frame[len(frame)-4:])
	if crc32.ChecksumIEEE(body) != trailer {
		return nil
	}
	log.Debug().Bytes("frame", frame).Msg("crc32: valid")
	return l.ForwardUp(body)
}

// MTU shrinks by the 4-byte trailer, uncapped otherwise.
func (l *Crc32Layer) MTU() int {
	m := l.Base.MTU()
	if m <= 0 {
		return 0
	}
	return clampPositive(m - 4)
}
