// Package adapter provides the physical-layer terminators of a protocol
// stack: the bottom-most Layer that actually moves bytes across a serial
// port, a subprocess's stdio, or this process's own stdio, instead of
// handing them to another layer.
package adapter

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/edbgstack/edbgstack/pkg/stack"
)

func init() {
	stack.RegisterLayerType("serial", func(arg string) stack.Layer {
		a, err := OpenSerial(arg, DropWindow)
		if err != nil {
			log.Error().Err(err).Str("port", arg).Msg("serial: failed to open, stack will sit idle")
			return stack.NewRawLayer(arg)
		}
		return a
	})
}

// DefaultDropWindow is how long inbound bytes are discarded after opening
// the port, to swallow UART reset/boot noise — libstored's serial
// transport calls this drop_s.
const DefaultDropWindow = 1 * time.Second

// DropWindow is the boot-noise window new serial layers are opened with.
// It defaults to DefaultDropWindow; a daemon entrypoint may override it
// (e.g. from a -drop flag) before building a stack that uses "serial".
var DropWindow = DefaultDropWindow

// Serial is a stack.Layer that reads and writes a real serial port. During
// DropWindow after opening, inbound bytes are discarded and outbound bytes
// are buffered instead of written; once the window elapses, the buffered
// bytes are flushed as a single write and normal operation resumes.
type Serial struct {
	stack.Base

	port serial.Port

	mu         sync.Mutex
	dropUntil  time.Time
	dropping   bool
	encodeBuf  []byte
	closed     bool
	stopReader chan struct{}

	disconnectOnce sync.Once
	disconnected   chan error
}

// Disconnected fires, at most once, when the serial port drops
// unexpectedly (a read error other than a deliberate Close).
func (s *Serial) Disconnected() <-chan error { return s.disconnected }

func (s *Serial) notifyDisconnected(err error) {
	s.disconnectOnce.Do(func() { s.disconnected <- err })
}

// OpenSerial opens portPath at 115200 baud 8N1 and starts its reader
// goroutine. drop is the boot-noise window (0 disables it).
func OpenSerial(portPath string, drop time.Duration) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portPath, mode)
	if err != nil {
		return nil, fmt.Errorf("adapter: open serial port %s: %w", portPath, err)
	}

	s := &Serial{port: port, stopReader: make(chan struct{}), disconnected: make(chan error, 1)}
	if drop > 0 {
		s.dropping = true
		s.dropUntil = time.Now().Add(drop)
	}

	log.Info().Str("port", portPath).Dur("drop_window", drop).Msg("adapter: serial port opened")

	go s.readLoop()
	return s, nil
}

func (s *Serial) readLoop() {
	buf := make([]byte, 4096)
	for {
		select {
		case <-s.stopReader:
			return
		default:
		}

		n, err := s.port.Read(buf)
		if err != nil {
			select {
			case <-s.stopReader:
				return
			default:
			}
			log.Error().Err(err).Msg("adapter: serial read error")
			s.notifyDisconnected(fmt.Errorf("%w: %v", ErrDisconnected, err))
			return
		}
		if n == 0 {
			continue
		}
		if err := s.Decode(append([]byte(nil), buf[:n]...)); err != nil {
			log.Error().Err(err).Msg("adapter: serial decode error")
		}
	}
}

func (s *Serial) Encode(payload []byte) error {
	s.Touch()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		log.Debug().Msg("adapter: serial closed, dropping outbound data")
		return nil
	}
	if s.dropping {
		s.checkDropExpiredLocked()
	}
	if s.dropping {
		s.encodeBuf = append(s.encodeBuf, payload...)
		return nil
	}
	_, err := s.port.Write(payload)
	return err
}

func (s *Serial) Decode(frame []byte) error {
	s.Touch()
	s.mu.Lock()
	if s.dropping {
		s.checkDropExpiredLocked()
		if s.dropping {
			s.mu.Unlock()
			return nil
		}
	}
	s.mu.Unlock()
	return s.ForwardUp(frame)
}

// checkDropExpiredLocked ends the drop window once it has elapsed, flushing
// anything buffered during it. Caller holds s.mu.
func (s *Serial) checkDropExpiredLocked() {
	if time.Now().Before(s.dropUntil) {
		return
	}
	s.dropping = false
	if len(s.encodeBuf) > 0 {
		buffered := s.encodeBuf
		s.encodeBuf = nil
		go func() {
			if _, err := s.port.Write(buffered); err != nil {
				log.Error().Err(err).Msg("adapter: serial flush of buffered data failed")
			}
		}()
	}
}

func (s *Serial) MTU() int { return 0 }

func (s *Serial) Timeout() {}

func (s *Serial) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	close(s.stopReader)
	return s.port.Close()
}
