package adapter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/edbgstack/edbgstack/pkg/stack"
)

func init() {
	stack.RegisterLayerType("stdio", func(arg string) stack.Layer {
		p, err := OpenSubprocess(arg)
		if err != nil {
			log.Error().Err(err).Str("cmd", arg).Msg("stdio: failed to start subprocess, stack will sit idle")
			return stack.NewRawLayer(arg)
		}
		return p
	})
	stack.RegisterLayerType("stdin", func(_ string) stack.Layer {
		return NewStdinLayer()
	})
}

// Subprocess runs a child process and connects to its stdin/stdout, for
// driving a target simulator that speaks the debug protocol on its
// console instead of a real UART.
type Subprocess struct {
	stack.Base

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	writeMu sync.Mutex
	closed  bool

	disconnectOnce sync.Once
	disconnected   chan error
}

// Disconnected fires, at most once, when the subprocess's stdout hits EOF
// or it exits (rather than via Close).
func (p *Subprocess) Disconnected() <-chan error { return p.disconnected }

func (p *Subprocess) notifyDisconnected(err error) {
	p.writeMu.Lock()
	closed := p.closed
	p.writeMu.Unlock()
	if closed {
		return
	}
	p.disconnectOnce.Do(func() { p.disconnected <- err })
}

// OpenSubprocess starts cmdline (run through the shell) and begins
// streaming its stdout into Decode.
func OpenSubprocess(cmdline string) (*Subprocess, error) {
	cmd := exec.Command("sh", "-c", cmdline)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("adapter: subprocess stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("adapter: subprocess stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("adapter: subprocess start %q: %w", cmdline, err)
	}

	p := &Subprocess{cmd: cmd, stdin: stdin, stdout: stdout, disconnected: make(chan error, 1)}
	log.Info().Str("cmd", cmdline).Int("pid", cmd.Process.Pid).Msg("adapter: subprocess started")

	go p.readLoop()
	go p.watch()
	return p, nil
}

func (p *Subprocess) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := p.stdout.Read(buf)
		if n > 0 {
			if derr := p.Decode(append([]byte(nil), buf[:n]...)); derr != nil {
				log.Error().Err(derr).Msg("adapter: subprocess decode error")
			}
		}
		if err != nil {
			if err != io.EOF {
				log.Error().Err(err).Msg("adapter: subprocess read error")
			}
			p.notifyDisconnected(fmt.Errorf("%w: %v", ErrDisconnected, err))
			return
		}
	}
}

func (p *Subprocess) watch() {
	err := p.cmd.Wait()
	if err != nil {
		log.Error().Err(err).Msg("adapter: subprocess terminated")
		p.notifyDisconnected(fmt.Errorf("%w: %v", ErrDisconnected, err))
	} else {
		log.Info().Msg("adapter: subprocess exited")
		p.notifyDisconnected(ErrDisconnected)
	}
}

func (p *Subprocess) Encode(payload []byte) error {
	p.Touch()
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.closed {
		return nil
	}
	_, err := p.stdin.Write(payload)
	return err
}

func (p *Subprocess) Decode(frame []byte) error {
	p.Touch()
	return p.ForwardUp(frame)
}

func (p *Subprocess) MTU() int { return 0 }

func (p *Subprocess) Timeout() {}

func (p *Subprocess) Close() error {
	p.writeMu.Lock()
	p.closed = true
	p.writeMu.Unlock()

	_ = p.stdin.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	return nil
}

// StdinLayer reads this process's own stdin and Decode()s every byte it
// reads up the stack — used to drive a stack interactively from a terminal.
type StdinLayer struct {
	stack.Base

	stop chan struct{}
}

// NewStdinLayer starts reading os.Stdin in the background.
func NewStdinLayer() *StdinLayer {
	l := &StdinLayer{stop: make(chan struct{})}
	go l.readLoop()
	return l
}

func (l *StdinLayer) readLoop() {
	r := bufio.NewReader(os.Stdin)
	buf := make([]byte, 1)
	for {
		select {
		case <-l.stop:
			return
		default:
		}
		n, err := r.Read(buf)
		if n > 0 {
			if err := l.Decode(append([]byte(nil), buf[:n]...)); err != nil {
				log.Error().Err(err).Msg("adapter: stdin decode error")
			}
		}
		if err != nil {
			return
		}
	}
}

func (l *StdinLayer) Encode(payload []byte) error {
	l.Touch()
	return l.ForwardDown(payload)
}

func (l *StdinLayer) Decode(frame []byte) error {
	l.Touch()
	return l.ForwardUp(frame)
}

func (l *StdinLayer) MTU() int { return 0 }

func (l *StdinLayer) Timeout() {}

func (l *StdinLayer) Close() error {
	close(l.stop)
	return nil
}
