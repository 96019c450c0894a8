package adapter

import (
	"testing"
	"time"
)

func TestSubprocess_EchoRoundTrip(t *testing.T) {
	p, err := OpenSubprocess("cat")
	if err != nil {
		t.Fatalf("OpenSubprocess: %v", err)
	}
	defer p.Close()

	decoded := make(chan []byte, 1)
	p.SetUpSink(func(data []byte) error {
		decoded <- data
		return nil
	})

	if err := p.Encode([]byte("hello\n")); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	select {
	case got := <-decoded:
		if string(got) != "hello\n" {
			t.Errorf("got %q, want %q", got, "hello\n")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echoed bytes")
	}
}

func TestSubprocess_CloseStopsWrites(t *testing.T) {
	p, err := OpenSubprocess("cat")
	if err != nil {
		t.Fatalf("OpenSubprocess: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Encode([]byte("after close")); err != nil {
		t.Errorf("Encode after Close should be a silent no-op, got error: %v", err)
	}
}

func TestSubprocess_DisconnectedFiresOnExit(t *testing.T) {
	p, err := OpenSubprocess("true")
	if err != nil {
		t.Fatalf("OpenSubprocess: %v", err)
	}
	defer p.Close()

	select {
	case err := <-p.Disconnected():
		if err == nil {
			t.Error("expected a non-nil disconnect error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Disconnected never fired after the subprocess exited")
	}
}

func TestStdinLayer_EncodeForwardsDown(t *testing.T) {
	l := NewStdinLayer()
	defer l.Close()

	var down []byte
	l.SetDownSink(func(data []byte) error { down = data; return nil })
	if err := l.Encode([]byte("out")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(down) != "out" {
		t.Errorf("got %q, want %q", down, "out")
	}
}
