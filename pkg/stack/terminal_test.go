package stack

import "testing"

func TestTerminalLayer_EncodeWrapsEnvelope(t *testing.T) {
	l := NewTerminalLayer("")
	var down []byte
	l.SetDownSink(func(data []byte) error { down = data; return nil })

	if err := l.Encode([]byte("hello")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := append(append([]byte{0x1b, 0x5f}, "hello"...), 0x1b, 0x5c)
	if string(down) != string(want) {
		t.Errorf("got %q, want %q", down, want)
	}
}

func TestTerminalLayer_DecodeExtractsDebugPayload(t *testing.T) {
	l := NewTerminalLayer("")
	var up []byte
	l.SetUpSink(func(data []byte) error { up = append([]byte(nil), data...); return nil })

	frame := []byte("noise\x1b_hello\x1b\\more noise")
	if err := l.Decode(frame); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(up) != "hello" {
		t.Errorf("got %q, want %q", up, "hello")
	}
}

func TestTerminalLayer_DecodeRoutesNonDebugBytes(t *testing.T) {
	l := NewTerminalLayer("")
	var nonDebug []byte
	l.NonDebugSink = func(data []byte) error { nonDebug = append(nonDebug, data...); return nil }

	if err := l.Decode([]byte("plain text, no envelope")); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(nonDebug) != "plain text, no envelope" {
		t.Errorf("got %q", nonDebug)
	}
}

func TestTerminalLayer_DecodeStripsCRInsideEnvelope(t *testing.T) {
	l := NewTerminalLayer("")
	var up []byte
	l.SetUpSink(func(data []byte) error { up = append([]byte(nil), data...); return nil })

	frame := []byte("\x1b_he\rllo\x1b\\")
	if err := l.Decode(frame); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(up) != "hello" {
		t.Errorf("got %q, want %q", up, "hello")
	}
}

func TestTerminalLayer_DecodeSplitAcrossChunks(t *testing.T) {
	l := NewTerminalLayer("")
	var up []byte
	l.SetUpSink(func(data []byte) error { up = append([]byte(nil), data...); return nil })

	if err := l.Decode([]byte{0x1b}); err != nil {
		t.Fatalf("Decode chunk1: %v", err)
	}
	if err := l.Decode([]byte("_hel")); err != nil {
		t.Fatalf("Decode chunk2: %v", err)
	}
	if err := l.Decode([]byte("lo\x1b\\")); err != nil {
		t.Fatalf("Decode chunk3: %v", err)
	}
	if string(up) != "hello" {
		t.Errorf("got %q, want %q", up, "hello")
	}
}

func TestTerminalLayer_PublishSinkReceivesNonDebugVerbatim(t *testing.T) {
	l := NewPubTerminalLayer("")
	var published, nonDebug []byte
	l.PublishSink = func(data []byte) error { published = append(published, data...); return nil }
	l.NonDebugSink = func(data []byte) error { nonDebug = append(nonDebug, data...); return nil }

	if err := l.Decode([]byte("side channel")); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(published) != "side channel" || string(nonDebug) != "side channel" {
		t.Errorf("published=%q nonDebug=%q", published, nonDebug)
	}
}

func TestTerminalLayer_IgnoreUntilFirstEncode(t *testing.T) {
	l := NewTerminalLayer("")
	l.IgnoreUntilFirstEncode = true
	var up, nonDebug []byte
	l.SetUpSink(func(data []byte) error { up = append([]byte(nil), data...); return nil })
	l.NonDebugSink = func(data []byte) error { nonDebug = append(nonDebug, data...); return nil }

	if err := l.Decode([]byte("\x1b_boot noise\x1b\\")); err != nil {
		t.Fatalf("Decode before Encode: %v", err)
	}
	if len(up) != 0 {
		t.Errorf("expected no decode before first Encode, got %q", up)
	}

	l.SetDownSink(func(data []byte) error { return nil })
	if err := l.Encode([]byte("hi")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := l.Decode([]byte("\x1b_hello\x1b\\")); err != nil {
		t.Fatalf("Decode after Encode: %v", err)
	}
	if string(up) != "hello" {
		t.Errorf("got %q, want %q after first Encode", up, "hello")
	}
}
