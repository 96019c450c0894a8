package stack

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type fakeTimeoutLayer struct {
	Base
	fired       atomic.Int32
	lastTouched time.Time
}

func (l *fakeTimeoutLayer) Encode([]byte) error { return nil }
func (l *fakeTimeoutLayer) Decode([]byte) error { return nil }
func (l *fakeTimeoutLayer) LastActivity() time.Time {
	return l.lastTouched
}
func (l *fakeTimeoutLayer) Timeout() {
	l.fired.Add(1)
}

func TestScheduler_FiresAfterIdleTimeout(t *testing.T) {
	l := &fakeTimeoutLayer{lastTouched: time.Now()}
	sch := NewScheduler(l, 20*time.Millisecond, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sch.Run(ctx)

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if l.fired.Load() > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("scheduler never fired Timeout() after the idle window elapsed")
}

func TestScheduler_DoesNotFireWhileActive(t *testing.T) {
	l := &fakeTimeoutLayer{lastTouched: time.Now()}
	sch := NewScheduler(l, 50*time.Millisecond, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sch.Run(ctx)

	stop := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(stop) {
		l.lastTouched = time.Now()
		time.Sleep(5 * time.Millisecond)
	}
	if l.fired.Load() != 0 {
		t.Errorf("expected no Timeout() fire while continually active, fired %d times", l.fired.Load())
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	l := &fakeTimeoutLayer{lastTouched: time.Now()}
	sch := NewScheduler(l, time.Hour, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sch.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
