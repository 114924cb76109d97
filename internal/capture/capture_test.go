package capture_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/encore/internal/capture"
)

// fakeSource hands its emit callback back to the test so fragments can be
// pushed on demand.
type fakeSource struct {
	openErr  error
	closeErr error
	emit     func([]byte)
	opened   int
	closed   int
}

func (s *fakeSource) Open(ctx context.Context, emit func([]byte)) (capture.Handle, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opened++
	s.emit = emit
	return &fakeHandle{src: s}, nil
}

type fakeHandle struct{ src *fakeSource }

func (h *fakeHandle) ContentType() string { return "audio/webm" }
func (h *fakeHandle) Close() error {
	h.src.closed++
	return h.src.closeErr
}

// manualTicker delivers ticks only when the test sends them. The channel is
// unbuffered, so a send returns once the capture goroutine has received it.
type manualTicker struct {
	ch      chan time.Time
	stopped bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.stopped = true }

func newTestCapture(src capture.Source) (*capture.Capture, *manualTicker) {
	mt := &manualTicker{ch: make(chan time.Time)}
	c := capture.New(src)
	c.NewTicker = func(time.Duration) capture.Ticker { return mt }
	return c, mt
}

func TestStartStopConcatenatesFragments(t *testing.T) {
	src := &fakeSource{}
	c, _ := newTestCapture(src)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !c.Active() {
		t.Fatal("expected capture to be active after Start")
	}
	src.emit([]byte("ab"))
	src.emit([]byte("cd"))
	src.emit(nil)
	src.emit([]byte("e"))

	a, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !bytes.Equal(a.Data, []byte("abcde")) {
		t.Errorf("artifact data = %q, want %q", a.Data, "abcde")
	}
	if a.ContentType != "audio/webm" {
		t.Errorf("content type = %q, want audio/webm", a.ContentType)
	}
	if c.Active() {
		t.Error("expected capture to be inactive after Stop")
	}
	if src.closed != 1 {
		t.Errorf("handle closed %d times, want 1", src.closed)
	}
	if c.Artifact() != a {
		t.Error("Artifact() should return the artifact from Stop")
	}
}

func TestStartTwiceReturnsAlreadyActive(t *testing.T) {
	c, _ := newTestCapture(&fakeSource{})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Reset()

	if err := c.Start(context.Background()); !errors.Is(err, capture.ErrAlreadyActive) {
		t.Errorf("second Start error = %v, want ErrAlreadyActive", err)
	}
}

func TestStopWhileInactiveReturnsNotActive(t *testing.T) {
	c, _ := newTestCapture(&fakeSource{})
	if _, err := c.Stop(); !errors.Is(err, capture.ErrNotActive) {
		t.Errorf("Stop error = %v, want ErrNotActive", err)
	}
}

func TestOpenFailureIsPermissionDenied(t *testing.T) {
	src := &fakeSource{openErr: errors.New("device busy")}
	c, _ := newTestCapture(src)

	err := c.Start(context.Background())
	if !errors.Is(err, capture.ErrPermissionDenied) {
		t.Fatalf("Start error = %v, want ErrPermissionDenied", err)
	}
	if c.Active() {
		t.Error("capture should stay inactive after a refused Start")
	}
}

func TestStopReleasesHandleWhenCloseFails(t *testing.T) {
	src := &fakeSource{closeErr: errors.New("io error")}
	c, mt := newTestCapture(src)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := c.Stop(); err == nil {
		t.Fatal("expected Stop to report the close failure")
	}
	if c.Active() {
		t.Error("capture should be inactive after a failed Stop")
	}
	if !mt.stopped {
		t.Error("ticker should be stopped after a failed Stop")
	}
	// A fresh take can begin, proving the device was released.
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start after failed Stop: %v", err)
	}
	c.Reset()
}

func TestResetDiscardsInProgressTake(t *testing.T) {
	src := &fakeSource{}
	c, mt := newTestCapture(src)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mt.ch <- time.Now()
	src.emit([]byte("xyz"))

	if err := c.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if c.Active() || c.Elapsed() != 0 || c.Artifact() != nil {
		t.Errorf("after Reset: active=%v elapsed=%d artifact=%v", c.Active(), c.Elapsed(), c.Artifact())
	}
	if src.closed != 1 {
		t.Errorf("handle closed %d times, want 1", src.closed)
	}
	if !mt.stopped {
		t.Error("ticker should be stopped by Reset")
	}

	// Late fragments from the released handle are dropped.
	src.emit([]byte("late"))
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	a, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if a.Size() != 0 {
		t.Errorf("artifact size = %d, want 0", a.Size())
	}
}

func TestElapsedSurvivesStop(t *testing.T) {
	c, mt := newTestCapture(&fakeSource{})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 5; i++ {
		mt.ch <- time.Now()
	}
	if _, err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := c.Elapsed(); got != 5 {
		t.Errorf("Elapsed after Stop = %d, want 5", got)
	}
}

// Feature: encore, Property 1: elapsed seconds equal delivered ticks
func TestElapsedMatchesTicks(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c, mt := newTestCapture(&fakeSource{})
		ticks := rapid.IntRange(0, 120).Draw(rt, "ticks")

		if err := c.Start(context.Background()); err != nil {
			rt.Fatalf("Start: %v", err)
		}
		for i := 0; i < ticks; i++ {
			mt.ch <- time.Now()
		}
		if _, err := c.Stop(); err != nil {
			rt.Fatalf("Stop: %v", err)
		}
		if got := c.Elapsed(); got != ticks {
			rt.Errorf("Elapsed = %d, want %d", got, ticks)
		}
	})
}

// Feature: encore, Property 2: wall-clock elapsed time within one second of real time
func TestWallClockElapsed(t *testing.T) {
	if testing.Short() {
		t.Skip("uses real time")
	}
	c := capture.New(&fakeSource{})
	start := time.Now()
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(2100 * time.Millisecond)
	if _, err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	whole := int(time.Since(start) / time.Second)
	if got := c.Elapsed(); got < whole-1 || got > whole+1 {
		t.Errorf("Elapsed = %d, want %d±1", got, whole)
	}
}
