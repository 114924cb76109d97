// Package capture owns the platform audio input for a single take: it opens
// the device, accumulates the fragments it emits, and counts elapsed seconds
// on a ticker that lives exactly as long as the take.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrPermissionDenied is returned by Start when the audio input refuses
	// access or is unavailable.
	ErrPermissionDenied = errors.New("audio input permission denied")
	// ErrAlreadyActive is returned by Start while a take is in progress.
	ErrAlreadyActive = errors.New("capture already active")
	// ErrNotActive is returned by Stop when no take is in progress.
	ErrNotActive = errors.New("capture not active")
)

// Artifact is the finished recording: every fragment concatenated in arrival
// order, tagged with the content type reported by the source.
type Artifact struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}

// Size returns the artifact length in bytes.
func (a *Artifact) Size() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}

// Handle is an open audio input. After Close returns, the source must not
// emit further fragments.
type Handle interface {
	ContentType() string
	Close() error
}

// Source is the platform audio-input provider.
type Source interface {
	// Open acquires the input device. Fragments are delivered to emit as they
	// become available, possibly from another goroutine.
	Open(ctx context.Context, emit func([]byte)) (Handle, error)
}

// Capture records one take at a time from Source.
type Capture struct {
	Source Source
	// NewTicker builds the elapsed-time ticker. Nil means a wall-clock ticker.
	NewTicker func(d time.Duration) Ticker

	mu       sync.Mutex
	active   bool
	handle   Handle
	ticker   Ticker
	stopTick chan struct{}
	tickDone chan struct{}
	artifact *Artifact
	elapsed  atomic.Int64

	// chunkMu guards the fragment buffer separately so a source may emit
	// while Start or Stop holds mu.
	chunkMu  sync.Mutex
	chunks   [][]byte
	chunkGen uint64
}

// New returns a Capture reading from src.
func New(src Source) *Capture {
	return &Capture{Source: src}
}

// Start opens the audio input and begins accumulating fragments and ticking.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return ErrAlreadyActive
	}
	if c.Source == nil {
		return fmt.Errorf("%w: no audio source configured", ErrPermissionDenied)
	}

	c.artifact = nil
	c.elapsed.Store(0)
	gen := c.resetChunks()

	h, err := c.Source.Open(ctx, func(b []byte) { c.appendChunk(gen, b) })
	if err != nil {
		c.resetChunks()
		if errors.Is(err, ErrPermissionDenied) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}

	c.handle = h
	c.active = true
	c.startTicker()
	return nil
}

// Stop finalizes the take and returns the concatenated artifact. The input
// handle is released and the ticker stopped even when closing the handle
// fails.
func (c *Capture) Stop() (*Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return nil, ErrNotActive
	}

	c.stopTicker()
	c.active = false
	h := c.handle
	c.handle = nil

	closeErr := h.Close()
	chunks := c.drainChunks()
	if closeErr != nil {
		return nil, fmt.Errorf("closing audio input: %w", closeErr)
	}

	size := 0
	for _, ch := range chunks {
		size += len(ch)
	}
	data := make([]byte, 0, size)
	for _, ch := range chunks {
		data = append(data, ch...)
	}

	c.artifact = &Artifact{Data: data, ContentType: h.ContentType()}
	return c.artifact, nil
}

// Reset discards the take unconditionally: the artifact, elapsed time and
// active flag are cleared and a still-open input is released. The returned
// error reports a failed release; the Capture is reset regardless.
func (c *Capture) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTicker()
	var err error
	if c.handle != nil {
		if cerr := c.handle.Close(); cerr != nil {
			err = fmt.Errorf("closing audio input: %w", cerr)
		}
		c.handle = nil
	}
	c.resetChunks()
	c.active = false
	c.artifact = nil
	c.elapsed.Store(0)
	return err
}

// Active reports whether a take is in progress.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Elapsed returns the whole seconds counted since Start. The value survives
// Stop and is cleared by Reset.
func (c *Capture) Elapsed() int {
	return int(c.elapsed.Load())
}

// Artifact returns the artifact produced by the last Stop, or nil.
func (c *Capture) Artifact() *Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.artifact
}

func (c *Capture) startTicker() {
	newTicker := c.NewTicker
	if newTicker == nil {
		newTicker = NewWallTicker
	}
	t := newTicker(time.Second)
	stop := make(chan struct{})
	done := make(chan struct{})
	c.ticker, c.stopTick, c.tickDone = t, stop, done

	go func() {
		defer close(done)
		for {
			select {
			case <-t.C():
				c.elapsed.Add(1)
			case <-stop:
				return
			}
		}
	}()
}

// stopTicker must be called with mu held. It returns once the tick goroutine
// has exited, so no tick lands after a take ends.
func (c *Capture) stopTicker() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.stopTick)
	<-c.tickDone
	c.ticker, c.stopTick, c.tickDone = nil, nil, nil
}

func (c *Capture) appendChunk(gen uint64, b []byte) {
	if len(b) == 0 {
		return
	}
	buf := make([]byte, len(b))
	copy(buf, b)

	c.chunkMu.Lock()
	defer c.chunkMu.Unlock()
	if gen != c.chunkGen {
		return
	}
	c.chunks = append(c.chunks, buf)
}

func (c *Capture) resetChunks() uint64 {
	c.chunkMu.Lock()
	defer c.chunkMu.Unlock()
	c.chunkGen++
	c.chunks = nil
	return c.chunkGen
}

func (c *Capture) drainChunks() [][]byte {
	c.chunkMu.Lock()
	defer c.chunkMu.Unlock()
	chunks := c.chunks
	c.chunks = nil
	c.chunkGen++
	return chunks
}
