package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// CommandSource records by running an external program that writes audio to
// stdout, e.g. arecord, sox's rec or ffmpeg.
type CommandSource struct {
	Command   []string
	MediaType string

	// StartupGrace bounds how long Open waits for the first audio bytes. A
	// recorder that exits with a failure status within it could not open the
	// device. Zero means DefaultStartupGrace.
	StartupGrace time.Duration
}

// DefaultCommand captures 16-bit stereo 44.1kHz WAV from the default ALSA
// device.
var DefaultCommand = []string{"arecord", "-q", "-f", "cd", "-t", "wav", "-"}

// DefaultContentType matches DefaultCommand.
const DefaultContentType = "audio/wav"

const (
	DefaultStartupGrace = 500 * time.Millisecond

	// interruptTimeout is how long Close waits after the interrupt before
	// killing the recorder.
	interruptTimeout = 5 * time.Second
)

// NewCommandSource returns a CommandSource, filling in defaults for empty
// arguments.
func NewCommandSource(command []string, contentType string) *CommandSource {
	if len(command) == 0 {
		command = DefaultCommand
	}
	if contentType == "" {
		contentType = DefaultContentType
	}
	return &CommandSource{Command: command, MediaType: contentType}
}

// Open starts the recorder process and waits until it produces audio, exits
// or StartupGrace passes. A missing binary, a process that cannot be started
// and a process that fails before producing audio are all reported as
// ErrPermissionDenied.
func (s *CommandSource) Open(ctx context.Context, emit func([]byte)) (Handle, error) {
	if len(s.Command) == 0 {
		return nil, fmt.Errorf("%w: empty recorder command", ErrPermissionDenied)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := exec.LookPath(s.Command[0])
	if err != nil {
		return nil, fmt.Errorf("%w: recorder %q not found: %w", ErrPermissionDenied, s.Command[0], err)
	}

	// The process must outlive ctx, which only bounds acquiring the device.
	cmd := exec.Command(path, s.Command[1:]...)
	h := &commandHandle{
		cmd:         cmd,
		contentType: s.MediaType,
		emit:        emit,
		firstOut:    make(chan struct{}),
		exited:      make(chan struct{}),
	}
	cmd.Stdout = h
	cmd.Stderr = &h.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting %s: %w", ErrPermissionDenied, s.Command[0], err)
	}
	go h.wait()

	grace := s.StartupGrace
	if grace <= 0 {
		grace = DefaultStartupGrace
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-h.firstOut:
	case <-timer.C:
	case <-h.exited:
		if h.waitErr != nil {
			return nil, fmt.Errorf("%w: %s exited: %s", ErrPermissionDenied, s.Command[0], h.reason(h.waitErr))
		}
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-h.exited
		return nil, ctx.Err()
	}
	return h, nil
}

type commandHandle struct {
	cmd         *exec.Cmd
	contentType string
	emit        func([]byte)

	wrote     atomic.Int64
	firstOnce sync.Once
	firstOut  chan struct{}

	// stderr and waitErr are only read after exited is closed.
	stderr  bytes.Buffer
	waitErr error
	exited  chan struct{}

	once sync.Once
	err  error
}

// Write receives the recorder's stdout.
func (h *commandHandle) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	h.emit(p)
	h.wrote.Add(int64(len(p)))
	h.firstOnce.Do(func() { close(h.firstOut) })
	return len(p), nil
}

func (h *commandHandle) wait() {
	h.waitErr = h.cmd.Wait()
	close(h.exited)
}

func (h *commandHandle) reason(err error) string {
	if msg := strings.TrimSpace(h.stderr.String()); msg != "" {
		return msg
	}
	return err.Error()
}

func (h *commandHandle) ContentType() string { return h.contentType }

// Close interrupts the recorder so it can flush, then waits for it to exit.
// The exit is only returned once stdout has been fully copied to emit. A
// recorder that stopped on its own with a failure status, or that never
// produced any audio, is an error.
func (h *commandHandle) Close() error {
	h.once.Do(func() {
		interrupted := false
		select {
		case <-h.exited:
		default:
			interrupted = true
			if err := h.cmd.Process.Signal(os.Interrupt); err != nil {
				_ = h.cmd.Process.Kill()
			}
			select {
			case <-h.exited:
			case <-time.After(interruptTimeout):
				_ = h.cmd.Process.Kill()
				<-h.exited
			}
		}

		var exitErr *exec.ExitError
		switch {
		case h.waitErr != nil && !errors.As(h.waitErr, &exitErr):
			h.err = fmt.Errorf("waiting for recorder: %w: %s", h.waitErr, strings.TrimSpace(h.stderr.String()))
		case h.waitErr != nil && !interrupted:
			h.err = fmt.Errorf("recorder stopped early: %s", h.reason(h.waitErr))
		case h.wrote.Load() == 0:
			h.err = fmt.Errorf("recorder produced no audio: %s", h.reason(errors.New("empty output")))
		}
	})
	return h.err
}
