package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// StatusSpinner animates a single status line for the plain (non-dashboard)
// output mode. The message can change while it spins.
type StatusSpinner struct {
	out      io.Writer
	frames   []string
	interval time.Duration

	mu      sync.Mutex
	message string

	started  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
	finished chan struct{}
}

// NewStatusSpinner uses the Dot frames, for local work.
func NewStatusSpinner(message string) *StatusSpinner {
	return newStatusSpinner(os.Stdout, spinner.Dot, message)
}

// NewNetworkSpinner uses the Globe frames, for anything waiting on the relay
// or on peers.
func NewNetworkSpinner(message string) *StatusSpinner {
	return newStatusSpinner(os.Stdout, spinner.Globe, message)
}

func newStatusSpinner(out io.Writer, s spinner.Spinner, message string) *StatusSpinner {
	return &StatusSpinner{
		out:      out,
		frames:   s.Frames,
		interval: s.FPS,
		message:  message,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

func (s *StatusSpinner) Start() *StatusSpinner {
	if !s.started.CompareAndSwap(false, true) {
		return s
	}
	go func() {
		defer close(s.finished)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			frame := SpinnerStyle.Render(s.frames[i%len(s.frames)])
			fmt.Fprintf(s.out, "\r\033[K%s %s", frame, s.Message())
			select {
			case <-s.done:
				fmt.Fprint(s.out, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
	return s
}

func (s *StatusSpinner) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

func (s *StatusSpinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop clears the line. It is safe to call more than once and waits for the
// animation goroutine so later output is not overwritten.
func (s *StatusSpinner) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	if s.started.Load() {
		<-s.finished
	}
}

func (s *StatusSpinner) Success(message string) {
	s.Stop()
	fmt.Fprintf(s.out, "%s %s\n", SuccessStyle.Render(IconSuccess), message)
}

func (s *StatusSpinner) Error(message string) {
	s.Stop()
	fmt.Fprintf(s.out, "%s %s\n", ErrorStyle.Render(IconError), message)
}
