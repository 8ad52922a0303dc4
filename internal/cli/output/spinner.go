package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Spinner displays a progress animation while a command waits on the
// server, for example snapshot trigger --wait.
type Spinner struct {
	w       io.Writer
	message string
	frames  []string
	done    chan struct{}
	once    sync.Once
}

// NewSpinner creates a spinner that writes to w.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:       w,
		message: message,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		done:    make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				fmt.Fprintf(s.w, "\r%s %s", s.frames[i%len(s.frames)], s.message)
				i++
			}
		}
	}()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.done) })
	fmt.Fprint(s.w, "\r\033[K")
}

// Success halts the animation with a success message.
func (s *Spinner) Success(message string) {
	s.once.Do(func() { close(s.done) })
	fmt.Fprintf(s.w, "\r✓ %s\n", message)
}

// Fail halts the animation with a failure message.
func (s *Spinner) Fail(message string) {
	s.once.Do(func() { close(s.done) })
	fmt.Fprintf(s.w, "\r✗ %s\n", message)
}
