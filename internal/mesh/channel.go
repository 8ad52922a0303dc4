package mesh

import (
	"sync"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

// DefaultChannelBuffer is the default per-channel frame buffer size.
const DefaultChannelBuffer = 256

// channel is one directed FIFO link. A single pump goroutine forwards
// frames from the channel buffer into the receiver's inbox, which
// preserves per-channel ordering while letting frames from different
// channels interleave arbitrarily.
type channel struct {
	id     domain.ChannelID
	frames chan domain.Frame
	done   chan struct{}
	once   sync.Once
}

func newChannel(id domain.ChannelID, buffer int) *channel {
	if buffer <= 0 {
		buffer = DefaultChannelBuffer
	}
	return &channel{
		id:     id,
		frames: make(chan domain.Frame, buffer),
		done:   make(chan struct{}),
	}
}

// send enqueues a frame, stamping it with the channel ID so the
// receiver knows which incoming channel delivered it. Blocks when the
// buffer is full (backpressure); fails once the channel is closed.
func (c *channel) send(f domain.Frame) error {
	f.Channel = c.id

	select {
	case <-c.done:
		return domain.ErrChannelClosed.WithDetails(string(c.id))
	default:
	}

	select {
	case c.frames <- f:
		return nil
	case <-c.done:
		return domain.ErrChannelClosed.WithDetails(string(c.id))
	}
}

// pump forwards frames into the inbox until the channel is closed.
func (c *channel) pump(inbox chan<- domain.Frame) {
	for {
		select {
		case f := <-c.frames:
			select {
			case inbox <- f:
			case <-c.done:
				return
			}
		case <-c.done:
			return
		}
	}
}

// close stops the channel. Idempotent.
func (c *channel) close() {
	c.once.Do(func() { close(c.done) })
}
