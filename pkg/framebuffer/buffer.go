// Package framebuffer holds the sliding window of the most recently
// ingested frames shared between the ingest process and snapshot
// triggers.
package framebuffer

import (
	"sync"

	"github.com/emirpasic/gods/queues/circularbuffer"
	"github.com/tauraamui/framerecorder/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

var ErrInvalidCapacity = xerror.NewWithKind("framebuffer", "capacity must be at least 1")

// Observer is notified of buffer activity. Callbacks run while the
// buffer lock is held so they must be cheap and must not call back
// into the buffer.
type Observer interface {
	Appended()
	Evicted()
	Drained(count int)
}

// Buffer is a fixed capacity FIFO window over frames. Append and DrainAll
// serialise on one lock held for the whole of each operation, so every
// drain sees the stream up to a single instant.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	frames   *circularbuffer.Queue
	observer Observer
}

func New(capacity int) (*Buffer, error) {
	return NewWithObserver(capacity, nil)
}

func NewWithObserver(capacity int, observer Observer) (*Buffer, error) {
	if capacity < 1 {
		return nil, xerror.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	return &Buffer{
		capacity: capacity,
		frames:   circularbuffer.New(capacity),
		observer: observer,
	}, nil
}

// Append adds frame as the newest element. At capacity the oldest
// frame is evicted and closed first.
func (b *Buffer) Append(frame videoframe.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frames.Full() {
		if evicted, ok := b.frames.Dequeue(); ok {
			evicted.(videoframe.Frame).Close()
			if b.observer != nil {
				b.observer.Evicted()
			}
		}
	}
	b.frames.Enqueue(frame)
	if b.observer != nil {
		b.observer.Appended()
	}
}

// DrainAll removes and returns every held frame, oldest first. The
// caller owns the returned frames and is responsible for closing them.
func (b *Buffer) DrainAll() []videoframe.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	values := b.frames.Values()
	drained := make([]videoframe.Frame, 0, len(values))
	for _, v := range values {
		drained = append(drained, v.(videoframe.Frame))
	}
	b.frames.Clear()

	if b.observer != nil {
		b.observer.Drained(len(drained))
	}
	return drained
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames.Size()
}

func (b *Buffer) Cap() int {
	return b.capacity
}
