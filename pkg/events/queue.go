package events

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
)

// ErrQueueFull is returned by TryEnqueue when the queue is at capacity.
var ErrQueueFull = errors.New("event queue full")

// Item wraps a raw event payload and owns a pooled ByteBuffer. Consumers
// MUST call Done() exactly once after processing the item to return
// pooled resources.
type Item struct {
	Payload []byte

	buf  *bytebufferpool.ByteBuffer
	once sync.Once
}

// Done releases the pooled buffer backing the payload.
func (it *Item) Done() {
	it.once.Do(func() {
		if it.buf != nil {
			// avoid retaining huge buffers in the pool
			if cap(it.buf.B) <= maxPooledBuffer {
				bytebufferpool.Put(it.buf)
			}
			it.buf = nil
		}
		it.Payload = nil
	})
}

// maxPooledBuffer controls the largest buffer size returned to the pool.
// Larger buffers are dropped so resident memory stays bounded.
var maxPooledBuffer = 256 * 1024 // 256 KiB

// SetMaxPooledBuffer adjusts the pooled-buffer ceiling.
func SetMaxPooledBuffer(n int) {
	if n > 0 {
		maxPooledBuffer = n
	}
}

// Queue is a bounded in-memory queue between the transport subscription
// and the engine's handlers. It is safe for concurrent producers. A full
// queue drops the event: chain state is re-derived from the store on the
// next event, so losing one is acceptable.
type Queue struct {
	ch       chan *Item
	capacity int
	dropped  uint64
}

// NewQueue creates a bounded Queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Queue{ch: make(chan *Item, capacity), capacity: capacity}
}

// Out returns the consumer channel. Do not close it from callers.
func (q *Queue) Out() <-chan *Item { return q.ch }

// TryEnqueue copies payload into a pooled buffer and enqueues it without
// blocking. Returns ErrQueueFull when at capacity.
func (q *Queue) TryEnqueue(payload []byte) error {
	bb := bytebufferpool.Get()
	bb.B = append(bb.B[:0], payload...)
	it := &Item{Payload: bb.B[:len(payload)], buf: bb}
	select {
	case q.ch <- it:
		return nil
	default:
		it.Done()
		atomic.AddUint64(&q.dropped, 1)
		return ErrQueueFull
	}
}

// RunWorker invokes handler for each dequeued item until stop is closed.
// Item resources are released even when the handler panics upstream.
func (q *Queue) RunWorker(stop <-chan struct{}, handler func(payload []byte)) {
	for {
		select {
		case it, ok := <-q.ch:
			if !ok {
				return
			}
			func(it *Item) {
				defer it.Done()
				handler(it.Payload)
			}(it)
		case <-stop:
			return
		}
	}
}

// CloseAndDrain closes the queue and releases remaining items.
func (q *Queue) CloseAndDrain() {
	close(q.ch)
	for it := range q.ch {
		it.Done()
	}
}

// Len returns the current queue depth.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the configured capacity.
func (q *Queue) Cap() int { return q.capacity }

// Dropped returns how many events were dropped due to a full queue.
func (q *Queue) Dropped() uint64 { return atomic.LoadUint64(&q.dropped) }
