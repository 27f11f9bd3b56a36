package events

import (
	"errors"
	"sync"
	"testing"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	q := NewQueue(4)
	if err := q.TryEnqueue([]byte("hello")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("queue depth = %d, want 1", q.Len())
	}
	it := <-q.Out()
	if string(it.Payload) != "hello" {
		t.Fatalf("payload = %q", it.Payload)
	}
	it.Done()
	if it.Payload != nil {
		t.Fatalf("Done should release the payload")
	}
	// Done is idempotent
	it.Done()
}

func TestQueuePayloadIsCopied(t *testing.T) {
	q := NewQueue(4)
	src := []byte("abc")
	if err := q.TryEnqueue(src); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	src[0] = 'X'
	it := <-q.Out()
	defer it.Done()
	if string(it.Payload) != "abc" {
		t.Fatalf("enqueued payload aliases caller memory: %q", it.Payload)
	}
}

func TestQueueFullDrops(t *testing.T) {
	q := NewQueue(2)
	for i := 0; i < 2; i++ {
		if err := q.TryEnqueue([]byte("x")); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	err := q.TryEnqueue([]byte("overflow"))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("want ErrQueueFull, got %v", err)
	}
	if q.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", q.Dropped())
	}
	if q.Len() != 2 {
		t.Fatalf("drop changed queue depth: %d", q.Len())
	}
}

func TestQueueFullDropReleasesOversizedBuffer(t *testing.T) {
	old := maxPooledBuffer
	SetMaxPooledBuffer(8)
	defer SetMaxPooledBuffer(old)

	q := NewQueue(1)
	if err := q.TryEnqueue([]byte("x")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	// dropping a payload over the pool ceiling must go through the same
	// release path as Done, not straight back into the pool
	big := make([]byte, 64)
	if err := q.TryEnqueue(big); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("want ErrQueueFull, got %v", err)
	}
	if q.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", q.Dropped())
	}
	it := <-q.Out()
	defer it.Done()
	if string(it.Payload) != "x" {
		t.Fatalf("queued payload corrupted: %q", it.Payload)
	}
}

func TestRunWorkerProcessesUntilStopped(t *testing.T) {
	q := NewQueue(8)
	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	stop := make(chan struct{})

	go func() {
		defer close(done)
		q.RunWorker(stop, func(payload []byte) {
			mu.Lock()
			got = append(got, string(payload))
			mu.Unlock()
			if len(got) == 3 {
				close(stop)
			}
		})
	}()

	for _, s := range []string{"a", "b", "c"} {
		if err := q.TryEnqueue([]byte(s)); err != nil {
			t.Fatalf("enqueue %q: %v", s, err)
		}
	}
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("worker processed %v", got)
	}
}

func TestCloseAndDrainReleasesItems(t *testing.T) {
	q := NewQueue(4)
	for i := 0; i < 3; i++ {
		if err := q.TryEnqueue([]byte("x")); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	q.CloseAndDrain()
	if q.Len() != 0 {
		t.Fatalf("queue not drained: %d", q.Len())
	}
}

func TestQueueDefaultCapacity(t *testing.T) {
	q := NewQueue(0)
	if q.Cap() != 4096 {
		t.Fatalf("default capacity = %d, want 4096", q.Cap())
	}
}
