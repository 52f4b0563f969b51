package notify

import "sync"

// ringBuffer is a bounded FIFO of public events. When full, the oldest
// event is dropped: a later status supersedes an earlier one for the reader.
type ringBuffer struct {
	mu       sync.Mutex
	events   []StateChanged
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int

	dropped int64
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = 10000
	}
	return &ringBuffer{
		events:   make([]StateChanged, capacity),
		capacity: capacity,
	}
}

// Enqueue adds an event, dropping the oldest if necessary.
func (b *ringBuffer) Enqueue(ev StateChanged) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
	}
	b.events[b.head] = ev
	b.head = (b.head + 1) % b.capacity
	b.count++
}

// Peek returns up to n events without removing them.
func (b *ringBuffer) Peek(n int) []StateChanged {
	b.mu.Lock()
	defer b.mu.Unlock()

	n = min(n, b.count)
	out := make([]StateChanged, n)
	for i := 0; i < n; i++ {
		out[i] = b.events[(b.tail+i)%b.capacity]
	}
	return out
}

// Discard removes up to n events from the front.
func (b *ringBuffer) Discard(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n = min(n, b.count)
	b.tail = (b.tail + n) % b.capacity
	b.count -= n
}

func (b *ringBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *ringBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
