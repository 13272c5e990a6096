package physics

import (
	"sort"
	"sync"
)

// RemovalQueue collects body removals requested during a pass so they are
// applied once, after integration.
type RemovalQueue struct {
	mu      sync.Mutex
	pending []BodyID
}

func NewRemovalQueue() *RemovalQueue {
	return &RemovalQueue{
		pending: make([]BodyID, 0),
	}
}

func (q *RemovalQueue) Enqueue(id BodyID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, id)
}

// Drain returns the queued ids sorted and without duplicates, and empties
// the queue.
func (q *RemovalQueue) Drain() []BodyID {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	batch := append([]BodyID(nil), q.pending...)
	q.pending = q.pending[:0]

	sort.Slice(batch, func(i, j int) bool { return batch[i] < batch[j] })
	out := batch[:1]
	for _, id := range batch[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

func (q *RemovalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
