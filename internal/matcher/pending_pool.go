package matcher

import (
	"container/heap"
	"time"
)

// PendingEntry is one driver waiting to become available, as held in PendingPool.
type PendingEntry struct {
	DriverID    int
	AvailableAt time.Time
}

// pendingHeap backs PendingPool: a binary min-heap keyed by (available_at,
// driver_id ascending), per the re-architecture guidance in spec.md §9.
type pendingHeap []PendingEntry

func (h pendingHeap) Len() int { return len(h) }
func (h pendingHeap) Less(i, j int) bool {
	if !h[i].AvailableAt.Equal(h[j].AvailableAt) {
		return h[i].AvailableAt.Before(h[j].AvailableAt)
	}
	return h[i].DriverID < h[j].DriverID
}
func (h pendingHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *pendingHeap) Push(x interface{}) {
	*h = append(*h, x.(PendingEntry))
}
func (h *pendingHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PendingPool is the priority queue of drivers keyed by available_at ascending,
// ties broken by driver id, holding every driver whose available_at is strictly
// greater than the current virtual time and who has not retired.
type PendingPool struct {
	h pendingHeap
}

// NewPendingPool returns an empty pending pool.
func NewPendingPool() *PendingPool {
	p := &PendingPool{}
	heap.Init(&p.h)
	return p
}

// Push inserts a driver into the pending pool.
func (p *PendingPool) Push(e PendingEntry) {
	heap.Push(&p.h, e)
}

// Len returns the number of drivers currently pending.
func (p *PendingPool) Len() int {
	return p.h.Len()
}

// Peek returns the earliest-available entry without removing it.
func (p *PendingPool) Peek() (PendingEntry, bool) {
	if p.h.Len() == 0 {
		return PendingEntry{}, false
	}
	return p.h[0], true
}

// Pop removes and returns the earliest-available entry.
func (p *PendingPool) Pop() (PendingEntry, bool) {
	if p.h.Len() == 0 {
		return PendingEntry{}, false
	}
	return heap.Pop(&p.h).(PendingEntry), true
}
