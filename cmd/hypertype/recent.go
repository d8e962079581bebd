package main

// RecentBuffer is the bounded rolling window of typed text shown by the display
// surface. Oldest entries fall off the front once capacity is reached.
type RecentBuffer struct {
	items    []string
	capacity int
}

func NewRecentBuffer(capacity int) *RecentBuffer {
	if capacity <= 0 {
		capacity = defaultRecentCapacity
	}
	return &RecentBuffer{items: make([]string, 0, capacity), capacity: capacity}
}

// Push appends s and trims the window.
func (b *RecentBuffer) Push(s string) {
	b.items = append(b.items, s)
	if over := len(b.items) - b.capacity; over > 0 {
		// Shift in place so the backing array never grows past capacity.
		n := copy(b.items, b.items[over:])
		clear(b.items[n:])
		b.items = b.items[:n]
	}
}

// Pop removes the newest entry. It reports false when the buffer is empty.
func (b *RecentBuffer) Pop() (string, bool) {
	if len(b.items) == 0 {
		return "", false
	}
	last := b.items[len(b.items)-1]
	b.items[len(b.items)-1] = ""
	b.items = b.items[:len(b.items)-1]
	return last, true
}

// Snapshot returns a copy in push order.
func (b *RecentBuffer) Snapshot() []string {
	out := make([]string, len(b.items))
	copy(out, b.items)
	return out
}

func (b *RecentBuffer) Len() int      { return len(b.items) }
func (b *RecentBuffer) Capacity() int { return b.capacity }
