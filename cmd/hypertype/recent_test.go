package main

import (
	"strconv"
	"testing"
)

func TestRecentBuffer_KeepsLastCapacityEntries(t *testing.T) {
	b := NewRecentBuffer(50)
	for i := 0; i < 60; i++ {
		b.Push(strconv.Itoa(i))
	}

	got := b.Snapshot()
	if len(got) != 50 {
		t.Fatalf("len = %d, want 50", len(got))
	}
	for i, s := range got {
		if want := strconv.Itoa(i + 10); s != want {
			t.Fatalf("entry %d = %q, want %q", i, s, want)
		}
	}
}

func TestRecentBuffer_Pop(t *testing.T) {
	b := NewRecentBuffer(3)
	if _, ok := b.Pop(); ok {
		t.Fatalf("Pop on empty buffer reported ok")
	}

	b.Push("a")
	b.Push("b")
	s, ok := b.Pop()
	if !ok || s != "b" {
		t.Fatalf("Pop = %q, %v; want \"b\", true", s, ok)
	}
	if b.Len() != 1 {
		t.Fatalf("len after pop = %d, want 1", b.Len())
	}
}

func TestRecentBuffer_SnapshotIsACopy(t *testing.T) {
	b := NewRecentBuffer(3)
	b.Push("x")
	snap := b.Snapshot()
	snap[0] = "mutated"
	if b.Snapshot()[0] != "x" {
		t.Fatalf("snapshot aliases the buffer")
	}
}

func TestRecentBuffer_DefaultCapacity(t *testing.T) {
	if got := NewRecentBuffer(0).Capacity(); got != defaultRecentCapacity {
		t.Fatalf("capacity = %d, want %d", got, defaultRecentCapacity)
	}
}
