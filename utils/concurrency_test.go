package utils

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSetNoDuplicates(t *testing.T) {
	s := NewSet[int64]()

	if !s.Add(42) {
		t.Error("first Add should return true")
	}
	if s.Add(42) {
		t.Error("second Add of same ID should return false")
	}
	if !s.Contains(42) {
		t.Error("Contains(42) should be true")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestSetConcurrency(t *testing.T) {
	s := NewSet[string]()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		pool.Submit(func() {
			if s.Add("https://example.com/same") {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestWorkerPoolMapIndexedPreservesOrder(t *testing.T) {
	pool := NewWorkerPool(4, 0)
	out := make([]int, 50)
	pool.MapIndexed(len(out), func(i int) {
		out[i] = i * i
	})
	for i, v := range out {
		if v != i*i {
			t.Fatalf("out[%d]: got %d, want %d", i, v, i*i)
		}
	}
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 100
	pool := NewWorkerPool(1, rateLimitMs)

	var timestamps []time.Time
	mu := make(chan struct{}, 1)
	mu <- struct{}{}

	for i := 0; i < 3; i++ {
		pool.Submit(func() {
			<-mu
			timestamps = append(timestamps, time.Now())
			mu <- struct{}{}
		})
	}
	pool.Wait()

	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		min := time.Duration(rateLimitMs) * time.Millisecond
		if gap < min {
			t.Errorf("gap between job %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}
