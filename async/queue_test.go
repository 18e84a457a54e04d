package async

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestRunsSubmittedWork(t *testing.T) {
	q := New(4, 64)
	var n atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		if !q.Submit(func() { n.Add(1); wg.Done() }) {
			wg.Done()
			t.Fatalf("submit %d rejected", i)
		}
	}
	wg.Wait()
	q.Close()
	if n.Load() != 50 {
		t.Fatalf("ran %d, want 50", n.Load())
	}
}

func TestDropsWhenFull(t *testing.T) {
	q := New(1, 1)
	block := make(chan struct{})
	started := make(chan struct{})
	q.Submit(func() { close(started); <-block })
	<-started
	if !q.Submit(func() {}) {
		t.Fatal("one slot should be free")
	}
	if q.Submit(func() {}) {
		t.Fatal("expected drop when full")
	}
	if q.Dropped() != 1 {
		t.Fatalf("dropped=%d want 1", q.Dropped())
	}
	close(block)
	q.Close()
}

func TestSubmitAfterClose(t *testing.T) {
	q := New(1, 1)
	q.Close()
	q.Close()
	if q.Submit(func() {}) {
		t.Fatal("closed queue must reject")
	}
}
