package threadpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSharedQueuePool_RunsAllTasks(t *testing.T) {
	p, err := NewSharedQueuePool(4, nil)
	if err != nil {
		t.Fatalf("NewSharedQueuePool: %v", err)
	}
	defer p.Close()

	const n = 100
	var wg sync.WaitGroup
	var count atomic.Int64
	wg.Add(n)
	for i := 0; i < n; i++ {
		p.Spawn(func() {
			count.Add(1)
			wg.Done()
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for tasks, ran %d/%d", count.Load(), n)
	}

	if got := count.Load(); got != n {
		t.Fatalf("tasks run = %d, want %d", got, n)
	}
}

func TestSharedQueuePool_SurvivesPanickingTask(t *testing.T) {
	p, err := NewSharedQueuePool(2, nil)
	if err != nil {
		t.Fatalf("NewSharedQueuePool: %v", err)
	}
	defer p.Close()

	p.Spawn(func() { panic("boom") })

	// Give the panic time to unwind and the replacement worker time to
	// start, then confirm the pool still makes progress.
	time.Sleep(50 * time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	ran := false
	p.Spawn(func() {
		ran = true
		wg.Done()
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("pool made no progress after a worker panicked")
	}
	if !ran {
		t.Fatalf("task after panic did not run")
	}
}

func TestNaivePool_RunsTasks(t *testing.T) {
	p := NewNaivePool()
	defer p.Close()

	var wg sync.WaitGroup
	const n = 20
	wg.Add(n)
	for i := 0; i < n; i++ {
		p.Spawn(func() { wg.Done() })
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for naive pool tasks")
	}
}

func TestNaivePool_SurvivesPanickingTask(t *testing.T) {
	p := NewNaivePool()
	defer p.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	p.Spawn(func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()

	var wg2 sync.WaitGroup
	wg2.Add(1)
	p.Spawn(func() { wg2.Done() })

	done := make(chan struct{})
	go func() {
		wg2.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("naive pool made no progress after a panic")
	}
}
