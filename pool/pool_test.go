package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asynckit/asynckit/cancellation"
	"github.com/asynckit/asynckit/errors"
	"github.com/asynckit/asynckit/future"
)

func TestPoolRunsSubmittedWork(t *testing.T) {
	p := New(Config{Workers: 4})
	defer p.Stop(context.Background())

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			count.Add(1)
		})
	}
	wg.Wait()

	if got := count.Load(); got != 100 {
		t.Errorf("Expected 100 executions, got %d", got)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := New(Config{Workers: 2, QueueDepth: 32})
	defer p.Stop(context.Background())

	var active, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			current := active.Add(1)
			for {
				max := peak.Load()
				if current <= max || peak.CompareAndSwap(max, current) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		})
	}
	wg.Wait()

	if peak.Load() > 2 {
		t.Errorf("Concurrency exceeded worker count: %d", peak.Load())
	}
}

func TestStopDrainsQueuedWork(t *testing.T) {
	p := New(Config{Workers: 1, QueueDepth: 16})

	var done atomic.Int32
	for i := 0; i < 10; i++ {
		p.Submit(func() {
			time.Sleep(time.Millisecond)
			done.Add(1)
		})
	}

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := done.Load(); got != 10 {
		t.Errorf("Drain left work behind: %d of 10 completed", got)
	}
}

func TestStopTimeout(t *testing.T) {
	p := New(Config{Workers: 1})

	release := make(chan struct{})
	p.Submit(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := p.Stop(ctx)
	if err == nil {
		t.Fatal("Expected drain timeout")
	}
	if !errors.Is(err, errors.CodeTimeout) {
		t.Errorf("Expected TIMEOUT code, got %v", err)
	}
	close(release)
}

func TestSubmitAfterStopIsDropped(t *testing.T) {
	p := New(Config{Workers: 1})
	if err := p.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}

	p.Submit(func() {
		t.Error("Work ran after Stop")
	})
	time.Sleep(10 * time.Millisecond)

	if p.Stats().Dropped != 1 {
		t.Errorf("Expected 1 dropped submission, got %d", p.Stats().Dropped)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	p := New(Config{Workers: 1})
	if err := p.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Errorf("Second Stop returned %v", err)
	}
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	p := New(Config{Workers: 1})
	defer p.Stop(context.Background())

	p.Submit(func() { panic("worker down?") })

	var ran atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	p.Submit(func() {
		defer wg.Done()
		ran.Store(true)
	})
	wg.Wait()

	if !ran.Load() {
		t.Error("Worker did not survive a panicking submission")
	}
}

func TestStatsCounters(t *testing.T) {
	p := New(Config{Workers: 2, QueueDepth: 8})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		p.Submit(func() { wg.Done() })
	}
	wg.Wait()
	if err := p.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}

	stats := p.Stats()
	if stats.Submitted != 5 {
		t.Errorf("Submitted = %d, expected 5", stats.Submitted)
	}
	if stats.Completed != 5 {
		t.Errorf("Completed = %d, expected 5", stats.Completed)
	}
	if stats.Workers != 2 || stats.QueueDepth != 8 {
		t.Errorf("Sizing snapshot wrong: %+v", stats)
	}
}

func TestPoolAsTaskExecutor(t *testing.T) {
	p := New(Config{Workers: 4})
	defer p.Stop(context.Background())

	tasks := make([]*future.Task[int], 16)
	for i := range tasks {
		n := i
		tasks[i] = future.Run(p, cancellation.None(), func(*cancellation.Token) (int, error) {
			return n * 2, nil
		})
	}

	values, err := future.WhenAll(tasks...).Result(context.Background())
	if err != nil {
		t.Fatalf("WhenAll over pool failed: %v", err)
	}
	for i, v := range values {
		if v != i*2 {
			t.Errorf("values[%d] = %d, expected %d", i, v, i*2)
		}
	}
}
