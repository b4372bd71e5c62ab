package manager

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asynckit/asynckit/cancellation"
	"github.com/asynckit/asynckit/errors"
	"github.com/asynckit/asynckit/future"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSubmitAndResult(t *testing.T) {
	m := New(nil)

	id, err := m.Submit(Spec{}, func(*cancellation.Token) (any, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty task ID")
	}

	value, err := m.Result(testContext(t), id)
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if value != 42 {
		t.Errorf("expected 42, got %v", value)
	}

	snap, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if snap.Status != StatusCompleted {
		t.Errorf("expected status %q, got %q", StatusCompleted, snap.Status)
	}
	if snap.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", snap.Attempts)
	}
	if snap.StartedAt == nil || snap.FinishedAt == nil {
		t.Error("expected start and finish timestamps to be set")
	}
}

func TestSubmitNilFn(t *testing.T) {
	m := New(nil)
	if _, err := m.Submit(Spec{}, nil); !stderrors.Is(err, ErrNilFn) {
		t.Errorf("expected ErrNilFn, got %v", err)
	}
}

func TestIdempotentSubmission(t *testing.T) {
	m := New(nil)
	var calls atomic.Int32

	spec := Spec{IdempotencyKey: "job-1"}
	fn := func(*cancellation.Token) (any, error) {
		calls.Add(1)
		return "done", nil
	}

	first, err := m.Submit(spec, fn)
	if err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	second, err := m.Submit(spec, fn)
	if err != nil {
		t.Fatalf("second Submit failed: %v", err)
	}
	if first != second {
		t.Errorf("expected duplicate submissions to share an ID: %q vs %q", first, second)
	}

	if _, err := m.Result(testContext(t), first); err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected the computation to run once, ran %d times", got)
	}
}

func TestRetryUntilSuccess(t *testing.T) {
	m := New(nil, WithBackoff(time.Millisecond, 5*time.Millisecond))
	var calls atomic.Int32

	id, err := m.Submit(Spec{MaxAttempts: 3}, func(*cancellation.Token) (any, error) {
		if calls.Add(1) < 3 {
			return nil, errors.Faulted("flaky", fmt.Errorf("transient"))
		}
		return "eventually", nil
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	value, err := m.Result(testContext(t), id)
	if err != nil {
		t.Fatalf("expected retries to succeed, got %v", err)
	}
	if value != "eventually" {
		t.Errorf("expected %q, got %v", "eventually", value)
	}

	snap, _ := m.Get(id)
	if snap.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", snap.Attempts)
	}
}

func TestRetryExhaustion(t *testing.T) {
	m := New(nil, WithBackoff(time.Millisecond, 5*time.Millisecond))
	var calls atomic.Int32

	id, err := m.Submit(Spec{MaxAttempts: 2}, func(*cancellation.Token) (any, error) {
		calls.Add(1)
		return nil, errors.Faulted("always", fmt.Errorf("broken"))
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	_, err = m.Result(testContext(t), id)
	if err == nil {
		t.Fatal("expected the task to fault")
	}
	if !errors.Is(err, errors.CodeMaxAttempts) {
		t.Errorf("expected code %s, got %v", errors.CodeMaxAttempts, err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}

	snap, _ := m.Get(id)
	if snap.Status != StatusFaulted {
		t.Errorf("expected status %q, got %q", StatusFaulted, snap.Status)
	}
	if snap.Error == "" {
		t.Error("expected the final failure to be recorded")
	}
}

func TestNonRetryableStopsImmediately(t *testing.T) {
	m := New(nil, WithBackoff(time.Millisecond, 5*time.Millisecond))
	var calls atomic.Int32

	id, err := m.Submit(Spec{MaxAttempts: 5}, func(*cancellation.Token) (any, error) {
		calls.Add(1)
		return nil, errors.New(errors.CodeNilTask, "bad input")
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if _, err := m.Result(testContext(t), id); err == nil {
		t.Fatal("expected the task to fault")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected no retries for a non-retryable error, got %d attempts", got)
	}
}

func TestCancelRunningTask(t *testing.T) {
	m := New(nil)
	started := make(chan struct{})

	id, err := m.Submit(Spec{}, func(token *cancellation.Token) (any, error) {
		close(started)
		<-token.Done()
		return nil, cancellation.ErrCanceled
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	<-started
	if err := m.Cancel(id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	_, err = m.Result(testContext(t), id)
	if !stderrors.Is(err, cancellation.ErrCanceled) {
		t.Errorf("expected ErrCanceled, got %v", err)
	}

	snap, _ := m.Get(id)
	if snap.Status != StatusCanceled {
		t.Errorf("expected status %q, got %q", StatusCanceled, snap.Status)
	}
}

func TestCancelUnknownTask(t *testing.T) {
	m := New(nil)
	if err := m.Cancel("missing"); !stderrors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	m := New(nil)

	done, err := m.Submit(Spec{}, func(*cancellation.Token) (any, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := m.Result(testContext(t), done); err != nil {
		t.Fatalf("Result failed: %v", err)
	}

	blocked := make(chan struct{})
	t.Cleanup(func() { close(blocked) })
	if _, err := m.Submit(Spec{}, func(*cancellation.Token) (any, error) {
		<-blocked
		return nil, nil
	}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if got := len(m.List("")); got != 2 {
		t.Errorf("expected 2 tasks, got %d", got)
	}
	completed := m.List(StatusCompleted)
	if len(completed) != 1 || completed[0].ID != done {
		t.Errorf("expected exactly the completed task, got %v", completed)
	}
}

func TestDeleteRequiresTerminal(t *testing.T) {
	m := New(nil)
	blocked := make(chan struct{})

	id, err := m.Submit(Spec{}, func(*cancellation.Token) (any, error) {
		<-blocked
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if err := m.Delete(id); !stderrors.Is(err, ErrNotTerminal) {
		t.Errorf("expected ErrNotTerminal, got %v", err)
	}

	close(blocked)
	if _, err := m.Result(testContext(t), id); err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if err := m.Delete(id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := m.Get(id); !stderrors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteFreesIdempotencyKey(t *testing.T) {
	m := New(nil)
	spec := Spec{IdempotencyKey: "job-2"}

	first, err := m.Submit(spec, func(*cancellation.Token) (any, error) {
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := m.Result(testContext(t), first); err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if err := m.Delete(first); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	second, err := m.Submit(spec, func(*cancellation.Token) (any, error) {
		return 2, nil
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if second == first {
		t.Error("expected a fresh task after the key was freed")
	}
}

func TestFutureComposition(t *testing.T) {
	m := New(nil)

	id, err := m.Submit(Spec{}, func(*cancellation.Token) (any, error) {
		return 10, nil
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	fut, err := m.Future(id)
	if err != nil {
		t.Fatalf("Future failed: %v", err)
	}
	doubled := future.Then(fut, func(v any) (int, error) {
		return v.(int) * 2, nil
	})

	value, err := doubled.Result(testContext(t))
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if value != 20 {
		t.Errorf("expected 20, got %d", value)
	}
}

func TestCloseWaitsForTasks(t *testing.T) {
	m := New(nil)
	release := make(chan struct{})

	id, err := m.Submit(Spec{}, func(*cancellation.Token) (any, error) {
		<-release
		return "late", nil
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	if err := m.Close(testContext(t)); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	snap, _ := m.Get(id)
	if snap.Status != StatusCompleted {
		t.Errorf("expected the task to settle before Close returned, got %q", snap.Status)
	}

	if _, err := m.Submit(Spec{}, func(*cancellation.Token) (any, error) {
		return nil, nil
	}); !stderrors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}

func TestCloseTimeout(t *testing.T) {
	m := New(nil)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	if _, err := m.Submit(Spec{}, func(token *cancellation.Token) (any, error) {
		select {
		case <-release:
		case <-token.Done():
		}
		return nil, nil
	}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := m.Close(ctx)
	if err == nil {
		t.Fatal("expected Close to time out")
	}
	if !errors.Is(err, errors.CodeTimeout) {
		t.Errorf("expected code %s, got %v", errors.CodeTimeout, err)
	}
}

func TestCancelAll(t *testing.T) {
	m := New(nil)
	var ids []string

	for i := 0; i < 3; i++ {
		id, err := m.Submit(Spec{}, func(token *cancellation.Token) (any, error) {
			<-token.Done()
			return nil, cancellation.ErrCanceled
		})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		ids = append(ids, id)
	}

	m.CancelAll()
	for _, id := range ids {
		if _, err := m.Result(testContext(t), id); !stderrors.Is(err, cancellation.ErrCanceled) {
			t.Errorf("task %s: expected ErrCanceled, got %v", id, err)
		}
	}
}

func TestDedupedSubmitResolvableWhileSchedulingBlocks(t *testing.T) {
	gate := make(chan struct{})
	exec := future.ExecutorFunc(func(fn func()) {
		<-gate
		go fn()
	})
	m := New(exec)

	spec := Spec{IdempotencyKey: "shared"}
	fn := func(*cancellation.Token) (any, error) {
		return "ok", nil
	}

	ids := make(chan string, 2)
	for i := 0; i < 2; i++ {
		go func() {
			id, err := m.Submit(spec, fn)
			if err != nil {
				t.Errorf("Submit failed: %v", err)
				return
			}
			ids <- id
		}()
	}

	// One submission wins the key and blocks in the executor; the other
	// returns the winner's ID and must be able to look it up right away.
	var id string
	select {
	case id = <-ids:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the deduplicated submission to return while the winner was still scheduling")
	}
	snap, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get(%s) after deduplicated Submit failed: %v", id, err)
	}
	if snap.Status != StatusPending {
		t.Errorf("expected status %q before the executor ran, got %q", StatusPending, snap.Status)
	}

	close(gate)
	value, err := m.Result(testContext(t), id)
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if value != "ok" {
		t.Errorf("expected %q, got %v", "ok", value)
	}
	if other := <-ids; other != id {
		t.Errorf("expected both submissions to share an ID: %q vs %q", id, other)
	}
}

func TestCloseWaitsForInflightSubmit(t *testing.T) {
	gate := make(chan struct{})
	exec := future.ExecutorFunc(func(fn func()) {
		<-gate
		go fn()
	})
	m := New(exec)

	submitted := make(chan string, 1)
	go func() {
		id, err := m.Submit(Spec{}, func(*cancellation.Token) (any, error) {
			return "late", nil
		})
		if err != nil {
			t.Errorf("Submit failed: %v", err)
			return
		}
		submitted <- id
	}()

	// Let the submission reach the executor before closing.
	time.Sleep(20 * time.Millisecond)

	closed := make(chan error, 1)
	go func() {
		closed <- m.Close(testContext(t))
	}()

	close(gate)
	if err := <-closed; err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	id := <-submitted
	snap, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if snap.Status != StatusCompleted {
		t.Errorf("expected the in-flight submission to settle before Close returned, got %q", snap.Status)
	}
}

func TestWithIDGenerator(t *testing.T) {
	var n atomic.Int32
	m := New(nil, WithIDGenerator(func() string {
		return fmt.Sprintf("task-%d", n.Add(1))
	}))

	id, err := m.Submit(Spec{}, func(*cancellation.Token) (any, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if id != "task-1" {
		t.Errorf("expected task-1, got %s", id)
	}
}
