package future

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/asynckit/asynckit/cancellation"
)

func TestWhenAllCollectsInOrder(t *testing.T) {
	tasks := make([]*Task[int], 5)
	for i := range tasks {
		n := i
		tasks[i] = Run(nil, cancellation.None(), func(*cancellation.Token) (int, error) {
			return n * n, nil
		})
	}

	all := WhenAll(tasks...)
	values, err := all.Result(context.Background())
	if err != nil {
		t.Fatalf("WhenAll failed: %v", err)
	}
	for i, v := range values {
		if v != i*i {
			t.Errorf("values[%d] = %d, expected %d", i, v, i*i)
		}
	}
}

func TestWhenAllEmpty(t *testing.T) {
	all := WhenAll[int]()
	values, err := all.Result(context.Background())
	if err != nil {
		t.Fatalf("Empty WhenAll must complete: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("Expected empty slice, got %v", values)
	}
}

func TestWhenAllAggregatesFaults(t *testing.T) {
	all := WhenAll(
		Completed(1),
		Faulted[int](errors.New("first failure")),
		Faulted[int](errors.New("second failure")),
	)

	_, err := all.Result(context.Background())
	if err == nil {
		t.Fatal("Expected aggregate fault")
	}
	if !all.IsFaulted() {
		t.Error("Expected faulted state")
	}
	msg := err.Error()
	if !strings.Contains(msg, "first failure") || !strings.Contains(msg, "second failure") {
		t.Errorf("Aggregate lost individual faults: %v", err)
	}
}

func TestWhenAllFaultBeatsCancel(t *testing.T) {
	all := WhenAll(
		Canceled[int](),
		Faulted[int](errors.New("real failure")),
	)

	_, err := all.Result(context.Background())
	if errors.Is(err, cancellation.ErrCanceled) {
		t.Error("A fault among the inputs must surface as a fault, not a cancel")
	}
	if !all.IsFaulted() {
		t.Errorf("Expected faulted, got %s", all.State())
	}
}

func TestWhenAllCanceledWithoutFaults(t *testing.T) {
	all := WhenAll(
		Completed(1),
		Canceled[int](),
	)

	_, err := all.Result(context.Background())
	if !errors.Is(err, cancellation.ErrCanceled) {
		t.Fatalf("Expected ErrCanceled, got %v", err)
	}
	if !all.IsCanceled() {
		t.Error("Expected canceled state")
	}
}

func TestWhenAnyFirstCompletion(t *testing.T) {
	slow := Run(nil, cancellation.None(), func(tok *cancellation.Token) (string, error) {
		<-tok.Done()
		return "", tok.Err()
	})
	fast := Completed("fast")

	any := WhenAny(slow, fast)
	result, err := any.Result(context.Background())
	if err != nil {
		t.Fatalf("WhenAny failed: %v", err)
	}
	if result.Index != 1 || result.Value != "fast" {
		t.Errorf("Expected index 1 value fast, got %+v", result)
	}
}

func TestWhenAnyMirrorsFirstFault(t *testing.T) {
	boom := errors.New("boom")
	pending := Run(nil, cancellation.None(), func(tok *cancellation.Token) (string, error) {
		<-tok.Done()
		return "", tok.Err()
	})

	any := WhenAny(pending, Faulted[string](boom))
	if _, err := any.Result(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Expected first terminal fault, got %v", err)
	}
}

func TestWhenAnyLaterTerminalsIgnored(t *testing.T) {
	any := WhenAny(Completed(1), Faulted[int](errors.New("late")))

	// First registered continuation wins; the aggregate must hold the
	// completion regardless of the second input's fault.
	result, err := any.Result(context.Background())
	if err != nil {
		t.Fatalf("Expected completion to win, got %v", err)
	}
	if result.Index != 0 || result.Value != 1 {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestWhenAnyEmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic on empty WhenAny")
		}
	}()
	WhenAny[int]()
}

func TestWhenAllThenChain(t *testing.T) {
	all := WhenAll(Completed(1), Completed(2), Completed(3))
	sum := Then(all, func(values []int) (int, error) {
		total := 0
		for _, v := range values {
			total += v
		}
		return total, nil
	})

	value, err := sum.Result(context.Background())
	if err != nil || value != 6 {
		t.Errorf("Expected (6, nil), got (%d, %v)", value, err)
	}
}
