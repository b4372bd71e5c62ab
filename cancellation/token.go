package cancellation

import (
	"errors"
	"sync"
)

// ErrCanceled is the terminal signal for canceled work. It is distinct from
// a computation fault: callers use errors.Is to tell a deliberate cancel
// apart from a defect.
var ErrCanceled = errors.New("task canceled")

// neverDone is shared by all tokens that cannot be canceled.
var neverDone = make(chan struct{})

// Source owns a cancellation signal. The zero value is not usable; create
// sources with NewSource or NewLinkedSource.
type Source struct {
	mu        sync.Mutex
	canceled  bool
	done      chan struct{}
	callbacks []func()
}

// NewSource creates a new cancellation source.
func NewSource() *Source {
	return &Source{done: make(chan struct{})}
}

// NewLinkedSource creates a source that cancels as soon as any parent token
// cancels. Canceling the linked source does not affect the parents.
func NewLinkedSource(parents ...*Token) *Source {
	s := NewSource()
	for _, p := range parents {
		p.OnCancel(s.Cancel)
	}
	return s
}

// Cancel requests cancellation. The first call closes the done channel and
// runs registered callbacks in registration order; subsequent calls are
// no-ops.
func (s *Source) Cancel() {
	s.mu.Lock()
	if s.canceled {
		s.mu.Unlock()
		return
	}
	s.canceled = true
	close(s.done)
	callbacks := s.callbacks
	s.callbacks = nil
	s.mu.Unlock()

	// Callbacks run outside the lock so they may touch the source.
	for _, fn := range callbacks {
		fn()
	}
}

// Token returns the read-only side of the source.
func (s *Source) Token() *Token {
	return &Token{src: s}
}

// Token is the read-only view of a cancellation signal. A nil Token is
// valid and can never be canceled; None returns one for uniform APIs.
type Token struct {
	src *Source
}

// None returns a token that can never be canceled.
func None() *Token {
	return nil
}

// Canceled reports whether cancellation has been requested.
func (t *Token) Canceled() bool {
	if t == nil || t.src == nil {
		return false
	}
	t.src.mu.Lock()
	defer t.src.mu.Unlock()
	return t.src.canceled
}

// Done returns a channel closed when cancellation is requested. For the
// none token the channel never closes.
func (t *Token) Done() <-chan struct{} {
	if t == nil || t.src == nil {
		return neverDone
	}
	return t.src.done
}

// Err returns ErrCanceled if cancellation has been requested, nil otherwise.
func (t *Token) Err() error {
	if t.Canceled() {
		return ErrCanceled
	}
	return nil
}

// OnCancel registers a callback invoked exactly once when the token is
// canceled. If the token is already canceled the callback runs immediately
// on the calling goroutine. Callbacks on the none token never run.
func (t *Token) OnCancel(fn func()) {
	if t == nil || t.src == nil || fn == nil {
		return
	}
	t.src.mu.Lock()
	if t.src.canceled {
		t.src.mu.Unlock()
		fn()
		return
	}
	t.src.callbacks = append(t.src.callbacks, fn)
	t.src.mu.Unlock()
}
