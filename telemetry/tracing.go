// OpenTelemetry tracing support for task execution observability.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/asynckit/asynckit/future"
)

// Tracer wraps OpenTelemetry tracing with task-runtime helpers.
type Tracer struct {
	tracer trace.Tracer
}

var (
	globalTracer *Tracer
	tracerMu     sync.RWMutex
)

// SetGlobalTracer sets the global tracer instance.
func SetGlobalTracer(t *Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	globalTracer = t
}

// GetTracer returns the global tracer, or a no-op tracer if not set.
func GetTracer() *Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if globalTracer == nil {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer("")}
	}
	return globalTracer
}

// NewTracer creates a new tracer with the given name.
func NewTracer(name string) *Tracer {
	return &Tracer{
		tracer: otel.Tracer(name),
	}
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// --- Task Spans ---

// StartTaskSpan starts a span for a task execution.
func (t *Tracer) StartTaskSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "task."+name, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(attribute.String("task.name", name))
	return ctx, span
}

// EndTaskSpan ends a task span, recording the terminal state. A fault is
// recorded as a span error; cancellation ends the span with a distinct
// state attribute and no error status.
func (t *Tracer) EndTaskSpan(span trace.Span, state future.State, err error) {
	span.SetAttributes(attribute.String("task.state", state.String()))

	switch state {
	case future.StateFaulted:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case future.StateCanceled:
		span.SetStatus(codes.Ok, "canceled")
	default:
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// TaskHooks returns lifecycle hooks that trace a single task as one span.
// The span opens when the task is scheduled and closes on the terminal
// transition. Tracing stays a pluggable observer: the hooks carry no
// scheduling behavior and may be merged with any others.
func (t *Tracer) TaskHooks(ctx context.Context, name string) future.Hooks {
	var (
		mu      sync.Mutex
		span    trace.Span
		started time.Time
	)

	open := func(future.Event) {
		mu.Lock()
		defer mu.Unlock()
		if span == nil {
			_, span = t.StartTaskSpan(ctx, name)
			started = time.Now()
		}
	}
	closeWith := func(event future.Event) {
		mu.Lock()
		defer mu.Unlock()
		if span == nil {
			// Pre-settled constructors never emit a schedule event.
			_, span = t.StartTaskSpan(ctx, name)
			started = time.Now()
		}
		span.SetAttributes(attribute.Int64("task.duration_us", time.Since(started).Microseconds()))
		t.EndTaskSpan(span, event.State, event.Err)
	}

	return future.Hooks{
		OnSchedule: open,
		OnStart: func(future.Event) {
			mu.Lock()
			defer mu.Unlock()
			if span != nil {
				span.AddEvent("running")
			}
		},
		OnComplete: closeWith,
		OnFault:    closeWith,
		OnCancel:   closeWith,
	}
}
