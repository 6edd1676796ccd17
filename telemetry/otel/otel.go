// Package otel traces state machine transitions with OpenTelemetry.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/atlekbai/statemech"
)

// ScopeName is the instrumentation scope of the tracer.
const ScopeName = "github.com/atlekbai/statemech/telemetry/otel"

// Span names.
const (
	SpanTransition = "statemech.transition"
	SpanNotFound   = "statemech.not_found"
	SpanIgnored    = "statemech.ignored"
)

// Tracer is a statemech.Observer starting a span when a transition begins and
// ending it when the transition finishes or faults. Events that find no
// transition or are ignored produce instant spans.
type Tracer struct {
	tracer trace.Tracer
	ctx    context.Context

	mx    sync.Mutex
	spans map[*statemech.StateMachine]trace.Span
}

var _ statemech.Observer = (*Tracer)(nil)

// TracerOpts configures a Tracer.
type TracerOpts struct {
	// Ctx is the parent context of every span. Defaults to context.Background.
	Ctx context.Context
}

// NewTracer creates a Tracer using a tracer of tp.
func NewTracer(tp trace.TracerProvider, opts *TracerOpts) *Tracer {
	if tp == nil {
		panic("nil tracer provider")
	}
	if opts == nil {
		opts = &TracerOpts{}
	}
	ctx := opts.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return &Tracer{
		tracer: tp.Tracer(ScopeName),
		ctx:    ctx,
		spans:  make(map[*statemech.StateMachine]trace.Span),
	}
}

// Bind adds t as an observer of sm.
func (t *Tracer) Bind(sm *statemech.StateMachine) *Tracer {
	sm.AddObserver(t)
	return t
}

func (t *Tracer) TransitionBegin(n statemech.TransitionNotification) {
	_, span := t.tracer.Start(t.ctx, SpanTransition, trace.WithAttributes(
		attribute.String("statemech.machine", n.Machine.Name()),
		attribute.String("statemech.from", n.From.String()),
		attribute.String("statemech.to", n.To.String()),
		attribute.String("statemech.event", n.Event.String()),
		attribute.String("statemech.kind", n.Kind.String()),
		attribute.String("statemech.mode", n.Mode.String()),
		attribute.Bool("statemech.inner", n.IsInner),
	))

	t.mx.Lock()
	defer t.mx.Unlock()
	t.spans[n.Machine.Root()] = span
}

func (t *Tracer) TransitionFinished(n statemech.TransitionNotification) {
	if span := t.take(n.Machine.Root()); span != nil {
		span.SetStatus(codes.Ok, "")
		span.End()
	}
}

func (t *Tracer) TransitionNotFound(n statemech.NotFoundNotification) {
	t.instant(SpanNotFound, n)
}

func (t *Tracer) EventIgnored(n statemech.NotFoundNotification) {
	t.instant(SpanIgnored, n)
}

func (t *Tracer) Faulted(n statemech.FaultNotification) {
	f := n.Fault
	span := t.take(f.To.Machine().Root())
	if span == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("statemech.fault.component", f.Component.String()),
	}
	if f.Group != nil {
		attrs = append(attrs, attribute.String("statemech.fault.group", f.Group.Name()))
	}
	span.RecordError(f.Err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, f.String())
	span.End()
}

func (t *Tracer) take(root *statemech.StateMachine) trace.Span {
	t.mx.Lock()
	defer t.mx.Unlock()

	span, ok := t.spans[root]
	if !ok {
		return nil
	}
	delete(t.spans, root)
	return span
}

func (t *Tracer) instant(name string, n statemech.NotFoundNotification) {
	_, span := t.tracer.Start(t.ctx, name, trace.WithAttributes(
		attribute.String("statemech.machine", n.Machine.Name()),
		attribute.String("statemech.state", n.State.String()),
		attribute.String("statemech.event", n.Event.String()),
		attribute.String("statemech.mode", n.Mode.String()),
	))
	span.End()
}
