package handoff

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/implindex/internal/domain/implementors"
	"github.com/zjrosen/implindex/internal/log"
	"github.com/zjrosen/implindex/internal/tracing"
)

// Phase is the state of the handoff.
type Phase int

const (
	// Buffering is the initial phase: submissions are stored.
	Buffering Phase = iota
	// Forwarding is the terminal phase: submissions go straight to the intake.
	Forwarding
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Buffering:
		return "buffering"
	case Forwarding:
		return "forwarding"
	default:
		return "unknown"
	}
}

// Stats counts what the handoff has done so far.
type Stats struct {
	Submitted int // accepted Submit calls
	Rejected  int // Submit calls refused (invalid name or duplicate policy)
	Buffered  int // modules currently held in the buffer
	Replayed  int // modules delivered during Attach
	Forwarded int // modules delivered live after Attach
}

// Option configures a Handoff.
type Option func(*Handoff)

// WithPolicy sets how duplicate module registrations are resolved while buffering.
func WithPolicy(p implementors.DuplicatePolicy) Option {
	return func(h *Handoff) {
		h.policy = p
	}
}

// WithTracer sets the tracer used for submit and attach spans.
func WithTracer(t trace.Tracer) Option {
	return func(h *Handoff) {
		if t != nil {
			h.tracer = t
		}
	}
}

// Handoff is the registry slot. The zero value is not usable; call New.
type Handoff struct {
	mu      sync.Mutex // guards everything below except deliver
	deliver sync.Mutex // held while calling intake

	phase   Phase
	order   []string
	pending map[string]implementors.ModuleIndex
	intake  implementors.Intake
	stats   Stats

	policy implementors.DuplicatePolicy
	tracer trace.Tracer
}

// New creates a Handoff in the Buffering phase with an empty buffer.
func New(opts ...Option) *Handoff {
	h := &Handoff{
		pending: make(map[string]implementors.ModuleIndex),
		policy:  implementors.PolicyOverwrite,
		tracer:  tracing.Noop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Submit hands one module's records to the handoff. While buffering, the entry is
// stored (or resolved against an existing one by the duplicate policy). Once a
// consumer is attached, the records are delivered to it before Submit returns.
//
// Returns ErrInvalidModuleName for an empty module name, and ErrDuplicateModule
// when the reject policy refuses a differing duplicate. In both cases the handoff
// is left unchanged.
func (h *Handoff) Submit(ctx context.Context, module string, records []implementors.Record) error {
	_, span := h.tracer.Start(ctx, tracing.SpanSubmit, trace.WithAttributes(
		attribute.String(tracing.AttrModule, module),
		attribute.Int(tracing.AttrRecordCount, len(records)),
	))
	defer span.End()

	idx, err := implementors.NewModuleIndex(module, records)
	if err != nil {
		h.reject(span, module, err)
		return err
	}

	h.mu.Lock()
	if h.phase == Buffering {
		err := h.bufferLocked(idx)
		h.mu.Unlock()
		if err != nil {
			h.reject(span, module, err)
			return err
		}
		span.AddEvent(tracing.EventBuffered)
		span.SetAttributes(attribute.String(tracing.AttrPhase, Buffering.String()))
		log.Debug(log.CatHandoff, "module buffered", "module", module, "records", idx.Len())
		return nil
	}

	intake := h.intake
	h.stats.Submitted++
	h.stats.Forwarded++
	h.mu.Unlock()

	h.deliver.Lock()
	intake(idx.Name(), idx.Records())
	h.deliver.Unlock()

	span.AddEvent(tracing.EventForwarded)
	span.SetAttributes(attribute.String(tracing.AttrPhase, Forwarding.String()))
	log.Debug(log.CatHandoff, "module forwarded", "module", module, "records", idx.Len())
	return nil
}

// bufferLocked stores idx, resolving duplicates with the policy. An overwritten
// module keeps its original insertion position. Caller holds h.mu.
func (h *Handoff) bufferLocked(idx implementors.ModuleIndex) error {
	existing, ok := h.pending[idx.Name()]
	if !ok {
		h.pending[idx.Name()] = idx
		h.order = append(h.order, idx.Name())
		h.stats.Submitted++
		h.stats.Buffered++
		return nil
	}

	kept, err := h.policy.Resolve(existing, idx)
	if err != nil {
		return err
	}
	h.pending[idx.Name()] = kept
	h.stats.Submitted++
	return nil
}

func (h *Handoff) reject(span trace.Span, module string, err error) {
	h.mu.Lock()
	h.stats.Rejected++
	h.mu.Unlock()

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Warn(log.CatHandoff, "submission rejected", "module", module, "error", err)
}

// Attach installs the consumer intake. It switches the handoff to Forwarding,
// replays every buffered module into intake in insertion order, discards the
// buffer, and returns the number of modules replayed. The replay happens
// synchronously, before Attach returns.
//
// A second Attach returns ErrDoubleAttachment without replaying anything and
// without affecting the consumer attached first.
func (h *Handoff) Attach(ctx context.Context, intake implementors.Intake) (int, error) {
	_, span := h.tracer.Start(ctx, tracing.SpanAttach)
	defer span.End()

	if intake == nil {
		span.RecordError(implementors.ErrNilIntake)
		span.SetStatus(codes.Error, implementors.ErrNilIntake.Error())
		return 0, implementors.ErrNilIntake
	}

	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	if h.phase == Forwarding {
		h.mu.Unlock()
		span.RecordError(implementors.ErrDoubleAttachment)
		span.SetStatus(codes.Error, implementors.ErrDoubleAttachment.Error())
		log.Error(log.CatHandoff, "second consumer attachment refused")
		return 0, implementors.ErrDoubleAttachment
	}

	replay := make([]implementors.ModuleIndex, 0, len(h.order))
	for _, name := range h.order {
		replay = append(replay, h.pending[name])
	}
	h.phase = Forwarding
	h.intake = intake
	h.order = nil
	h.pending = nil
	h.stats.Buffered = 0
	h.stats.Replayed = len(replay)
	h.mu.Unlock()

	log.Info(log.CatHandoff, "consumer attached", "replay", len(replay))
	for _, idx := range replay {
		intake(idx.Name(), idx.Records())
	}

	span.AddEvent(tracing.EventReplayed)
	span.SetAttributes(attribute.Int(tracing.AttrReplayCount, len(replay)))
	return len(replay), nil
}

// Phase returns the current phase.
func (h *Handoff) Phase() Phase {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.phase
}

// Policy returns the duplicate policy in effect.
func (h *Handoff) Policy() implementors.DuplicatePolicy {
	return h.policy
}

// Pending returns a snapshot of the buffered modules in insertion order.
// Returns nil once a consumer has attached.
func (h *Handoff) Pending() []implementors.ModuleIndex {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.phase == Forwarding {
		return nil
	}
	out := make([]implementors.ModuleIndex, 0, len(h.order))
	for _, name := range h.order {
		out = append(out, h.pending[name])
	}
	return out
}

// Stats returns a copy of the counters.
func (h *Handoff) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}
