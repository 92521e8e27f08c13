package tracing

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/wsl-terminal/internal/shared/id"
)

// Headers carrying trace context on the UI gateway.
const (
	TraceHeader = "X-Trace-ID"
	SpanHeader  = "X-Span-ID"
)

const spanBuffer = 1000

// Span times one HTTP request or control round trip.
type Span struct {
	TraceID  string
	SpanID   string
	ParentID string
	Name     string
	Start    time.Time
	Duration time.Duration
	Tags     map[string]string
	Err      error

	tracer *Tracer
}

// Tag attaches a key/value to the span's log line.
func (s *Span) Tag(key, value string) {
	s.Tags[key] = value
}

// Fail marks the span as failed.
func (s *Span) Fail(err error) {
	s.Err = err
}

// End stops the clock and hands the span to its tracer.
func (s *Span) End() {
	s.Duration = time.Since(s.Start)
	s.tracer.submit(s)
}

// Tracer logs finished spans through zap from a single collector goroutine.
// A nil *Tracer is valid and discards spans.
type Tracer struct {
	service string
	logger  *zap.Logger
	spans   chan *Span
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// New starts a tracer that tags every span with service.
func New(service string, logger *zap.Logger) *Tracer {
	t := &Tracer{
		service: service,
		logger:  logger,
		spans:   make(chan *Span, spanBuffer),
		done:    make(chan struct{}),
	}
	go t.collect()
	return t
}

// Start opens a span. It joins the trace carried by ctx, or starts a new one.
func (t *Tracer) Start(ctx context.Context, name string) (*Span, context.Context) {
	tc, _ := ctx.Value(traceKey{}).(traceContext)
	if tc.traceID == "" {
		tc.traceID = id.NewRequestID().String()
	}

	span := &Span{
		TraceID:  tc.traceID,
		SpanID:   id.NewRequestID().String(),
		ParentID: tc.spanID,
		Name:     name,
		Start:    time.Now(),
		Tags:     make(map[string]string),
		tracer:   t,
	}
	return span, context.WithValue(ctx, traceKey{}, traceContext{traceID: span.TraceID, spanID: span.SpanID})
}

// Close flushes queued spans and stops the collector.
func (t *Tracer) Close() {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.spans)
	t.mu.Unlock()

	<-t.done
}

func (t *Tracer) submit(span *Span) {
	if t == nil {
		return
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}

	select {
	case t.spans <- span:
	default:
		t.logger.Warn("Span buffer full, dropping span", zap.String("operation", span.Name))
	}
}

func (t *Tracer) collect() {
	defer close(t.done)
	for span := range t.spans {
		fields := append(spanFields(span.TraceID, span.SpanID),
			zap.String("operation", span.Name),
			zap.String("service", t.service),
			zap.Duration("duration", span.Duration),
		)
		if span.ParentID != "" {
			fields = append(fields, zap.String("parent_id", span.ParentID))
		}
		for k, v := range span.Tags {
			fields = append(fields, zap.String(k, v))
		}

		if span.Err != nil {
			t.logger.Warn("Span failed", append(fields, zap.Error(span.Err))...)
			continue
		}
		t.logger.Debug("Span finished", fields...)
	}
}

type traceKey struct{}

type traceContext struct {
	traceID string
	spanID  string
}

// Extract reads inbound trace context from h into ctx. Values that are not
// ids minted by this process's id scheme are ignored.
func Extract(ctx context.Context, h http.Header) context.Context {
	tc := traceContext{traceID: h.Get(TraceHeader), spanID: h.Get(SpanHeader)}
	if !id.IsValid(tc.traceID) {
		return ctx
	}
	if !id.IsValid(tc.spanID) {
		tc.spanID = ""
	}
	return context.WithValue(ctx, traceKey{}, tc)
}

// Inject writes span's trace context into h.
func Inject(h http.Header, span *Span) {
	h.Set(TraceHeader, span.TraceID)
	h.Set(SpanHeader, span.SpanID)
}

// Fields returns log fields identifying the span active in ctx, if any.
func Fields(ctx context.Context) []zap.Field {
	tc, ok := ctx.Value(traceKey{}).(traceContext)
	if !ok {
		return nil
	}
	return spanFields(tc.traceID, tc.spanID)
}

func spanFields(traceID, spanID string) []zap.Field {
	return []zap.Field{zap.String("trace_id", traceID), zap.String("span_id", spanID)}
}
