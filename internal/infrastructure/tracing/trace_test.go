package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/wsl-terminal/internal/shared/id"
)

func newObservedTracer() (*Tracer, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return New("test", zap.New(core)), logs
}

func fieldMap(fields []zap.Field) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Key] = f.String
	}
	return out
}

func TestStartJoinsTrace(t *testing.T) {
	tracer, _ := newObservedTracer()
	defer tracer.Close()

	parent, ctx := tracer.Start(context.Background(), "parent")
	child, childCtx := tracer.Start(ctx, "child")

	assert.True(t, id.IsValid(parent.TraceID))
	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.Empty(t, parent.ParentID)

	assert.Equal(t, map[string]string{"trace_id": child.TraceID, "span_id": child.SpanID}, fieldMap(Fields(childCtx)))
	assert.Nil(t, Fields(context.Background()))
}

func TestCloseDrainsEndedSpans(t *testing.T) {
	tracer, logs := newObservedTracer()

	span, _ := tracer.Start(context.Background(), "control.get_tabs")
	span.Tag("action", "get_tabs")
	span.End()

	failed, _ := tracer.Start(context.Background(), "control.close_tab")
	failed.Fail(errors.New("timeout"))
	failed.End()

	tracer.Close()

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, 1, logs.FilterMessage("Span failed").Len())
	assert.Equal(t, 1, logs.FilterField(zap.String("action", "get_tabs")).Len())

	// ending after close is ignored
	assert.NotPanics(t, span.End)
	tracer.Close()
}

func TestNilTracerDiscardsSpans(t *testing.T) {
	var tracer *Tracer

	span, ctx := tracer.Start(context.Background(), "control.ping")
	span.Tag("outcome", "replied")
	assert.NotPanics(t, span.End)
	assert.NotEmpty(t, Fields(ctx))
	tracer.Close()
}

func TestExtractAcceptsOnlyMintedIDs(t *testing.T) {
	trace := id.NewRequestID().String()
	parent := id.NewRequestID().String()

	h := http.Header{}
	h.Set(TraceHeader, trace)
	h.Set(SpanHeader, parent)
	assert.Equal(t, map[string]string{"trace_id": trace, "span_id": parent},
		fieldMap(Fields(Extract(context.Background(), h))))

	h.Set(SpanHeader, "not-an-id")
	assert.Equal(t, map[string]string{"trace_id": trace, "span_id": ""},
		fieldMap(Fields(Extract(context.Background(), h))))

	h.Set(TraceHeader, "trace-1")
	assert.Nil(t, Fields(Extract(context.Background(), h)))
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer, logs := newObservedTracer()

	var handlerFields map[string]string
	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/health", func(c *gin.Context) {
		handlerFields = fieldMap(Fields(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	inbound := id.NewRequestID().String()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(TraceHeader, inbound)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, inbound, w.Header().Get(TraceHeader))
	assert.Equal(t, w.Header().Get(SpanHeader), handlerFields["span_id"])
	assert.Equal(t, inbound, handlerFields["trace_id"])

	// a foreign trace id starts a fresh trace
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(TraceHeader, "trace-1")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.True(t, id.IsValid(w.Header().Get(TraceHeader)))

	tracer.Close()
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, 2, logs.FilterField(zap.String("http.status", "200")).Len())
}
