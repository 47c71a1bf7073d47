package rpclient

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// spanRecorder запоминает имена спанов и статусы ошибок.
type spanRecorder struct {
	noop.TracerProvider

	mu     sync.Mutex
	names  []string
	failed []string
}

type recTracer struct {
	noop.Tracer
	rec *spanRecorder
}

type recSpan struct {
	noop.Span
	rec  *spanRecorder
	name string
}

func (r *spanRecorder) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return recTracer{rec: r}
}

func (t recTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.rec.mu.Lock()
	t.rec.names = append(t.rec.names, name)
	t.rec.mu.Unlock()
	return ctx, &recSpan{rec: t.rec, name: name}
}

func (s *recSpan) SetStatus(c codes.Code, _ string) {
	if c != codes.Error {
		return
	}
	s.rec.mu.Lock()
	s.rec.failed = append(s.rec.failed, s.name)
	s.rec.mu.Unlock()
}

func TestAwait_RecordsSpans(t *testing.T) {
	fs := newFakeServer(t, func(r received) {
		if r.req.GetEntityInfo != nil {
			_ = r.conn.write(EncodeMessage(&AppMessage{
				Response: &AppResponse{Seq: r.hdr.Seq, Error: &AppError{Error: "not_found"}},
			}))
			return
		}
		echo(r)
	})
	rec := &spanRecorder{}
	rp := newConnectedClient(t, fs, WithTracerProvider(rec))

	_, err := rp.Await(testContext(t), getTime())
	require.NoError(t, err)
	_, err = rp.Await(testContext(t), &AppRequest{EntityID: 1, GetEntityInfo: &AppEmpty{}})
	require.Error(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"rustplus getTime", "rustplus getEntityInfo"}, rec.names)
	assert.Equal(t, []string{"rustplus getEntityInfo"}, rec.failed)
}
