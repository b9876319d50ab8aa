package server

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vango-go/scribble/pkg/server"

func newTracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(tracerName)
}

// startTickSpan opens the span covering one tick.
func (s *Server) startTickSpan(ctx context.Context, seq uint64, sessions int) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "scribble.tick",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int64("scribble.tick.seq", int64(seq)),
			attribute.Int("scribble.tick.sessions", sessions),
		),
	)
}

// startRenderSpan opens a child span for one session's render.
func (s *Server) startRenderSpan(ctx context.Context, sess *Session) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "scribble.render",
		trace.WithAttributes(
			attribute.String("scribble.session_id", sess.ID.String()),
			attribute.Int64("scribble.participant", int64(sess.Number)),
			attribute.String("scribble.tab", sess.Tab().String()),
		),
	)
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
