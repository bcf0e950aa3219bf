package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"autoservice/internal/auth"
)

func startSpan(ctx context.Context, name string, caller auth.Principal, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("caller.id", caller.UserID))
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan закрывает span, отмечая ошибку
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
