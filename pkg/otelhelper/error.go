package otelhelper

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks span as failed with err. The Go type of err is recorded so
// that lock contention and validation failures can be told apart.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	attrs = append(attrs, attribute.String("error.type", fmt.Sprintf("%T", err)))
	span.AddEvent("error_occurred", trace.WithAttributes(attrs...))
}
