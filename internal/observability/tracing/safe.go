package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

var blockedAttributeKeys = map[attribute.Key]struct{}{
	"email":         {},
	"authorization": {},
	"details":       {},
	"title":         {},
}

// ExtractContext pulls upstream trace headers into ctx.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// SafeAttributes drops attributes that may carry user content.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, blocked := blockedAttributeKeys[attr.Key]; blocked {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError reduces an error to its first line so SQL fragments and
// payload echoes stay out of span events.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if idx := strings.IndexAny(msg, "\n\r"); idx >= 0 {
		msg = msg[:idx]
	}
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return errors.New(msg)
}
