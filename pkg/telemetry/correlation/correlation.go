// Package correlation carries one id from the inbound HTTP call through the
// request unit of work and onto the notification events it publishes.
package correlation

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
)

const (
	FieldCorrelationID = "correlation_id"
	FieldPublishedAt   = "published_at"
	FieldTraceID       = "trace_id"
	FieldSpanID        = "span_id"
)

type key struct{}

// NewID returns a lexically sortable id.
func NewID() string {
	return ulid.Make().String()
}

func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(key{}).(string)
	return id
}

// WithID stores id on ctx. Blank ids leave ctx untouched.
func WithID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, key{}, id)
}

// Ensure returns ctx carrying a correlation id, minting one when absent.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := NewID()
	return WithID(ctx, id), id
}

// Stamp builds the metadata attached to an outbound event.
func Stamp(ctx context.Context, publishedAt time.Time) map[string]string {
	_, id := Ensure(ctx)
	fields := map[string]string{
		FieldCorrelationID: id,
		FieldPublishedAt:   publishedAt.UTC().Format(time.RFC3339),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields[FieldTraceID] = sc.TraceID().String()
		fields[FieldSpanID] = sc.SpanID().String()
	}
	return fields
}
