package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/servicedesk/internal/observability/context"
	"github.com/smallbiznis/servicedesk/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	AttrCorrelationID = "servicedesk.correlation_id"
	AttrActorID       = "servicedesk.actor_id"
	AttrWorkspaceID   = "servicedesk.workspace_id"
	AttrRequestID     = "servicedesk.request_id"
)

// GinMiddleware opens the server span for an API call. Caller and target
// identifiers set by later handlers are copied onto the span when it ends.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("servicedesk/http")
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+c.Request.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if cid := correlation.FromContext(ctx); cid != "" {
			ctx = withCorrelationBaggage(ctx, cid)
			span.SetAttributes(attribute.String(AttrCorrelationID, cid))
		}
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		span.SetName("HTTP " + c.Request.Method + " " + route)
		span.SetAttributes(SafeAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		)...)
		span.SetAttributes(targetAttributes(c, route)...)

		if c.Writer.Status() >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
	}
}

// targetAttributes reads identifiers only. Titles and details never reach
// a span.
func targetAttributes(c *gin.Context, route string) []attribute.KeyValue {
	ctx := c.Request.Context()
	var attrs []attribute.KeyValue
	if _, actorID := obscontext.ActorFromContext(ctx); actorID != "" {
		attrs = append(attrs, attribute.String(AttrActorID, actorID))
	}
	if workspaceID := obscontext.WorkspaceIDFromContext(ctx); workspaceID != "" {
		attrs = append(attrs, attribute.String(AttrWorkspaceID, workspaceID))
	}
	if strings.Contains(route, "/requests/:id") {
		if id := strings.TrimSpace(c.Param("id")); id != "" {
			attrs = append(attrs, attribute.String(AttrRequestID, id))
		}
	}
	return attrs
}

func withCorrelationBaggage(ctx context.Context, cid string) context.Context {
	member, err := baggage.NewMember("correlation_id", cid)
	if err != nil {
		return ctx
	}
	bag, err := baggage.FromContext(ctx).SetMember(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
