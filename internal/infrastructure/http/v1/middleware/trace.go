package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appctx "treasury/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

var tracer = otel.Tracer("treasury/http")

// Trace middleware opens a server span per request and stores the trace
// identifiers in the request context. With no tracer provider installed the
// span is a no-op and the IDs come from the headers or are generated.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+c.FullPath(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", c.FullPath()),
			),
		)
		defer span.End()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		tc := &appctx.TraceContext{RequestID: requestID}
		if sc := span.SpanContext(); sc.IsValid() {
			tc.TraceID = sc.TraceID().String()
			tc.SpanID = sc.SpanID().String()
		} else {
			tc.TraceID = c.GetHeader(HeaderTraceID)
			if tc.TraceID == "" {
				tc.TraceID = uuid.NewString()
			}
			tc.SpanID = uuid.NewString()[:16]
		}

		c.Request = c.Request.WithContext(appctx.WithTrace(ctx, tc))

		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, tc.TraceID)

		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}
