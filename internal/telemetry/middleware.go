package telemetry

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "fittrack-api"

// TraceOptions tunes the request tracing middleware
type TraceOptions struct {
	// SkipPaths are served without a span (probes and scrapes)
	SkipPaths []string
	// UserLocal is the fiber Locals key holding the authenticated user id
	UserLocal string
	// ReplayHeader marks responses served from the idempotency cache
	ReplayHeader string
}

// FiberMiddleware opens a server span per request, names it after the matched
// route and exposes the trace id in X-Trace-ID.
func FiberMiddleware(opts TraceOptions) fiber.Handler {
	tracer := otel.Tracer(tracerName)
	propagator := otel.GetTextMapPropagator()
	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := skip[c.Path()]; ok {
			return c.Next()
		}

		ctx := propagator.Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))
		ctx, span := tracer.Start(ctx, c.Method(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(c.Method()),
				semconv.URLPath(c.Path()),
				semconv.ServerAddress(c.Hostname()),
				semconv.ClientAddress(c.IP()),
				semconv.UserAgentOriginal(c.Get(fiber.HeaderUserAgent)),
			),
		)
		defer span.End()

		c.SetUserContext(ctx)
		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Set("X-Trace-ID", sc.TraceID().String())
		}

		err := c.Next()
		annotate(c, span, opts, err)
		return err
	}
}

func annotate(c *fiber.Ctx, span trace.Span, opts TraceOptions, err error) {
	route := c.Route().Path
	span.SetName(c.Method() + " " + route)

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	span.SetAttributes(
		semconv.HTTPRoute(route),
		semconv.HTTPResponseStatusCode(status),
	)

	if opts.UserLocal != "" {
		if userID, ok := c.Locals(opts.UserLocal).(string); ok && userID != "" {
			span.SetAttributes(attribute.String("enduser.id", userID))
		}
	}
	if opts.ReplayHeader != "" && len(c.Response().Header.Peek(opts.ReplayHeader)) > 0 {
		span.SetAttributes(attribute.Bool("fittrack.idempotent_replay", true))
	}

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case status >= fiber.StatusInternalServerError:
		span.SetStatus(codes.Error, fiber.ErrInternalServerError.Message)
	}
}
