package tracing

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/log"
	jaegerconfig "github.com/uber/jaeger-client-go/config"
)

// LogError adds a span log for an error.
// Returns unchanged error, so useful to wrap as in:
//
//	return nil, tracing.LogError(span, err)
func LogError(span opentracing.Span, err error) error {
	if err != nil {
		span.LogFields(log.Error(err))
	}
	return err
}

// InjectToHTTPRequest adds tracing headers to an outgoing HTTP request.
func InjectToHTTPRequest(span opentracing.Span, req *http.Request) {
	err := opentracing.GlobalTracer().Inject(span.Context(), opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(req.Header))
	if err != nil {
		span.LogFields(log.String("trace-inject-error", err.Error()))
	}
}

// ExtractFromHTTPRequest gets a child span of the parent referenced in HTTP request headers.
// When the request carries no parent a new root span is started.
func ExtractFromHTTPRequest(req *http.Request, handlerName string) (opentracing.Span, *http.Request) {
	spanContext, err := opentracing.GlobalTracer().Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(req.Header))
	if err != nil {
		span, ctx := opentracing.StartSpanFromContext(req.Context(), handlerName+":"+req.URL.Path)
		if err != opentracing.ErrSpanContextNotFound {
			span.LogFields(log.String("trace-extract-error", err.Error()))
		}
		return span, req.WithContext(ctx)
	}

	span := opentracing.StartSpan(handlerName+":"+req.URL.Path, opentracing.ChildOf(spanContext))
	return span, req.WithContext(opentracing.ContextWithSpan(req.Context(), span))
}

// StartSpanFromContextWithOperationName starts a span named operationName as a
// child of any span already on ctx.
func StartSpanFromContextWithOperationName(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	return opentracing.StartSpanFromContext(ctx, operationName)
}

// TenantIDTag is the span tag naming the tenant a span works for.
const TenantIDTag = "tenant_id"

// StartTenantSpan starts a span named op under any span on ctx and tags it
// with tenantID.
func StartTenantSpan(ctx context.Context, op, tenantID string) (opentracing.Span, context.Context) {
	span, ctx := opentracing.StartSpanFromContext(ctx, op)
	if tenantID != "" {
		span.SetTag(TenantIDTag, tenantID)
	}
	return span, ctx
}

// TagTenant tags the span carried by ctx, if there is one.
func TagTenant(ctx context.Context, tenantID string) {
	if span := opentracing.SpanFromContext(ctx); span != nil {
		span.SetTag(TenantIDTag, tenantID)
	}
}

// NewJaegerTracer installs a Jaeger tracer configured from the standard
// JAEGER_* environment variables as the global tracer. The returned closer
// flushes buffered spans.
func NewJaegerTracer(serviceName string) (io.Closer, error) {
	cfg, err := jaegerconfig.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to get Jaeger client config from environment variables: %w", err)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = serviceName
	}
	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate Jaeger tracer: %w", err)
	}
	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}
