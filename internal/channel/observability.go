package channel

import (
	"context"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/soapproxy/internal/domain/service"
)

// requestFunc intercepts Request on a wrapped channel.
type requestFunc func(ctx context.Context, msg *Message, next RequestChannel) (*Message, error)

type interceptFactory struct {
	inner     ChannelFactory
	intercept requestFunc
}

func (f *interceptFactory) CreateChannel(to, via *url.URL) (RequestChannel, error) {
	inner, err := f.inner.CreateChannel(to, via)
	if err != nil {
		return nil, err
	}
	return &interceptChannel{RequestChannel: inner, intercept: f.intercept}, nil
}

type interceptChannel struct {
	RequestChannel
	intercept requestFunc
}

func (c *interceptChannel) Request(ctx context.Context, msg *Message) (*Message, error) {
	return c.intercept(ctx, msg, c.RequestChannel)
}

// ================================================================================
// Tracing
// ================================================================================

// TracingElement starts an OpenTelemetry client span around every request.
type TracingElement struct {
	Tracer   trace.Tracer
	Contract string
}

// NewTracingElement creates a tracing stage. A nil tracer uses the global
// tracer provider.
func NewTracingElement(tracer trace.Tracer, contract string) *TracingElement {
	return &TracingElement{Tracer: tracer, Contract: contract}
}

// Clone implements BindingElement.
func (e *TracingElement) Clone() BindingElement {
	clone := *e
	return &clone
}

// BuildChannelFactory implements BindingElement.
func (e *TracingElement) BuildChannelFactory(bc *BuildContext) (ChannelFactory, error) {
	inner, err := bc.BuildInnerChannelFactory()
	if err != nil {
		return nil, err
	}
	tracer := e.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/turtacn/soapproxy/internal/channel")
	}
	contract := e.Contract
	return &interceptFactory{inner: inner, intercept: func(ctx context.Context, msg *Message, next RequestChannel) (*Message, error) {
		ctx, span := tracer.Start(ctx, "soap.request",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("soap.contract", contract),
				attribute.String("soap.action", msg.Action),
				attribute.String("soap.message_id", msg.MessageID),
				attribute.String("server.address", next.RemoteAddress().String()),
			),
		)
		defer span.End()

		reply, err := next.Request(ctx, msg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if reply != nil && reply.IsFault {
			span.SetAttributes(attribute.Bool("soap.fault", true))
		}
		span.SetStatus(codes.Ok, "")
		return reply, nil
	}}, nil
}

// ================================================================================
// Metrics
// ================================================================================

// MetricsElement records the outcome and latency of every request.
type MetricsElement struct {
	Metrics  service.Metrics
	Contract string
}

// NewMetricsElement creates a metrics stage.
func NewMetricsElement(metrics service.Metrics, contract string) *MetricsElement {
	return &MetricsElement{Metrics: metrics, Contract: contract}
}

// Clone implements BindingElement.
func (e *MetricsElement) Clone() BindingElement {
	clone := *e
	return &clone
}

// BuildChannelFactory implements BindingElement.
func (e *MetricsElement) BuildChannelFactory(bc *BuildContext) (ChannelFactory, error) {
	inner, err := bc.BuildInnerChannelFactory()
	if err != nil {
		return nil, err
	}
	metrics := e.Metrics
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	contract := e.Contract
	return &interceptFactory{inner: inner, intercept: func(ctx context.Context, msg *Message, next RequestChannel) (*Message, error) {
		start := time.Now()
		action := msg.Action
		reply, err := next.Request(ctx, msg)
		success := err == nil && (reply == nil || !reply.IsFault)
		metrics.RecordSOAPRequest(contract, action, success, time.Since(start))
		return reply, err
	}}, nil
}
