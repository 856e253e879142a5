package channel

import (
	"bytes"
	"context"
	"io"

	"github.com/turtacn/soapproxy/pkg/logger"
)

// TraceMessageEncodingElement wraps another encoding element and logs every
// message written or read at debug level. Messages are buffered and recreated
// so the wrapped encoder still sees an unconsumed message.
type TraceMessageEncodingElement struct {
	Inner  MessageEncodingElement
	Logger logger.Logger
}

// NewTraceMessageEncodingElement wraps inner.
func NewTraceMessageEncodingElement(inner MessageEncodingElement, log logger.Logger) *TraceMessageEncodingElement {
	return &TraceMessageEncodingElement{Inner: inner, Logger: logger.OrNoop(log)}
}

// Clone implements BindingElement.
func (e *TraceMessageEncodingElement) Clone() BindingElement {
	inner, _ := e.Inner.Clone().(MessageEncodingElement)
	return &TraceMessageEncodingElement{Inner: inner, Logger: e.Logger}
}

// BuildChannelFactory registers the element for the transport and continues.
func (e *TraceMessageEncodingElement) BuildChannelFactory(bc *BuildContext) (ChannelFactory, error) {
	bc.Parameters.Add(e)
	return bc.BuildInnerChannelFactory()
}

// CreateMessageEncoder implements MessageEncodingElement.
func (e *TraceMessageEncodingElement) CreateMessageEncoder() MessageEncoder {
	return &traceMessageEncoder{inner: e.Inner.CreateMessageEncoder(), logger: logger.OrNoop(e.Logger)}
}

type traceMessageEncoder struct {
	inner  MessageEncoder
	logger logger.Logger
}

func (e *traceMessageEncoder) ContentType(msg *Message) string {
	return e.inner.ContentType(msg)
}

func (e *traceMessageEncoder) WriteMessage(ctx context.Context, msg *Message, w io.Writer) error {
	log := e.logger.ForContext(ctx)
	if !log.Enabled(logger.DebugLevel) {
		return e.inner.WriteMessage(ctx, msg, w)
	}

	buf, err := msg.CreateBufferedCopy()
	if err != nil {
		return err
	}
	log.Debug(ctx, "SOAP request", logger.Fields{
		"action":  msg.Action,
		"message": e.render(ctx, buf.CreateMessage()),
	})
	return e.inner.WriteMessage(ctx, buf.CreateMessage(), w)
}

func (e *traceMessageEncoder) ReadMessage(ctx context.Context, r io.Reader, contentType string) (*Message, error) {
	msg, err := e.inner.ReadMessage(ctx, r, contentType)
	if err != nil {
		return nil, err
	}
	log := e.logger.ForContext(ctx)
	if !log.Enabled(logger.DebugLevel) {
		return msg, nil
	}

	buf, err := msg.CreateBufferedCopy()
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, "SOAP response", logger.Fields{
		"action":  msg.Action,
		"fault":   msg.IsFault,
		"message": e.render(ctx, buf.CreateMessage()),
	})
	return buf.CreateMessage(), nil
}

func (e *traceMessageEncoder) render(ctx context.Context, msg *Message) string {
	var out bytes.Buffer
	if err := e.inner.WriteMessage(ctx, msg, &out); err != nil {
		return "<unrenderable: " + err.Error() + ">"
	}
	return out.String()
}
