package channel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/params"
)

// HTTPTransportElement sends encoded messages with HTTP POST. It must be the
// last element of a binding.
type HTTPTransportElement struct {
	MaxReceivedMessageSize int64
	MaxBufferPoolSize      int64
	RequireHTTPS           bool
	Timeouts               Timeouts
	// Client overrides the HTTP client. An *http.Client in the build
	// parameters takes precedence.
	Client *http.Client
}

// Clone implements BindingElement.
func (e *HTTPTransportElement) Clone() BindingElement {
	clone := *e
	return &clone
}

// BuildChannelFactory implements BindingElement.
func (e *HTTPTransportElement) BuildChannelFactory(bc *BuildContext) (ChannelFactory, error) {
	var encoder MessageEncoder
	if enc, ok := params.Find[MessageEncodingElement](bc.Parameters); ok {
		encoder = enc.CreateMessageEncoder()
	} else {
		encoder = NewTextMessageEncodingElement().CreateMessageEncoder()
	}

	client, ok := params.Find[*http.Client](bc.Parameters)
	if !ok {
		client = e.Client
	}
	if client == nil {
		client = e.newClient()
	}

	maxReceived := e.MaxReceivedMessageSize
	if maxReceived <= 0 {
		maxReceived = constants.DefaultMaxReceivedMessageSize
	}
	maxPool := e.MaxBufferPoolSize
	if maxPool <= 0 {
		maxPool = constants.DefaultMaxBufferPoolSize
	}

	return &httpChannelFactory{
		encoder:      encoder,
		client:       client,
		maxReceived:  maxReceived,
		requireHTTPS: e.RequireHTTPS,
		buffers:      newBufferPool(maxPool),
	}, nil
}

func (e *HTTPTransportElement) newClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: e.Timeouts.Open}).DialContext
	transport.TLSHandshakeTimeout = e.Timeouts.Open
	transport.ResponseHeaderTimeout = e.Timeouts.Receive
	return &http.Client{
		Transport: transport,
		Timeout:   e.Timeouts.Send + e.Timeouts.Receive,
	}
}

type httpChannelFactory struct {
	encoder      MessageEncoder
	client       *http.Client
	maxReceived  int64
	requireHTTPS bool
	buffers      *bufferPool
}

func (f *httpChannelFactory) CreateChannel(to, via *url.URL) (RequestChannel, error) {
	if to == nil {
		return nil, errors.ErrInvalidEndpoint
	}
	if via == nil {
		via = to
	}
	switch via.Scheme {
	case "https":
	case "http":
		if f.requireHTTPS {
			return nil, errors.ErrInvalidConfiguration.
				WithMessage("the provided URI scheme is invalid; expected https").
				WithDetail("via", via.String())
		}
	default:
		return nil, errors.ErrInvalidConfiguration.
			WithMessage("unsupported URI scheme").
			WithDetail("via", via.String())
	}
	return &httpRequestChannel{factory: f, to: to, via: via, params: params.New()}, nil
}

type httpRequestChannel struct {
	factory *httpChannelFactory
	to      *url.URL
	via     *url.URL
	params  *params.Collection
}

func (c *httpRequestChannel) Open(ctx context.Context) error { return ctx.Err() }
func (c *httpRequestChannel) Close(context.Context) error    { return nil }
func (c *httpRequestChannel) Abort()                         {}

func (c *httpRequestChannel) Parameters() *params.Collection { return c.params }
func (c *httpRequestChannel) RemoteAddress() *url.URL        { return c.to }
func (c *httpRequestChannel) Via() *url.URL                  { return c.via }

func (c *httpRequestChannel) Request(ctx context.Context, msg *Message) (*Message, error) {
	if msg.To == "" {
		msg.To = c.to.String()
	}
	contentType := c.factory.encoder.ContentType(msg)

	buf := c.factory.buffers.get()
	defer c.factory.buffers.put(buf)
	if err := c.factory.encoder.WriteMessage(ctx, msg, buf); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.via.String(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, errors.ErrTransport.WithError(err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.factory.client.Do(req)
	if err != nil {
		return nil, errors.ErrTransport.WithDetail("via", c.via.String()).WithError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.factory.maxReceived+1))
	if err != nil {
		return nil, errors.ErrTransport.WithMessage("read response").WithError(err)
	}
	if int64(len(data)) > c.factory.maxReceived {
		return nil, errors.ErrQuotaExceeded.
			WithDetail("quota", "max_received_message_size").
			WithDetail("limit", fmt.Sprint(c.factory.maxReceived))
	}
	if len(data) == 0 {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, nil
		}
		return nil, errors.ErrTransport.
			WithMessage("unexpected HTTP status").
			WithDetail("status", resp.Status)
	}

	reply, err := c.factory.encoder.ReadMessage(ctx, bytes.NewReader(data), resp.Header.Get("Content-Type"))
	if err != nil {
		if resp.StatusCode >= 300 {
			return nil, errors.ErrTransport.
				WithMessage("unexpected HTTP status").
				WithDetail("status", resp.Status).
				WithError(err)
		}
		return nil, err
	}
	return reply, nil
}

// bufferPool recycles encode buffers. Buffers that grew past the pool limit are
// dropped rather than retained.
type bufferPool struct {
	pool    sync.Pool
	maxSize int64
}

func newBufferPool(maxSize int64) *bufferPool {
	return &bufferPool{
		pool:    sync.Pool{New: func() any { return new(bytes.Buffer) }},
		maxSize: maxSize,
	}
}

func (p *bufferPool) get() *bytes.Buffer {
	buf := p.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func (p *bufferPool) put(buf *bytes.Buffer) {
	if int64(buf.Cap()) > p.maxSize {
		return
	}
	p.pool.Put(buf)
}
