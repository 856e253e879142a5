package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/gin-gonic/gin"

	"github.com/turtacn/soapproxy/internal/channel"
	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/internal/domain/service"
	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/params"
)

const (
	echoAction  = "urn:echo/Echo"
	faultAction = "urn:stub/Fail"
	bearerType  = models.TokenType("urn:test:bearer")
)

// ================================================================================
// Contracts
// ================================================================================

// Echo is the contract used throughout the tests.
type Echo interface {
	Echo(ctx context.Context, text string) (string, error)
	Channel() *channel.ServiceChannel
}

type echoClient struct {
	ch *channel.ServiceChannel
}

func newEchoClient(ch *channel.ServiceChannel) Echo { return &echoClient{ch: ch} }

func (c *echoClient) Channel() *channel.ServiceChannel { return c.ch }

func (c *echoClient) Echo(ctx context.Context, text string) (string, error) {
	req := etree.NewElement("EchoRequest")
	req.CreateAttr("xmlns", "urn:echo")
	req.SetText(text)
	reply, err := c.ch.Call(ctx, echoAction, req)
	if err != nil {
		return "", err
	}
	if reply == nil {
		return "", nil
	}
	return reply.Text(), nil
}

// Ping is a second, unrelated contract.
type Ping struct {
	ch *channel.ServiceChannel
}

func newPing(ch *channel.ServiceChannel) Ping { return Ping{ch: ch} }

// ================================================================================
// Bearer token format
// ================================================================================

type bearerToken struct {
	raw     string
	validTo time.Time
}

func (t *bearerToken) ID() string                       { return "bearer-" + t.raw }
func (t *bearerToken) ValidFrom() time.Time             { return time.Time{} }
func (t *bearerToken) ValidTo() time.Time               { return t.validTo }
func (t *bearerToken) SecurityKey() models.SecurityKey { return nil }
func (t *bearerToken) TokenTypes() []models.TokenType {
	return []models.TokenType{bearerType, models.TokenTypeSecurityToken}
}

// bearerHandler reads strings prefixed with "tok-" and writes them as a
// BearerToken element.
type bearerHandler struct {
	reads atomic.Int32
}

func (h *bearerHandler) TokenType() models.TokenType { return bearerType }
func (h *bearerHandler) CanWriteToken() bool         { return true }
func (h *bearerHandler) CanReadToken(raw string) bool {
	return strings.HasPrefix(raw, "tok-")
}

func (h *bearerHandler) ReadToken(raw string) (models.SecurityToken, error) {
	h.reads.Add(1)
	return &bearerToken{raw: raw, validTo: time.Now().Add(time.Hour)}, nil
}

func (h *bearerHandler) WriteToken(w io.Writer, token models.SecurityToken) error {
	bt, ok := token.(*bearerToken)
	if !ok {
		return fmt.Errorf("unexpected token %T", token)
	}
	el := etree.NewElement("BearerToken")
	el.CreateAttr("xmlns", string(bearerType))
	el.SetText(bt.raw)
	doc := etree.NewDocument()
	doc.SetRoot(el)
	_, err := doc.WriteTo(w)
	return err
}

var _ service.SecurityTokenHandler = (*bearerHandler)(nil)

// ================================================================================
// Stub transport
// ================================================================================

// stubTransport is a transport element whose channels never touch the
// network. Requests with faultAction fail, which faults the service channel.
type stubTransport struct{}

func (e *stubTransport) Clone() channel.BindingElement { return &stubTransport{} }

func (e *stubTransport) BuildChannelFactory(*channel.BuildContext) (channel.ChannelFactory, error) {
	return stubChannelFactory{}, nil
}

type stubChannelFactory struct{}

func (stubChannelFactory) CreateChannel(to, via *url.URL) (channel.RequestChannel, error) {
	if via == nil {
		via = to
	}
	return &stubChannel{to: to, via: via, params: params.New()}, nil
}

type stubChannel struct {
	to, via *url.URL
	params  *params.Collection
}

func (c *stubChannel) Open(context.Context) error  { return nil }
func (c *stubChannel) Close(context.Context) error { return nil }
func (c *stubChannel) Abort()                      {}
func (c *stubChannel) RemoteAddress() *url.URL     { return c.to }
func (c *stubChannel) Via() *url.URL               { return c.via }

func (c *stubChannel) Parameters() *params.Collection { return c.params }

func (c *stubChannel) Request(_ context.Context, msg *channel.Message) (*channel.Message, error) {
	if msg.Action == faultAction {
		return nil, errors.ErrTransport.WithMessage("stub failure")
	}
	return nil, nil
}

// stubInitializer builds channels over stubTransport and counts its calls.
type stubInitializer struct {
	calls atomic.Int32
}

func (i *stubInitializer) InitializeProxy(_ context.Context, opts *Options, token models.SecurityToken) (*channel.ServiceChannel, error) {
	i.calls.Add(1)
	f := channel.NewIssuedTokenChannelFactory(channel.NewCustomBinding("stub", &stubTransport{}), opts.Key, opts.Address())
	f.SetSecurityTokenHandlers(opts.SecurityTokenHandlers...)
	return f.CreateChannelWithIssuedToken(token)
}

// fail faults ch by sending a request the stub transport rejects.
func fail(ch *channel.ServiceChannel) {
	_, _ = ch.Call(context.Background(), faultAction, etree.NewElement("Fail"))
}

// ================================================================================
// Fake SOAP service
// ================================================================================

// echoServer echoes the EchoRequest text and records the bearer token it received.
type echoServer struct {
	*httptest.Server

	mu     sync.Mutex
	tokens []string
}

func newEchoServer(t *testing.T) *echoServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &echoServer{}
	r := gin.New()
	r.POST("/echo", func(c *gin.Context) {
		doc := etree.NewDocument()
		if _, err := doc.ReadFrom(c.Request.Body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		token := ""
		if el := doc.FindElement("//Header/Security/BearerToken"); el != nil {
			token = el.Text()
		}
		text := ""
		if el := doc.FindElement("//Body/EchoRequest"); el != nil {
			text = el.Text()
		}
		s.mu.Lock()
		s.tokens = append(s.tokens, token)
		s.mu.Unlock()

		body := `<s:Envelope xmlns:s="` + constants.NamespaceSOAP12 + `"><s:Body>` +
			`<EchoResponse xmlns="urn:echo">` + text + `</EchoResponse></s:Body></s:Envelope>`
		c.Data(http.StatusOK, constants.MediaTypeSOAP12+"; charset=utf-8", []byte(body))
	})
	s.Server = httptest.NewTLSServer(r)
	t.Cleanup(s.Close)
	return s
}

func (s *echoServer) receivedTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokens...)
}

// ================================================================================
// Metrics
// ================================================================================

type createRecord struct {
	key     string
	success bool
	code    string
}

type recordingMetrics struct {
	service.NoopMetrics

	mu       sync.Mutex
	creates  []createRecord
	cached   int
	requests int
}

func (m *recordingMetrics) RecordProxyCreate(key string, success bool, _ time.Duration, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates = append(m.creates, createRecord{key: key, success: success, code: code})
}

func (m *recordingMetrics) SetCachedProxies(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = count
}

func (m *recordingMetrics) RecordSOAPRequest(string, string, bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
}

func (m *recordingMetrics) snapshot() ([]createRecord, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]createRecord(nil), m.creates...), m.cached, m.requests
}
