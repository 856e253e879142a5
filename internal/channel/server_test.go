package channel

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/xmlutil"
)

const (
	echoAction   = "urn:echo/Echo"
	echoResponse = `<EchoResponse xmlns="urn:echo">hello</EchoResponse>`
	senderFault  = `<s:Fault><s:Code><s:Value>s:Sender</s:Value><s:Subcode><s:Value>a:InvalidSecurity</s:Value></s:Subcode></s:Code>` +
		`<s:Reason><s:Text xml:lang="en">token rejected</s:Text></s:Reason></s:Fault>`
)

// responder produces the HTTP status and SOAP body content for a request envelope.
type responder func(req *etree.Document) (int, string)

// soapServer is a fake SOAP service that records every request it receives.
type soapServer struct {
	*httptest.Server

	mu           sync.Mutex
	requests     []*etree.Document
	contentTypes []string
	respond      responder
}

func newSOAPServer(t *testing.T, useTLS bool, respond responder) *soapServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &soapServer{respond: respond}
	r := gin.New()
	r.POST("/echo", func(c *gin.Context) {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(data); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.requests = append(s.requests, doc)
		s.contentTypes = append(s.contentTypes, c.GetHeader("Content-Type"))
		respond := s.respond
		s.mu.Unlock()

		status, body := respond(doc)
		if body == "" {
			c.Status(status)
			return
		}
		c.Data(status, "application/soap+xml; charset=utf-8", []byte(envelope(body)))
	})

	if useTLS {
		s.Server = httptest.NewTLSServer(r)
	} else {
		s.Server = httptest.NewServer(r)
	}
	t.Cleanup(s.Close)
	return s
}

func (s *soapServer) endpoint(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse(s.URL + "/echo")
	require.NoError(t, err)
	return u
}

func (s *soapServer) lastRequest(t *testing.T) *etree.Document {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests)
	return s.requests[len(s.requests)-1]
}

func (s *soapServer) lastContentType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.contentTypes) == 0 {
		return ""
	}
	return s.contentTypes[len(s.contentTypes)-1]
}

func (s *soapServer) setResponder(r responder) {
	s.mu.Lock()
	s.respond = r
	s.mu.Unlock()
}

func (s *soapServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func fixed(status int, body string) responder {
	return func(*etree.Document) (int, string) { return status, body }
}

func envelope(body string) string {
	return `<s:Envelope xmlns:s="` + constants.NamespaceSOAP12 + `" xmlns:a="` + constants.NamespaceAddressing + `">` +
		`<s:Header><a:Action s:mustUnderstand="1">urn:echo/EchoResponse</a:Action></s:Header>` +
		`<s:Body>` + body + `</s:Body></s:Envelope>`
}

func echoRequest() *etree.Element {
	el := etree.NewElement("EchoRequest")
	el.CreateAttr("xmlns", "urn:echo")
	el.SetText("hello")
	return el
}

func samlToken(t *testing.T, validTo time.Time, key models.SecurityKey) *models.SAML2Token {
	t.Helper()
	el, err := xmlutil.ParseElement([]byte(`<saml2:Assertion xmlns:saml2="urn:oasis:names:tc:SAML:2.0:assertion" ID="_a1" Version="2.0"><saml2:Issuer>sts</saml2:Issuer></saml2:Assertion>`))
	require.NoError(t, err)
	return models.NewSAML2Token("_a1", el, validTo.Add(-time.Hour), validTo, key)
}
