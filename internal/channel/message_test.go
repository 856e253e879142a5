package channel

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
)

func TestMessage_SinglePass(t *testing.T) {
	msg := NewMessage(echoAction, echoRequest())
	assert.True(t, strings.HasPrefix(msg.MessageID, "urn:uuid:"))
	assert.False(t, msg.Consumed())

	body, err := msg.Body()
	require.NoError(t, err)
	assert.Equal(t, "EchoRequest", body.Tag)
	assert.True(t, msg.Consumed())

	_, err = msg.Body()
	assert.ErrorIs(t, err, errors.ErrMessageConsumed)

	_, err = msg.CreateBufferedCopy()
	assert.ErrorIs(t, err, errors.ErrMessageConsumed)
}

func TestMessage_BufferedCopy(t *testing.T) {
	msg := NewMessage(echoAction, echoRequest())
	msg.AddHeader(etree.NewElement("Custom"), true)

	buf, err := msg.CreateBufferedCopy()
	require.NoError(t, err)
	assert.True(t, msg.Consumed())

	first := buf.CreateMessage()
	second := buf.CreateMessage()
	assert.Equal(t, msg.MessageID, first.MessageID)
	assert.Equal(t, echoAction, first.Action)
	require.Len(t, first.Headers, 1)
	assert.True(t, first.Headers[0].MustUnderstand)

	b1, err := first.Body()
	require.NoError(t, err)
	b1.SetText("changed")

	b2, err := second.Body()
	require.NoError(t, err)
	assert.Equal(t, "hello", b2.Text())
}

func TestTextEncoder_RoundTrip(t *testing.T) {
	enc := NewTextMessageEncodingElement().CreateMessageEncoder()
	msg := NewMessage(echoAction, echoRequest())
	msg.To = "https://svc.example.com/echo"
	msg.RelatesTo = "urn:uuid:previous"
	header := etree.NewElement("t:Trace")
	header.CreateAttr("xmlns:t", "urn:trace")
	msg.AddHeader(header, false)

	ct := enc.ContentType(msg)
	assert.Contains(t, ct, constants.MediaTypeSOAP12)
	assert.Contains(t, ct, `action="urn:echo/Echo"`)

	var out bytes.Buffer
	require.NoError(t, enc.WriteMessage(context.Background(), msg, &out))
	assert.Contains(t, out.String(), `<a:ReplyTo><a:Address>`+anonymousAddress+`</a:Address></a:ReplyTo>`)

	read, err := enc.ReadMessage(context.Background(), &out, ct)
	require.NoError(t, err)
	assert.Equal(t, echoAction, read.Action)
	assert.Equal(t, msg.MessageID, read.MessageID)
	assert.Equal(t, "urn:uuid:previous", read.RelatesTo)
	assert.Equal(t, "https://svc.example.com/echo", read.To)
	assert.False(t, read.IsFault)
	require.Len(t, read.Headers, 1)
	assert.Equal(t, "Trace", read.Headers[0].Element.Tag)

	body, err := read.Body()
	require.NoError(t, err)
	assert.Equal(t, "hello", body.Text())
}

func TestTextEncoder_ReadRejects(t *testing.T) {
	enc := NewTextMessageEncodingElement().CreateMessageEncoder()
	tests := []struct {
		name        string
		contentType string
		data        string
	}{
		{name: "content type", contentType: "application/json", data: envelope(echoResponse)},
		{name: "malformed", contentType: constants.MediaTypeSOAP12, data: "<s:Envelope"},
		{name: "not an envelope", contentType: constants.MediaTypeSOAP12, data: "<Envelope/>"},
		{name: "unknown namespace", contentType: "", data: `<Envelope xmlns="urn:other"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.ReadMessage(context.Background(), strings.NewReader(tt.data), tt.contentType)
			assert.ErrorIs(t, err, errors.ErrTransport)
		})
	}
}

func TestTextEncoder_ReaderQuotas(t *testing.T) {
	tests := []struct {
		name   string
		quotas ReaderQuotas
		body   string
		quota  string
	}{
		{
			name:   "depth",
			quotas: ReaderQuotas{MaxDepth: 3},
			body:   `<a><b><c/></b></a>`,
			quota:  "max_depth",
		},
		{
			name:   "array length",
			quotas: ReaderQuotas{MaxArrayLength: 2},
			body:   `<list><i/><i/><i/></list>`,
			quota:  "max_array_length",
		},
		{
			name:   "string content",
			quotas: ReaderQuotas{MaxStringContentLength: 4},
			body:   `<v>too long</v>`,
			quota:  "max_string_content_length",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := (&TextMessageEncodingElement{ReaderQuotas: tt.quotas}).CreateMessageEncoder()
			_, err := enc.ReadMessage(context.Background(), strings.NewReader(envelope(tt.body)), "")
			require.ErrorIs(t, err, errors.ErrQuotaExceeded)

			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.quota, appErr.Details["quota"])
		})
	}
}

func TestParseFault(t *testing.T) {
	enc := NewTextMessageEncodingElement().CreateMessageEncoder()
	msg, err := enc.ReadMessage(context.Background(), strings.NewReader(envelope(senderFault)), "")
	require.NoError(t, err)
	require.True(t, msg.IsFault)

	body, err := msg.Body()
	require.NoError(t, err)
	fault := parseFault(body)
	assert.Equal(t, "s:Sender/a:InvalidSecurity", fault.Code)
	assert.Equal(t, "token rejected", fault.Reason)
	assert.Equal(t, "soap fault s:Sender/a:InvalidSecurity: token rejected", fault.Error())

	soap11 := etree.NewDocument()
	require.NoError(t, soap11.ReadFromString(`<Fault><faultcode>Client</faultcode><faultstring>bad</faultstring><detail><x/></detail></Fault>`))
	fault = parseFault(soap11.Root())
	assert.Equal(t, "Client", fault.Code)
	assert.Equal(t, "bad", fault.Reason)
	assert.NotNil(t, fault.Detail)
}
