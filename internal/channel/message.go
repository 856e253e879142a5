package channel

import (
	"sync"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/turtacn/soapproxy/pkg/errors"
)

// Header is a SOAP header block.
type Header struct {
	Element        *etree.Element
	MustUnderstand bool
}

// Message is a single-pass SOAP message. Its body can be consumed once, either
// by reading it or by buffering the message; use CreateBufferedCopy to obtain
// a buffer from which fresh messages can be created.
type Message struct {
	Action    string
	MessageID string
	RelatesTo string
	To        string
	Headers   []*Header
	IsFault   bool

	mu       sync.Mutex
	body     *etree.Element
	consumed bool
}

// NewMessage creates a request message with a fresh message ID.
func NewMessage(action string, body *etree.Element) *Message {
	return &Message{
		Action:    action,
		MessageID: "urn:uuid:" + uuid.NewString(),
		body:      body,
	}
}

// AddHeader appends a header block.
func (m *Message) AddHeader(el *etree.Element, mustUnderstand bool) {
	m.Headers = append(m.Headers, &Header{Element: el, MustUnderstand: mustUnderstand})
}

// FindHeader returns the first header with the given local name and namespace.
func (m *Message) FindHeader(local, namespace string) *etree.Element {
	for _, h := range m.Headers {
		if h.Element.Tag == local && h.Element.NamespaceURI() == namespace {
			return h.Element
		}
	}
	return nil
}

// Consumed reports whether the body has been read or buffered.
func (m *Message) Consumed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consumed
}

// Body consumes the message and returns its body element, which may be nil for
// an empty body.
func (m *Message) Body() (*etree.Element, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.consumed {
		return nil, errors.ErrMessageConsumed
	}
	m.consumed = true
	return m.body, nil
}

// CreateBufferedCopy consumes the message into a buffer.
func (m *Message) CreateBufferedCopy() (*MessageBuffer, error) {
	body, err := m.Body()
	if err != nil {
		return nil, err
	}
	buf := &MessageBuffer{
		action:    m.Action,
		messageID: m.MessageID,
		relatesTo: m.RelatesTo,
		to:        m.To,
		isFault:   m.IsFault,
	}
	if body != nil {
		buf.body = body.Copy()
	}
	for _, h := range m.Headers {
		buf.headers = append(buf.headers, &Header{Element: h.Element.Copy(), MustUnderstand: h.MustUnderstand})
	}
	return buf, nil
}

// MessageBuffer holds a buffered message.
type MessageBuffer struct {
	action    string
	messageID string
	relatesTo string
	to        string
	isFault   bool
	headers   []*Header
	body      *etree.Element
}

// CreateMessage returns a new, unconsumed message with a deep copy of the
// buffered content.
func (b *MessageBuffer) CreateMessage() *Message {
	m := &Message{
		Action:    b.action,
		MessageID: b.messageID,
		RelatesTo: b.relatesTo,
		To:        b.to,
		IsFault:   b.isFault,
	}
	if b.body != nil {
		m.body = b.body.Copy()
	}
	for _, h := range b.headers {
		m.Headers = append(m.Headers, &Header{Element: h.Element.Copy(), MustUnderstand: h.MustUnderstand})
	}
	return m
}
