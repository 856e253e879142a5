package channel

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/beevik/etree"

	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
)

const anonymousAddress = "http://www.w3.org/2005/08/addressing/anonymous"

// ReaderQuotas bound the shape of received documents.
type ReaderQuotas struct {
	MaxDepth               int
	MaxArrayLength         int
	MaxStringContentLength int
}

// DefaultReaderQuotas returns the default quotas.
func DefaultReaderQuotas() ReaderQuotas {
	return ReaderQuotas{
		MaxDepth:               constants.DefaultReaderQuotasMaxDepth,
		MaxArrayLength:         constants.DefaultReaderQuotasMaxArrayLength,
		MaxStringContentLength: constants.DefaultReaderQuotasMaxStringContentLength,
	}
}

// MessageEncoder writes messages to and reads messages from byte streams.
type MessageEncoder interface {
	// ContentType returns the media type for an outgoing message.
	ContentType(msg *Message) string
	// WriteMessage consumes msg and writes its envelope to w.
	WriteMessage(ctx context.Context, msg *Message, w io.Writer) error
	// ReadMessage parses an envelope from r.
	ReadMessage(ctx context.Context, r io.Reader, contentType string) (*Message, error)
}

// MessageEncodingElement is a binding element that provides the channel's
// message encoder. The transport finds it in the build parameters.
type MessageEncodingElement interface {
	BindingElement
	CreateMessageEncoder() MessageEncoder
}

// ================================================================================
// Text Encoding
// ================================================================================

// TextMessageEncodingElement encodes SOAP 1.2 envelopes with WS-Addressing 1.0
// headers as UTF-8 text.
type TextMessageEncodingElement struct {
	ReaderQuotas ReaderQuotas
}

// NewTextMessageEncodingElement creates an element with default quotas.
func NewTextMessageEncodingElement() *TextMessageEncodingElement {
	return &TextMessageEncodingElement{ReaderQuotas: DefaultReaderQuotas()}
}

// Clone implements BindingElement.
func (e *TextMessageEncodingElement) Clone() BindingElement {
	clone := *e
	return &clone
}

// BuildChannelFactory registers the element for the transport and continues.
func (e *TextMessageEncodingElement) BuildChannelFactory(bc *BuildContext) (ChannelFactory, error) {
	bc.Parameters.Add(e)
	return bc.BuildInnerChannelFactory()
}

// CreateMessageEncoder implements MessageEncodingElement.
func (e *TextMessageEncodingElement) CreateMessageEncoder() MessageEncoder {
	return &textMessageEncoder{quotas: e.ReaderQuotas}
}

type textMessageEncoder struct {
	quotas ReaderQuotas
}

func (e *textMessageEncoder) ContentType(msg *Message) string {
	params := map[string]string{"charset": "utf-8"}
	if msg != nil && msg.Action != "" {
		params["action"] = msg.Action
	}
	return mime.FormatMediaType(constants.MediaTypeSOAP12, params)
}

func (e *textMessageEncoder) WriteMessage(ctx context.Context, msg *Message, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := msg.Body()
	if err != nil {
		return err
	}

	doc := etree.NewDocument()
	env := doc.CreateElement("s:Envelope")
	env.CreateAttr("xmlns:s", constants.NamespaceSOAP12)
	env.CreateAttr("xmlns:a", constants.NamespaceAddressing)

	header := env.CreateElement("s:Header")
	action := header.CreateElement("a:Action")
	action.CreateAttr("s:mustUnderstand", "1")
	action.SetText(msg.Action)
	if msg.MessageID != "" {
		header.CreateElement("a:MessageID").SetText(msg.MessageID)
	}
	if msg.RelatesTo != "" {
		header.CreateElement("a:RelatesTo").SetText(msg.RelatesTo)
	}
	header.CreateElement("a:ReplyTo").CreateElement("a:Address").SetText(anonymousAddress)
	if msg.To != "" {
		to := header.CreateElement("a:To")
		to.CreateAttr("s:mustUnderstand", "1")
		to.SetText(msg.To)
	}
	for _, h := range msg.Headers {
		el := h.Element.Copy()
		if h.MustUnderstand {
			el.CreateAttr("s:mustUnderstand", "1")
		}
		header.AddChild(el)
	}

	bodyEl := env.CreateElement("s:Body")
	if body != nil {
		bodyEl.AddChild(body.Copy())
	}

	_, err = doc.WriteTo(w)
	return err
}

func (e *textMessageEncoder) ReadMessage(ctx context.Context, r io.Reader, contentType string) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || (mediaType != constants.MediaTypeSOAP12 && mediaType != constants.MediaTypeSOAP11) {
			return nil, errors.ErrTransport.
				WithMessage("unexpected response content type").
				WithDetail("content_type", contentType)
		}
	}

	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = false
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, errors.ErrTransport.WithMessage("malformed SOAP envelope").WithError(err)
	}
	env := doc.Root()
	if env == nil || env.Tag != "Envelope" {
		return nil, errors.ErrTransport.WithMessage("response is not a SOAP envelope")
	}
	ns := env.NamespaceURI()
	if ns != constants.NamespaceSOAP12 && ns != constants.NamespaceSOAP11 {
		return nil, errors.ErrTransport.WithMessage("unsupported SOAP envelope namespace").WithDetail("namespace", ns)
	}
	if err := e.checkQuotas(env, 1); err != nil {
		return nil, err
	}

	msg := &Message{}
	for _, child := range env.ChildElements() {
		if child.NamespaceURI() != ns {
			continue
		}
		switch child.Tag {
		case "Header":
			for _, h := range child.ChildElements() {
				if h.NamespaceURI() == constants.NamespaceAddressing {
					switch h.Tag {
					case "Action":
						msg.Action = strings.TrimSpace(h.Text())
					case "MessageID":
						msg.MessageID = strings.TrimSpace(h.Text())
					case "RelatesTo":
						msg.RelatesTo = strings.TrimSpace(h.Text())
					case "To":
						msg.To = strings.TrimSpace(h.Text())
					}
					continue
				}
				msg.Headers = append(msg.Headers, &Header{Element: h.Copy()})
			}
		case "Body":
			if elems := child.ChildElements(); len(elems) > 0 {
				msg.body = elems[0].Copy()
				msg.IsFault = elems[0].Tag == "Fault" && elems[0].NamespaceURI() == ns
			}
		}
	}
	return msg, nil
}

func (e *textMessageEncoder) checkQuotas(el *etree.Element, depth int) error {
	if e.quotas.MaxDepth > 0 && depth > e.quotas.MaxDepth {
		return errors.ErrQuotaExceeded.WithDetail("quota", "max_depth").WithDetail("limit", fmt.Sprint(e.quotas.MaxDepth))
	}
	children := el.ChildElements()
	if e.quotas.MaxArrayLength > 0 && len(children) > e.quotas.MaxArrayLength {
		return errors.ErrQuotaExceeded.WithDetail("quota", "max_array_length").WithDetail("limit", fmt.Sprint(e.quotas.MaxArrayLength))
	}
	if e.quotas.MaxStringContentLength > 0 && len(el.Text()) > e.quotas.MaxStringContentLength {
		return errors.ErrQuotaExceeded.WithDetail("quota", "max_string_content_length").WithDetail("limit", fmt.Sprint(e.quotas.MaxStringContentLength))
	}
	for _, child := range children {
		if err := e.checkQuotas(child, depth+1); err != nil {
			return err
		}
	}
	return nil
}
