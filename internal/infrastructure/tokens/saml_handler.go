package tokens

import (
	"io"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/xmlutil"
)

// SAMLHandler reads and writes SAML assertions of one protocol version.
type SAMLHandler struct {
	tokenType models.TokenType
	namespace string
	idAttr    string
}

// NewSAMLHandler returns a handler for SAML 1.1 assertions.
func NewSAMLHandler() *SAMLHandler {
	return &SAMLHandler{
		tokenType: models.TokenTypeSAML11,
		namespace: constants.NamespaceSAML11,
		idAttr:    "AssertionID",
	}
}

// NewSAML2Handler returns a handler for SAML 2.0 assertions.
func NewSAML2Handler() *SAMLHandler {
	return &SAMLHandler{
		tokenType: models.TokenTypeSAML2,
		namespace: constants.NamespaceSAML2,
		idAttr:    "ID",
	}
}

// TokenType implements service.SecurityTokenHandler.
func (h *SAMLHandler) TokenType() models.TokenType { return h.tokenType }

// CanWriteToken implements service.SecurityTokenHandler.
func (h *SAMLHandler) CanWriteToken() bool { return true }

// WriteToken writes the assertion element unchanged.
func (h *SAMLHandler) WriteToken(w io.Writer, token models.SecurityToken) error {
	var assertion *etree.Element
	switch t := token.(type) {
	case *models.SAMLToken:
		if h.tokenType == models.TokenTypeSAML11 {
			assertion = t.Assertion
		}
	case *models.SAML2Token:
		if h.tokenType == models.TokenTypeSAML2 {
			assertion = t.Assertion
		}
	}
	if assertion == nil {
		return errors.ErrUnsupportedTokenType.WithMessage("cannot write token type: %s", models.TypeName(token))
	}
	return xmlutil.WriteElement(w, assertion)
}

// CanReadToken reports whether raw is an Assertion in this handler's namespace.
func (h *SAMLHandler) CanReadToken(raw string) bool {
	if !strings.Contains(raw, h.namespace) {
		return false
	}
	el, err := xmlutil.ParseElement([]byte(raw))
	if err != nil {
		return false
	}
	return h.isAssertion(el)
}

// ReadToken parses a serialized assertion.
func (h *SAMLHandler) ReadToken(raw string) (models.SecurityToken, error) {
	el, err := xmlutil.ParseElement([]byte(raw))
	if err != nil {
		return nil, errors.ErrUnreadableToken.WithError(err)
	}
	if !h.isAssertion(el) {
		return nil, errors.ErrUnreadableToken.WithMessage("not a %s assertion: %s", h.tokenType, el.FullTag())
	}

	id := el.SelectAttrValue(h.idAttr, "")
	var validFrom, validTo time.Time
	if conditions := el.FindElement("./Conditions"); conditions != nil {
		if validFrom, err = parseXSDateTime(conditions.SelectAttrValue("NotBefore", "")); err != nil {
			return nil, errors.ErrUnreadableToken.WithDetail("attribute", "NotBefore").WithError(err)
		}
		if validTo, err = parseXSDateTime(conditions.SelectAttrValue("NotOnOrAfter", "")); err != nil {
			return nil, errors.ErrUnreadableToken.WithDetail("attribute", "NotOnOrAfter").WithError(err)
		}
	}

	// Holder-of-key material inside an assertion is encrypted for the relying
	// party, so a bare assertion never carries a client-side proof key.
	if h.tokenType == models.TokenTypeSAML2 {
		return models.NewSAML2Token(id, el, validFrom, validTo, nil), nil
	}
	return models.NewSAMLToken(id, el, validFrom, validTo, nil), nil
}

func (h *SAMLHandler) isAssertion(el *etree.Element) bool {
	return el.Tag == "Assertion" && el.NamespaceURI() == h.namespace
}

func parseXSDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
