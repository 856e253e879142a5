package tokens

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/xmlutil"
)

// GenericXMLHandler reads WS-Trust 1.3 RequestSecurityTokenResponse documents and
// writes the opaque token element they carry.
type GenericXMLHandler struct{}

// NewGenericXMLHandler creates a generic XML token handler.
func NewGenericXMLHandler() *GenericXMLHandler {
	return &GenericXMLHandler{}
}

// TokenType implements service.SecurityTokenHandler.
func (h *GenericXMLHandler) TokenType() models.TokenType { return models.TokenTypeGenericXML }

// CanWriteToken implements service.SecurityTokenHandler.
func (h *GenericXMLHandler) CanWriteToken() bool { return true }

// WriteToken writes the token element unchanged.
func (h *GenericXMLHandler) WriteToken(w io.Writer, token models.SecurityToken) error {
	t, ok := token.(*models.GenericXMLToken)
	if !ok || t.Element == nil {
		return errors.ErrUnsupportedTokenType.WithMessage("cannot write token type: %s", models.TypeName(token))
	}
	return xmlutil.WriteElement(w, t.Element)
}

// CanReadToken reports whether raw is a WS-Trust 1.3 token response.
func (h *GenericXMLHandler) CanReadToken(raw string) bool {
	if !strings.Contains(raw, constants.NamespaceWSTrust13) {
		return false
	}
	el, err := xmlutil.ParseElement([]byte(raw))
	if err != nil {
		return false
	}
	return responseElement(el) != nil
}

// ReadToken extracts the requested token, its proof key, references and lifetime.
func (h *GenericXMLHandler) ReadToken(raw string) (models.SecurityToken, error) {
	el, err := xmlutil.ParseElement([]byte(raw))
	if err != nil {
		return nil, errors.ErrUnreadableToken.WithError(err)
	}
	rstr := responseElement(el)
	if rstr == nil {
		return nil, errors.ErrUnreadableToken.WithMessage("not a token response: %s", el.FullTag())
	}

	requested := trustChild(rstr, "RequestedSecurityToken")
	if requested == nil || len(requested.ChildElements()) == 0 {
		return nil, errors.ErrUnreadableToken.WithMessage("token response has no requested security token")
	}
	token := requested.ChildElements()[0].Copy()

	key, err := proofKey(rstr)
	if err != nil {
		return nil, errors.ErrUnreadableToken.WithDetail("element", "RequestedProofToken").WithError(err)
	}

	var validFrom, validTo time.Time
	if lifetime := trustChild(rstr, "Lifetime"); lifetime != nil {
		if validFrom, err = parseXSDateTime(xmlutil.ChildText(lifetime, "./Created")); err != nil {
			return nil, errors.ErrUnreadableToken.WithDetail("element", "Created").WithError(err)
		}
		if validTo, err = parseXSDateTime(xmlutil.ChildText(lifetime, "./Expires")); err != nil {
			return nil, errors.ErrUnreadableToken.WithDetail("element", "Expires").WithError(err)
		}
	}

	id := tokenID(token)
	internal := referenceClause(trustChild(rstr, "RequestedAttachedReference"), id)
	external := referenceClause(trustChild(rstr, "RequestedUnattachedReference"), id)

	return models.NewGenericXMLToken(id, token, validFrom, validTo, key, internal, external), nil
}

// responseElement returns the first RSTR in el, which may itself be an RSTR or
// an RSTR collection.
func responseElement(el *etree.Element) *etree.Element {
	if el.NamespaceURI() != constants.NamespaceWSTrust13 {
		return nil
	}
	switch el.Tag {
	case "RequestSecurityTokenResponse":
		return el
	case "RequestSecurityTokenResponseCollection":
		return trustChild(el, "RequestSecurityTokenResponse")
	}
	return nil
}

func trustChild(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag && c.NamespaceURI() == constants.NamespaceWSTrust13 {
			return c
		}
	}
	return nil
}

func proofKey(rstr *etree.Element) (models.SecurityKey, error) {
	proof := trustChild(rstr, "RequestedProofToken")
	if proof == nil {
		return nil, nil
	}
	if secret := trustChild(proof, "BinarySecret"); secret != nil {
		k, err := base64.StdEncoding.DecodeString(strings.TrimSpace(secret.Text()))
		if err != nil {
			return nil, fmt.Errorf("decode binary secret: %w", err)
		}
		return models.NewSymmetricKey(k), nil
	}
	if trustChild(proof, "ComputedKey") != nil {
		return nil, fmt.Errorf("computed proof keys are not supported")
	}
	return nil, fmt.Errorf("unrecognized proof token")
}

// tokenID returns the identifier attribute of a token element, whichever
// convention it follows. An unprefixed lookup also matches wsu:Id.
func tokenID(el *etree.Element) string {
	for _, attr := range []string{"ID", "AssertionID", "Id"} {
		if v := el.SelectAttrValue(attr, ""); v != "" {
			return v
		}
	}
	return ""
}

func referenceClause(ref *etree.Element, id string) *models.KeyIdentifierClause {
	if ref == nil || len(ref.ChildElements()) == 0 {
		return nil
	}
	str := ref.ChildElements()[0].Copy()
	clauseID := id
	for _, a := range str.Attr {
		if a.Key == "Id" {
			clauseID = a.Value
			break
		}
	}
	return &models.KeyIdentifierClause{ID: clauseID, Element: str}
}
