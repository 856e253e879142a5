// Package models defines the domain models of the SOAP issued-token proxy.
// This file contains the abstract SecurityToken and its concrete forms.
package models

import (
	"reflect"
	"time"

	"github.com/beevik/etree"
)

// TokenType tags a security token kind. A token lists its own type first and then
// every base type it can stand in for; writer selection matches against that list.
// TokenType 标记安全令牌的种类。令牌首先列出自身类型，然后列出其可替代的所有基础类型。
type TokenType string

const (
	// TokenTypeSecurityToken is the base type shared by every token.
	TokenTypeSecurityToken TokenType = "security_token"

	// TokenTypeSAML11 is a SAML 1.1 assertion.
	TokenTypeSAML11 TokenType = "saml11"

	// TokenTypeSAML2 is a SAML 2.0 assertion.
	TokenTypeSAML2 TokenType = "saml2"

	// TokenTypeJWT is a JSON Web Token.
	TokenTypeJWT TokenType = "jwt"

	// TokenTypeGenericXML is an opaque XML token, usually taken from a WS-Trust response.
	TokenTypeGenericXML TokenType = "generic_xml"
)

// SecurityToken is an opaque credential presented to a SOAP service.
// SecurityToken 是提交给 SOAP 服务的不透明凭据。
type SecurityToken interface {
	// ID returns the token identifier.
	// ID 返回令牌标识符。
	ID() string

	// ValidFrom returns the start of the validity window.
	// ValidFrom 返回有效期的开始时间。
	ValidFrom() time.Time

	// ValidTo returns the end of the validity window.
	// ValidTo 返回有效期的结束时间。
	ValidTo() time.Time

	// SecurityKey returns the proof key bound to the token, or nil for bearer tokens.
	// SecurityKey 返回绑定到令牌的证明密钥，持有者令牌返回 nil。
	SecurityKey() SecurityKey

	// TokenTypes returns the concrete type followed by its base types.
	// TokenTypes 返回具体类型及其基础类型。
	TokenTypes() []TokenType
}

// IsAssignable reports whether token can be handled as tokenType.
func IsAssignable(token SecurityToken, tokenType TokenType) bool {
	for _, t := range token.TokenTypes() {
		if t == tokenType {
			return true
		}
	}
	return false
}

// TypeName returns the concrete Go type name of token, for diagnostics.
func TypeName(v interface{}) string {
	if v == nil {
		return "<nil>"
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// tokenBase carries the fields every concrete token shares.
type tokenBase struct {
	id        string
	validFrom time.Time
	validTo   time.Time
	key       SecurityKey
}

func (b *tokenBase) ID() string               { return b.id }
func (b *tokenBase) ValidFrom() time.Time     { return b.validFrom }
func (b *tokenBase) ValidTo() time.Time       { return b.validTo }
func (b *tokenBase) SecurityKey() SecurityKey { return b.key }

// ================================================================================
// SAML
// ================================================================================

// SAMLToken is a SAML 1.1 assertion.
// SAMLToken 是 SAML 1.1 断言。
type SAMLToken struct {
	tokenBase
	Assertion *etree.Element
}

// NewSAMLToken wraps a SAML 1.1 assertion element.
func NewSAMLToken(id string, assertion *etree.Element, validFrom, validTo time.Time, key SecurityKey) *SAMLToken {
	return &SAMLToken{
		tokenBase: tokenBase{id: id, validFrom: validFrom, validTo: validTo, key: key},
		Assertion: assertion,
	}
}

// TokenTypes implements SecurityToken.
func (t *SAMLToken) TokenTypes() []TokenType {
	return []TokenType{TokenTypeSAML11, TokenTypeSecurityToken}
}

// SAML2Token is a SAML 2.0 assertion.
// SAML2Token 是 SAML 2.0 断言。
type SAML2Token struct {
	tokenBase
	Assertion *etree.Element
}

// NewSAML2Token wraps a SAML 2.0 assertion element.
func NewSAML2Token(id string, assertion *etree.Element, validFrom, validTo time.Time, key SecurityKey) *SAML2Token {
	return &SAML2Token{
		tokenBase: tokenBase{id: id, validFrom: validFrom, validTo: validTo, key: key},
		Assertion: assertion,
	}
}

// TokenTypes implements SecurityToken.
func (t *SAML2Token) TokenTypes() []TokenType {
	return []TokenType{TokenTypeSAML2, TokenTypeSecurityToken}
}

// ================================================================================
// JWT
// ================================================================================

// JWTToken is a compact-serialized JSON Web Token. The client never verifies the
// issuer signature; the raw form is forwarded as issued.
// JWTToken 是紧凑序列化的 JWT。客户端从不验证签发者签名，按原样转发。
type JWTToken struct {
	tokenBase
	Raw     string
	Subject string
	Issuer  string
}

// NewJWTToken creates a JWT token from its raw form and parsed claims.
func NewJWTToken(raw, id, subject, issuer string, validFrom, validTo time.Time, key SecurityKey) *JWTToken {
	return &JWTToken{
		tokenBase: tokenBase{id: id, validFrom: validFrom, validTo: validTo, key: key},
		Raw:       raw,
		Subject:   subject,
		Issuer:    issuer,
	}
}

// TokenTypes implements SecurityToken.
func (t *JWTToken) TokenTypes() []TokenType {
	return []TokenType{TokenTypeJWT, TokenTypeSecurityToken}
}

// ================================================================================
// Generic XML
// ================================================================================

// GenericXMLToken is an XML token with optional key identifier clauses, as
// returned in a WS-Trust RequestSecurityTokenResponse.
// GenericXMLToken 是带有可选密钥标识子句的 XML 令牌。
type GenericXMLToken struct {
	tokenBase
	Element           *etree.Element
	InternalReference *KeyIdentifierClause
	ExternalReference *KeyIdentifierClause
}

// NewGenericXMLToken wraps an XML token element.
func NewGenericXMLToken(id string, element *etree.Element, validFrom, validTo time.Time, key SecurityKey, internal, external *KeyIdentifierClause) *GenericXMLToken {
	return &GenericXMLToken{
		tokenBase:         tokenBase{id: id, validFrom: validFrom, validTo: validTo, key: key},
		Element:           element,
		InternalReference: internal,
		ExternalReference: external,
	}
}

// TokenTypes implements SecurityToken.
func (t *GenericXMLToken) TokenTypes() []TokenType {
	return []TokenType{TokenTypeGenericXML, TokenTypeSecurityToken}
}
