package models

import (
	"time"

	"github.com/beevik/etree"
)

// KeyIdentifierClause references a token from inside a message, usually a
// wsse:SecurityTokenReference element.
// KeyIdentifierClause 在消息内部引用令牌，通常是 wsse:SecurityTokenReference 元素。
type KeyIdentifierClause struct {
	ID      string
	Element *etree.Element
}

// Clone returns a deep copy of the clause.
func (c *KeyIdentifierClause) Clone() *KeyIdentifierClause {
	if c == nil {
		return nil
	}
	clone := &KeyIdentifierClause{ID: c.ID}
	if c.Element != nil {
		clone.Element = c.Element.Copy()
	}
	return clone
}

// BinarySecretToken is a proof token derived from symmetric key bytes.
// BinarySecretToken 是由对称密钥字节派生的证明令牌。
type BinarySecretToken struct {
	ID  string
	Key []byte
}

// CanonicalXMLToken is the on-wire form of an issued token, ready to be embedded
// in the security header of an outgoing request.
// CanonicalXMLToken 是签发令牌的线上形式，可直接嵌入请求的安全头。
type CanonicalXMLToken struct {
	Element           *etree.Element
	Proof             *BinarySecretToken
	ValidFrom         time.Time
	ValidTo           time.Time
	InternalReference *KeyIdentifierClause
	ExternalReference *KeyIdentifierClause
}

// IsExpired reports whether the token validity window has ended at now.
func (t *CanonicalXMLToken) IsExpired(now time.Time) bool {
	return !t.ValidTo.IsZero() && !now.Before(t.ValidTo)
}
