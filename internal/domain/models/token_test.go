package models

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAssignable(t *testing.T) {
	saml2 := NewSAML2Token("_a", etree.NewElement("Assertion"), time.Time{}, time.Time{}, nil)

	assert.True(t, IsAssignable(saml2, TokenTypeSAML2))
	assert.True(t, IsAssignable(saml2, TokenTypeSecurityToken))
	assert.False(t, IsAssignable(saml2, TokenTypeSAML11))
	assert.False(t, IsAssignable(saml2, TokenTypeGenericXML))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "JWTToken", TypeName(&JWTToken{}))
	assert.Equal(t, "SymmetricKey", TypeName(SymmetricKey{}))
	assert.Equal(t, "<nil>", TypeName(nil))
}

func TestSecurityKeys(t *testing.T) {
	secret := []byte("0123456789abcdef")
	key := NewSymmetricKey(secret)
	secret[0] = 'x'
	assert.Equal(t, byte('0'), key.Key[0])
	assert.Equal(t, KeyKindSymmetric, key.Kind())
	assert.Equal(t, 128, key.Size())

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	pub := &AsymmetricKey{PublicKey: &priv.PublicKey}
	assert.Equal(t, KeyKindAsymmetric, pub.Kind())
	assert.Equal(t, 256, pub.Size())
	assert.Zero(t, (&AsymmetricKey{PublicKey: "unknown"}).Size())
}

func TestCanonicalXMLToken_IsExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, (&CanonicalXMLToken{}).IsExpired(now))
	assert.False(t, (&CanonicalXMLToken{ValidTo: now.Add(time.Second)}).IsExpired(now))
	assert.True(t, (&CanonicalXMLToken{ValidTo: now}).IsExpired(now))
}

func TestKeyIdentifierClause_Clone(t *testing.T) {
	var nilClause *KeyIdentifierClause
	assert.Nil(t, nilClause.Clone())

	el := etree.NewElement("SecurityTokenReference")
	el.CreateAttr("Id", "_r1")
	clause := &KeyIdentifierClause{ID: "_r1", Element: el}

	clone := clause.Clone()
	require.NotNil(t, clone)
	assert.Equal(t, "_r1", clone.ID)
	assert.NotSame(t, el, clone.Element)

	clone.Element.CreateAttr("Id", "_changed")
	assert.Equal(t, "_r1", el.SelectAttrValue("Id", ""))
}
