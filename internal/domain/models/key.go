package models

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
)

// KeyKind classifies a proof key.
type KeyKind string

const (
	// KeyKindSymmetric is a shared secret.
	KeyKindSymmetric KeyKind = "symmetric"
	// KeyKindAsymmetric is a public/private key pair.
	KeyKindAsymmetric KeyKind = "asymmetric"
)

// SecurityKey is a proof key bound to a security token.
// SecurityKey 是绑定到安全令牌的证明密钥。
type SecurityKey interface {
	// Kind returns whether the key is symmetric or asymmetric.
	Kind() KeyKind
	// Size returns the key size in bits.
	Size() int
}

// SymmetricKey is a raw shared secret.
type SymmetricKey struct {
	Key []byte
}

// NewSymmetricKey copies key into a SymmetricKey.
func NewSymmetricKey(key []byte) *SymmetricKey {
	k := make([]byte, len(key))
	copy(k, key)
	return &SymmetricKey{Key: k}
}

// Kind implements SecurityKey.
func (k *SymmetricKey) Kind() KeyKind { return KeyKindSymmetric }

// Size implements SecurityKey.
func (k *SymmetricKey) Size() int { return len(k.Key) * 8 }

// AsymmetricKey wraps a public key. It is carried for completeness; converting a
// token bound to an asymmetric key to its wire form is not supported.
type AsymmetricKey struct {
	PublicKey crypto.PublicKey
}

// Kind implements SecurityKey.
func (k *AsymmetricKey) Kind() KeyKind { return KeyKindAsymmetric }

// Size implements SecurityKey.
func (k *AsymmetricKey) Size() int {
	switch pub := k.PublicKey.(type) {
	case *rsa.PublicKey:
		return pub.N.BitLen()
	case *ecdsa.PublicKey:
		return pub.Curve.Params().BitSize
	default:
		return 0
	}
}
