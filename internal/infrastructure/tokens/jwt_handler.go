package tokens

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/xmlutil"
)

// JWTHandler reads compact JWTs and writes them as wsse:BinarySecurityToken
// elements. Signatures are not verified; the service that receives the token
// is responsible for that.
type JWTHandler struct {
	parser *jwt.Parser
}

// NewJWTHandler creates a JWT handler.
func NewJWTHandler() *JWTHandler {
	return &JWTHandler{parser: jwt.NewParser()}
}

// TokenType implements service.SecurityTokenHandler.
func (h *JWTHandler) TokenType() models.TokenType { return models.TokenTypeJWT }

// CanWriteToken implements service.SecurityTokenHandler.
func (h *JWTHandler) CanWriteToken() bool { return true }

// WriteToken writes the raw JWT, base64 encoded, inside a BinarySecurityToken.
func (h *JWTHandler) WriteToken(w io.Writer, token models.SecurityToken) error {
	t, ok := token.(*models.JWTToken)
	if !ok {
		return errors.ErrUnsupportedTokenType.WithMessage("cannot write token type: %s", models.TypeName(token))
	}

	id := t.ID()
	if id == "" {
		id = "uuid-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(t.Raw)).String()
	}

	bst := etree.NewElement("wsse:BinarySecurityToken")
	bst.CreateAttr("xmlns:wsse", constants.NamespaceWSSE)
	bst.CreateAttr("xmlns:wsu", constants.NamespaceWSU)
	bst.CreateAttr("wsu:Id", id)
	bst.CreateAttr("ValueType", constants.ValueTypeJWT)
	bst.CreateAttr("EncodingType", constants.EncodingTypeBase64Binary)
	bst.SetText(base64.StdEncoding.EncodeToString([]byte(t.Raw)))
	return xmlutil.WriteElement(w, bst)
}

// CanReadToken reports whether raw parses as a compact JWT.
func (h *JWTHandler) CanReadToken(raw string) bool {
	if strings.Count(raw, ".") != 2 || strings.ContainsAny(raw, "<> \t\r\n") {
		return false
	}
	_, _, err := h.parser.ParseUnverified(raw, jwt.MapClaims{})
	return err == nil
}

// ReadToken parses raw without verifying its signature. A cnf.jwk claim becomes
// the token's proof key.
func (h *JWTHandler) ReadToken(raw string) (models.SecurityToken, error) {
	claims := jwt.MapClaims{}
	if _, _, err := h.parser.ParseUnverified(raw, claims); err != nil {
		return nil, errors.ErrUnreadableToken.WithError(err)
	}

	id, _ := claims["jti"].(string)
	subject, _ := claims.GetSubject()
	issuer, _ := claims.GetIssuer()

	var validFrom, validTo time.Time
	if nbf, err := claims.GetNotBefore(); err == nil && nbf != nil {
		validFrom = nbf.Time
	} else if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		validFrom = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		validTo = exp.Time
	}

	key, err := confirmationKey(claims)
	if err != nil {
		return nil, errors.ErrUnreadableToken.WithDetail("claim", "cnf").WithError(err)
	}
	return models.NewJWTToken(raw, id, subject, issuer, validFrom, validTo, key), nil
}

// confirmationKey extracts the proof-of-possession key from cnf.jwk (RFC 7800).
func confirmationKey(claims jwt.MapClaims) (models.SecurityKey, error) {
	cnf, ok := claims["cnf"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	jwk, ok := cnf["jwk"].(map[string]interface{})
	if !ok {
		return nil, nil
	}

	kty, _ := jwk["kty"].(string)
	switch kty {
	case "oct":
		k, err := jwkBytes(jwk, "k")
		if err != nil {
			return nil, err
		}
		return models.NewSymmetricKey(k), nil
	case "RSA":
		n, err := jwkBytes(jwk, "n")
		if err != nil {
			return nil, err
		}
		e, err := jwkBytes(jwk, "e")
		if err != nil {
			return nil, err
		}
		return &models.AsymmetricKey{PublicKey: &rsa.PublicKey{
			N: new(big.Int).SetBytes(n),
			E: int(new(big.Int).SetBytes(e).Int64()),
		}}, nil
	case "EC":
		var curve elliptic.Curve
		switch crv, _ := jwk["crv"].(string); crv {
		case "P-256":
			curve = elliptic.P256()
		case "P-384":
			curve = elliptic.P384()
		case "P-521":
			curve = elliptic.P521()
		default:
			return nil, fmt.Errorf("unsupported curve %q", crv)
		}
		x, err := jwkBytes(jwk, "x")
		if err != nil {
			return nil, err
		}
		y, err := jwkBytes(jwk, "y")
		if err != nil {
			return nil, err
		}
		return &models.AsymmetricKey{PublicKey: &ecdsa.PublicKey{
			Curve: curve,
			X:     new(big.Int).SetBytes(x),
			Y:     new(big.Int).SetBytes(y),
		}}, nil
	default:
		return nil, fmt.Errorf("unsupported key type %q", kty)
	}
}

func jwkBytes(jwk map[string]interface{}, name string) ([]byte, error) {
	s, ok := jwk[name].(string)
	if !ok || s == "" {
		return nil, fmt.Errorf("missing jwk member %q", name)
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("decode jwk member %q: %w", name, err)
	}
	return b, nil
}
