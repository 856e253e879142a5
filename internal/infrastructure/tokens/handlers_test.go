package tokens

import (
	"bytes"
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/internal/domain/service"
	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/xmlutil"
)

const saml11Assertion = `<saml:Assertion xmlns:saml="urn:oasis:names:tc:SAML:1.0:assertion" MajorVersion="1" MinorVersion="1" AssertionID="_11" Issuer="sts">` +
	`<saml:Conditions NotBefore="2024-01-01T00:00:00Z" NotOnOrAfter="2024-01-01T01:00:00Z"/>` +
	`</saml:Assertion>`

const saml2Assertion = `<saml2:Assertion xmlns:saml2="urn:oasis:names:tc:SAML:2.0:assertion" ID="_22" Version="2.0">` +
	`<saml2:Issuer>sts</saml2:Issuer>` +
	`<saml2:Conditions NotBefore="2024-01-01T00:00:00.000Z" NotOnOrAfter="2024-01-01T08:00:00.000Z"/>` +
	`</saml2:Assertion>`

const rstr = `<trust:RequestSecurityTokenResponseCollection xmlns:trust="http://docs.oasis-open.org/ws-sx/ws-trust/200512">` +
	`<trust:RequestSecurityTokenResponse>` +
	`<trust:Lifetime><wsu:Created xmlns:wsu="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd">2024-01-01T00:00:00Z</wsu:Created>` +
	`<wsu:Expires xmlns:wsu="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd">2024-01-01T02:00:00Z</wsu:Expires></trust:Lifetime>` +
	`<trust:RequestedSecurityToken>` + saml2Assertion + `</trust:RequestedSecurityToken>` +
	`<trust:RequestedAttachedReference><o:SecurityTokenReference xmlns:o="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"><o:KeyIdentifier>_22</o:KeyIdentifier></o:SecurityTokenReference></trust:RequestedAttachedReference>` +
	`<trust:RequestedProofToken><trust:BinarySecret>AAECAwQFBgcICQoLDA0ODw==</trust:BinarySecret></trust:RequestedProofToken>` +
	`</trust:RequestSecurityTokenResponse>` +
	`</trust:RequestSecurityTokenResponseCollection>`

func TestSAMLHandlers_Read(t *testing.T) {
	tests := []struct {
		name     string
		handler  *SAMLHandler
		raw      string
		wantID   string
		wantType models.TokenType
		wantTo   time.Time
	}{
		{
			name:     "SAML 1.1",
			handler:  NewSAMLHandler(),
			raw:      saml11Assertion,
			wantID:   "_11",
			wantType: models.TokenTypeSAML11,
			wantTo:   time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
		},
		{
			name:     "SAML 2.0",
			handler:  NewSAML2Handler(),
			raw:      saml2Assertion,
			wantID:   "_22",
			wantType: models.TokenTypeSAML2,
			wantTo:   time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, tt.handler.CanReadToken(tt.raw))
			token, err := tt.handler.ReadToken(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, token.ID())
			assert.Equal(t, tt.wantType, token.TokenTypes()[0])
			assert.True(t, tt.wantTo.Equal(token.ValidTo()))
			assert.Nil(t, token.SecurityKey())
		})
	}
}

func TestSAMLHandlers_RejectOtherVersion(t *testing.T) {
	assert.False(t, NewSAMLHandler().CanReadToken(saml2Assertion))
	assert.False(t, NewSAML2Handler().CanReadToken(saml11Assertion))
	assert.False(t, NewSAML2Handler().CanReadToken("not xml"))

	_, err := NewSAMLHandler().ReadToken(saml2Assertion)
	assert.True(t, errors.Is(err, errors.ErrUnreadableToken))

	var buf bytes.Buffer
	token, err := NewSAML2Handler().ReadToken(saml2Assertion)
	require.NoError(t, err)
	err = NewSAMLHandler().WriteToken(&buf, token)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedTokenType))
}

func TestSAMLHandler_WriteRoundTrip(t *testing.T) {
	h := NewSAML2Handler()
	token, err := h.ReadToken(saml2Assertion)
	require.NoError(t, err)

	canonical, err := Resolve(token, []service.SecurityTokenHandler{NewSAMLHandler(), h})
	require.NoError(t, err)
	assert.Equal(t, "Assertion", canonical.Element.Tag)
	assert.Equal(t, constants.NamespaceSAML2, canonical.Element.NamespaceURI())
	assert.Equal(t, "_22", canonical.Element.SelectAttrValue("ID", ""))
	assert.Equal(t, "sts", xmlutil.ChildText(canonical.Element, "./Issuer"))
}

func signedJWT(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("issuer-secret"))
	require.NoError(t, err)
	return raw
}

func TestJWTHandler_ReadAndWrite(t *testing.T) {
	secret := []byte("0123456789abcdef")
	now := time.Now().Truncate(time.Second)
	raw := signedJWT(t, jwt.MapClaims{
		"jti": "jwt-1",
		"sub": "alice",
		"iss": "https://sts.example.org",
		"nbf": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
		"cnf": map[string]interface{}{
			"jwk": map[string]interface{}{
				"kty": "oct",
				"k":   base64.RawURLEncoding.EncodeToString(secret),
			},
		},
	})

	h := NewJWTHandler()
	require.True(t, h.CanReadToken(raw))
	token, err := h.ReadToken(raw)
	require.NoError(t, err)

	jwtToken, ok := token.(*models.JWTToken)
	require.True(t, ok)
	assert.Equal(t, "jwt-1", jwtToken.ID())
	assert.Equal(t, "alice", jwtToken.Subject)
	assert.Equal(t, "https://sts.example.org", jwtToken.Issuer)
	assert.True(t, now.Equal(jwtToken.ValidFrom()))
	assert.True(t, now.Add(time.Hour).Equal(jwtToken.ValidTo()))

	canonical, err := Resolve(token, []service.SecurityTokenHandler{NewSAML2Handler(), h})
	require.NoError(t, err)
	assert.Equal(t, "BinarySecurityToken", canonical.Element.Tag)
	assert.Equal(t, constants.NamespaceWSSE, canonical.Element.NamespaceURI())
	assert.Equal(t, constants.ValueTypeJWT, canonical.Element.SelectAttrValue("ValueType", ""))
	assert.Equal(t, "jwt-1", canonical.Element.SelectAttrValue("Id", ""))

	decoded, err := base64.StdEncoding.DecodeString(canonical.Element.Text())
	require.NoError(t, err)
	assert.Equal(t, raw, string(decoded))

	require.NotNil(t, canonical.Proof)
	assert.Equal(t, secret, canonical.Proof.Key)
}

func TestJWTHandler_AsymmetricConfirmationKey(t *testing.T) {
	raw := signedJWT(t, jwt.MapClaims{
		"sub": "bob",
		"cnf": map[string]interface{}{
			"jwk": map[string]interface{}{
				"kty": "RSA",
				"n":   base64.RawURLEncoding.EncodeToString([]byte{0xc5, 0x01, 0x02, 0x03}),
				"e":   "AQAB",
			},
		},
	})

	token, err := NewJWTHandler().ReadToken(raw)
	require.NoError(t, err)
	key, ok := token.SecurityKey().(*models.AsymmetricKey)
	require.True(t, ok)
	assert.Equal(t, 32, key.Size())

	_, err = Resolve(token, []service.SecurityTokenHandler{NewJWTHandler()})
	assert.True(t, errors.Is(err, errors.ErrUnsupportedKeyType))
}

func TestJWTHandler_CannotRead(t *testing.T) {
	h := NewJWTHandler()
	assert.False(t, h.CanReadToken(saml2Assertion))
	assert.False(t, h.CanReadToken("a.b"))
	assert.False(t, h.CanReadToken("not.a.jwt"))

	_, err := h.ReadToken("not.a.jwt")
	assert.True(t, errors.Is(err, errors.ErrUnreadableToken))
}

func TestGenericXMLHandler_ReadResponse(t *testing.T) {
	h := NewGenericXMLHandler()
	require.True(t, h.CanReadToken(rstr))
	assert.False(t, h.CanReadToken(saml2Assertion))

	token, err := h.ReadToken(rstr)
	require.NoError(t, err)

	generic, ok := token.(*models.GenericXMLToken)
	require.True(t, ok)
	assert.Equal(t, "_22", generic.ID())
	assert.Equal(t, "Assertion", generic.Element.Tag)
	assert.True(t, time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC).Equal(generic.ValidTo()))
	require.NotNil(t, generic.InternalReference)
	assert.Equal(t, "SecurityTokenReference", generic.InternalReference.Element.Tag)
	assert.Nil(t, generic.ExternalReference)

	canonical, err := Resolve(token, []service.SecurityTokenHandler{h})
	require.NoError(t, err)
	require.NotNil(t, canonical.Proof)
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, canonical.Proof.Key)
	require.NotNil(t, canonical.InternalReference)
	assert.Equal(t, "_22", canonical.InternalReference.ID)
}

func TestGenericXMLHandler_MissingToken(t *testing.T) {
	raw := `<trust:RequestSecurityTokenResponse xmlns:trust="http://docs.oasis-open.org/ws-sx/ws-trust/200512"/>`
	_, err := NewGenericXMLHandler().ReadToken(raw)
	assert.True(t, errors.Is(err, errors.ErrUnreadableToken))
}
