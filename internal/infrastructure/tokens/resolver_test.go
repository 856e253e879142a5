package tokens

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/internal/domain/service"
	"github.com/turtacn/soapproxy/internal/domain/service/mocks"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/xmlutil"
)

// fakeHandler writes an empty element named after itself.
type fakeHandler struct {
	name      string
	tokenType models.TokenType
	canWrite  bool
}

func (h *fakeHandler) TokenType() models.TokenType { return h.tokenType }
func (h *fakeHandler) CanWriteToken() bool         { return h.canWrite }
func (h *fakeHandler) WriteToken(w io.Writer, _ models.SecurityToken) error {
	_, err := fmt.Fprintf(w, "<%s/>", h.name)
	return err
}
func (h *fakeHandler) CanReadToken(string) bool                       { return false }
func (h *fakeHandler) ReadToken(string) (models.SecurityToken, error) { return nil, nil }

func saml2Token(t *testing.T, key models.SecurityKey) *models.SAML2Token {
	t.Helper()
	el, err := xmlutil.ParseElement([]byte(`<saml:Assertion xmlns:saml="urn:oasis:names:tc:SAML:2.0:assertion" ID="_a1"/>`))
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.NewSAML2Token("_a1", el, now, now.Add(time.Hour), key)
}

func TestResolve_FirstMatchingWriterWins(t *testing.T) {
	token := saml2Token(t, nil)
	handlers := []service.SecurityTokenHandler{
		&fakeHandler{name: "jwt", tokenType: models.TokenTypeJWT, canWrite: true},
		&fakeHandler{name: "saml2Disabled", tokenType: models.TokenTypeSAML2, canWrite: false},
		&fakeHandler{name: "base", tokenType: models.TokenTypeSecurityToken, canWrite: true},
		&fakeHandler{name: "saml2", tokenType: models.TokenTypeSAML2, canWrite: true},
	}

	canonical, err := Resolve(token, handlers)
	require.NoError(t, err)
	assert.Equal(t, "base", canonical.Element.Tag)
	assert.Nil(t, canonical.Proof)
	assert.Equal(t, token.ValidFrom(), canonical.ValidFrom)
	assert.Equal(t, token.ValidTo(), canonical.ValidTo)
	assert.Nil(t, canonical.InternalReference)
	assert.Nil(t, canonical.ExternalReference)
}

func TestResolve_OrderingProperty(t *testing.T) {
	types := []models.TokenType{
		models.TokenTypeSAML11,
		models.TokenTypeSAML2,
		models.TokenTypeJWT,
		models.TokenTypeGenericXML,
		models.TokenTypeSecurityToken,
	}
	token := saml2Token(t, nil)

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "handler_count")
		handlers := make([]service.SecurityTokenHandler, n)
		want := ""
		for i := 0; i < n; i++ {
			h := &fakeHandler{
				name:      fmt.Sprintf("h%d", i),
				tokenType: rapid.SampledFrom(types).Draw(rt, "token_type"),
				canWrite:  rapid.Bool().Draw(rt, "can_write"),
			}
			handlers[i] = h
			if want == "" && h.canWrite && models.IsAssignable(token, h.tokenType) {
				want = h.name
			}
		}

		canonical, err := Resolve(token, handlers)
		if want == "" {
			if !errors.Is(err, errors.ErrUnsupportedTokenType) {
				rt.Fatalf("expected unsupported token type, got %v", err)
			}
			return
		}
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if canonical.Element.Tag != want {
			rt.Fatalf("expected writer %s, got %s", want, canonical.Element.Tag)
		}
	})
}

func TestResolve_NoWriter(t *testing.T) {
	token := saml2Token(t, nil)

	tests := []struct {
		name     string
		handlers []service.SecurityTokenHandler
	}{
		{name: "empty list", handlers: nil},
		{name: "type mismatch", handlers: []service.SecurityTokenHandler{
			&fakeHandler{name: "jwt", tokenType: models.TokenTypeJWT, canWrite: true},
		}},
		{name: "matching but disabled", handlers: []service.SecurityTokenHandler{
			&fakeHandler{name: "saml2", tokenType: models.TokenTypeSAML2, canWrite: false},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(token, tt.handlers)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrUnsupportedTokenType))
			assert.Contains(t, err.Error(), "cannot write token type: SAML2Token")
		})
	}
}

func TestResolve_WriterFailure(t *testing.T) {
	token := saml2Token(t, nil)
	h := new(mocks.MockSecurityTokenHandler)
	h.On("TokenType").Return(models.TokenTypeSAML2)
	h.On("CanWriteToken").Return(true)
	h.On("WriteToken", mock.Anything, token).Return(fmt.Errorf("boom"))

	_, err := NewResolver(nil, nil).Resolve(context.Background(), token, []service.SecurityTokenHandler{h})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenWriteFailed))
	assert.True(t, errors.HasCode(err, errors.CodeTokenConversion))
	h.AssertExpectations(t)
}

func TestResolve_ProofToken(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	token := saml2Token(t, models.NewSymmetricKey(key))
	handlers := []service.SecurityTokenHandler{NewSAML2Handler()}

	first, err := Resolve(token, handlers)
	require.NoError(t, err)
	second, err := Resolve(token, handlers)
	require.NoError(t, err)

	require.NotNil(t, first.Proof)
	assert.Equal(t, key, first.Proof.Key)
	assert.Equal(t, first.Proof.ID, second.Proof.ID)
	assert.Regexp(t, `^uuid-[0-9a-f-]{36}$`, first.Proof.ID)

	first.Proof.Key[0] = 'X'
	assert.Equal(t, byte('0'), token.SecurityKey().(*models.SymmetricKey).Key[0])
}

func TestResolve_AsymmetricKeyRejected(t *testing.T) {
	token := saml2Token(t, &models.AsymmetricKey{})

	_, err := Resolve(token, []service.SecurityTokenHandler{NewSAML2Handler()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedKeyType))
	assert.Contains(t, err.Error(), "key type not supported: AsymmetricKey")
}

func TestResolve_GenericReferencesPassThrough(t *testing.T) {
	el, err := xmlutil.ParseElement([]byte(`<tok Id="t1"/>`))
	require.NoError(t, err)
	ref, err := xmlutil.ParseElement([]byte(`<ref/>`))
	require.NoError(t, err)
	internal := &models.KeyIdentifierClause{ID: "int", Element: ref}
	external := &models.KeyIdentifierClause{ID: "ext"}
	token := models.NewGenericXMLToken("t1", el, time.Time{}, time.Time{}, nil, internal, external)

	canonical, err := Resolve(token, []service.SecurityTokenHandler{NewGenericXMLHandler()})
	require.NoError(t, err)
	assert.Equal(t, "tok", canonical.Element.Tag)
	require.NotNil(t, canonical.InternalReference)
	assert.Equal(t, "int", canonical.InternalReference.ID)
	assert.Equal(t, "ref", canonical.InternalReference.Element.Tag)
	require.NotNil(t, canonical.ExternalReference)
	assert.Equal(t, "ext", canonical.ExternalReference.ID)
}

func TestResolve_NilToken(t *testing.T) {
	_, err := Resolve(nil, []service.SecurityTokenHandler{NewSAMLHandler()})
	assert.True(t, errors.Is(err, errors.ErrUnsupportedTokenType))
}
