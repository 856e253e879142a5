// Package tokens converts security tokens to their on-wire XML form and provides
// the security token handlers that read and write each supported token kind.
package tokens

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/internal/domain/service"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/logger"
	"github.com/turtacn/soapproxy/pkg/xmlutil"
)

// proofNamespace seeds the name-based UUIDs used as proof token identifiers, so
// that the same key bytes always yield the same identifier.
var proofNamespace = uuid.MustParse("7f1c8f7e-3c4b-5b0e-9a57-2f4f1d6a9c21")

// Resolver selects a writer for a token and converts it to a CanonicalXMLToken.
type Resolver struct {
	logger  logger.Logger
	metrics service.Metrics
}

// NewResolver creates a resolver. Nil collaborators are replaced with no-ops.
func NewResolver(log logger.Logger, metrics service.Metrics) *Resolver {
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	return &Resolver{logger: logger.OrNoop(log), metrics: metrics}
}

// Resolve is a convenience wrapper around a resolver without logging or metrics.
func Resolve(token models.SecurityToken, handlers []service.SecurityTokenHandler) (*models.CanonicalXMLToken, error) {
	return NewResolver(nil, nil).Resolve(context.Background(), token, handlers)
}

// FindWriter returns the first handler whose token type the token is assignable
// to and that currently reports it can write.
func FindWriter(token models.SecurityToken, handlers []service.SecurityTokenHandler) (service.SecurityTokenHandler, bool) {
	if token == nil {
		return nil, false
	}
	for _, h := range handlers {
		if h == nil {
			continue
		}
		if models.IsAssignable(token, h.TokenType()) && h.CanWriteToken() {
			return h, true
		}
	}
	return nil, false
}

// Resolve writes token with the first applicable handler and wraps the result
// together with the proof token derived from the token's key.
func (r *Resolver) Resolve(ctx context.Context, token models.SecurityToken, handlers []service.SecurityTokenHandler) (*models.CanonicalXMLToken, error) {
	log := r.logger.ForContext(ctx)
	typeName := models.TypeName(token)

	handler, ok := FindWriter(token, handlers)
	if !ok {
		r.metrics.RecordTokenResolve(typeName, false)
		return nil, errors.ErrUnsupportedTokenType.
			WithMessage("cannot write token type: %s", typeName).
			WithDetail("token_type", typeName)
	}
	if log.Enabled(logger.DebugLevel) {
		log.Debug(ctx, "Found security token handler", logger.Fields{
			"token_type":   typeName,
			"handler_type": models.TypeName(handler),
		})
	}

	element, err := xmlutil.CreateElement(func(w io.Writer) error {
		return handler.WriteToken(w, token)
	})
	if err != nil {
		r.metrics.RecordTokenResolve(typeName, false)
		return nil, errors.ErrTokenWriteFailed.WithDetail("token_type", typeName).WithError(err)
	}

	proof, err := ProofToken(token.SecurityKey())
	if err != nil {
		r.metrics.RecordTokenResolve(typeName, false)
		return nil, err
	}

	canonical := &models.CanonicalXMLToken{
		Element:   element,
		Proof:     proof,
		ValidFrom: token.ValidFrom(),
		ValidTo:   token.ValidTo(),
	}
	if generic, ok := token.(*models.GenericXMLToken); ok {
		canonical.InternalReference = generic.InternalReference.Clone()
		canonical.ExternalReference = generic.ExternalReference.Clone()
	}

	r.metrics.RecordTokenResolve(typeName, true)
	return canonical, nil
}

// ProofToken converts a proof key into a binary secret token. A nil key yields a
// nil proof; only symmetric keys are supported.
func ProofToken(key models.SecurityKey) (*models.BinarySecretToken, error) {
	if key == nil {
		return nil, nil
	}
	symmetric, ok := key.(*models.SymmetricKey)
	if !ok {
		name := models.TypeName(key)
		return nil, errors.ErrUnsupportedKeyType.
			WithMessage("key type not supported: %s", name).
			WithDetail("key_type", name)
	}
	secret := make([]byte, len(symmetric.Key))
	copy(secret, symmetric.Key)
	return &models.BinarySecretToken{
		ID:  "uuid-" + uuid.NewSHA1(proofNamespace, secret).String(),
		Key: secret,
	}, nil
}
