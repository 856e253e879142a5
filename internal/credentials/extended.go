package credentials

import (
	"context"

	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/internal/domain/service"
	"github.com/turtacn/soapproxy/internal/infrastructure/tokens"
	"github.com/turtacn/soapproxy/pkg/logger"
	"github.com/turtacn/soapproxy/pkg/params"
)

// ExtendedClientCredentials are client credentials that can carry an issued
// token sidecar. The same type is used at build time, where it replaces plain
// ClientCredentials, and at channel time, where a populated copy is attached
// to each channel that presents a token.
// ExtendedClientCredentials 是可携带签发令牌的客户端凭据。
type ExtendedClientCredentials struct {
	ClientCredentials

	// IssuedToken is the sidecar; nil until a token is attached.
	IssuedToken *IssuedTokenCredential

	Logger   logger.Logger
	Resolver *tokens.Resolver
}

// NewExtendedClientCredentials creates empty extended credentials.
func NewExtendedClientCredentials(log logger.Logger) *ExtendedClientCredentials {
	log = logger.OrNoop(log)
	return &ExtendedClientCredentials{
		Logger:   log,
		Resolver: tokens.NewResolver(log, nil),
	}
}

// WrapClientCredentials creates extended credentials that keep base's default
// token provider as the fallback.
func WrapClientCredentials(base *ClientCredentials, log logger.Logger) *ExtendedClientCredentials {
	c := NewExtendedClientCredentials(log)
	if base != nil {
		c.ClientCredentials = *base.Clone()
	}
	return c
}

// WithIssuedToken returns a copy carrying token and handlers as its sidecar.
func (c *ExtendedClientCredentials) WithIssuedToken(token models.SecurityToken, handlers []service.SecurityTokenHandler) *ExtendedClientCredentials {
	clone := c.Clone()
	clone.IssuedToken = (&IssuedTokenCredential{Token: token, Handlers: handlers}).Clone()
	return clone
}

// Clone returns a copy with a cloned sidecar.
func (c *ExtendedClientCredentials) Clone() *ExtendedClientCredentials {
	return &ExtendedClientCredentials{
		ClientCredentials: *c.ClientCredentials.Clone(),
		IssuedToken:       c.IssuedToken.Clone(),
		Logger:            c.Logger,
		Resolver:          c.Resolver,
	}
}

// CreateTokenManager implements Manager.
func (c *ExtendedClientCredentials) CreateTokenManager() TokenManager {
	log := logger.OrNoop(c.Logger)
	logCreatingTokenManager(log)
	return &IssuedSecurityTokenManager{
		credentials: c.Clone(),
		fallback:    c.ClientCredentials.CreateTokenManager(),
		logger:      log,
	}
}

// ================================================================================
// Token Manager
// ================================================================================

// IssuedSecurityTokenManager serves the issued token found in a channel's
// parameters and defers to the default manager otherwise.
type IssuedSecurityTokenManager struct {
	credentials *ExtendedClientCredentials
	fallback    TokenManager
	logger      logger.Logger
}

// CreateTokenProvider implements TokenManager.
func (m *IssuedSecurityTokenManager) CreateTokenProvider(ctx context.Context, req *TokenRequirement) (TokenProvider, error) {
	logCreatingTokenProvider(ctx, m.logger)

	var found *ExtendedClientCredentials
	if req != nil {
		found, _ = params.Find[*ExtendedClientCredentials](req.Parameters)
	}
	if found == nil || found.IssuedToken == nil || found.IssuedToken.Token == nil {
		logCredentialsNotFound(ctx, m.logger)
		return m.fallback.CreateTokenProvider(ctx, req)
	}

	resolver := found.Resolver
	if resolver == nil {
		resolver = m.credentials.Resolver
	}
	if resolver == nil {
		resolver = tokens.NewResolver(m.logger, nil)
	}
	return &IssuedTokenProvider{
		credential: found.IssuedToken.Clone(),
		resolver:   resolver,
		logger:     m.logger,
	}, nil
}

// ================================================================================
// Token Provider
// ================================================================================

// IssuedTokenProvider converts the sidecar token to its canonical form.
type IssuedTokenProvider struct {
	credential *IssuedTokenCredential
	resolver   *tokens.Resolver
	logger     logger.Logger
}

// GetToken implements TokenProvider.
func (p *IssuedTokenProvider) GetToken(ctx context.Context) (*models.CanonicalXMLToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logAddingToken(ctx, p.logger, p.credential.Token)
	return p.resolver.Resolve(ctx, p.credential.Token, p.credential.Handlers)
}
