// Package credentials carries issued tokens from the proxy factory to the
// security layer of a channel. The issued token travels as a sidecar inside an
// ExtendedClientCredentials value placed in a channel's parameter collection;
// the security layer looks it up there when it asks for a token provider.
package credentials

import (
	"context"

	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/internal/domain/service"
	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/params"
)

// ================================================================================
// Sidecar
// ================================================================================

// IssuedTokenCredential holds the token presented on a channel and the ordered
// handlers that may write it.
// IssuedTokenCredential 保存通道上提交的令牌以及可写入该令牌的有序处理器列表。
type IssuedTokenCredential struct {
	Token    models.SecurityToken
	Handlers []service.SecurityTokenHandler
}

// Clone returns a copy with its own handler list. Tokens are immutable and shared.
func (c *IssuedTokenCredential) Clone() *IssuedTokenCredential {
	if c == nil {
		return nil
	}
	handlers := make([]service.SecurityTokenHandler, len(c.Handlers))
	copy(handlers, c.Handlers)
	return &IssuedTokenCredential{Token: c.Token, Handlers: handlers}
}

// ================================================================================
// Token Acquisition
// ================================================================================

// TokenRequirement describes the token a channel's security layer needs.
type TokenRequirement struct {
	// KeyType is how the token is bound to requests.
	KeyType constants.KeyType
	// Parameters is the parameter collection of the channel asking for a token.
	Parameters *params.Collection
}

// TokenProvider supplies the canonical token for a channel.
type TokenProvider interface {
	GetToken(ctx context.Context) (*models.CanonicalXMLToken, error)
}

// TokenProviderFunc adapts a function to TokenProvider.
type TokenProviderFunc func(ctx context.Context) (*models.CanonicalXMLToken, error)

// GetToken implements TokenProvider.
func (f TokenProviderFunc) GetToken(ctx context.Context) (*models.CanonicalXMLToken, error) {
	return f(ctx)
}

// TokenManager creates token providers for token requirements.
type TokenManager interface {
	CreateTokenProvider(ctx context.Context, req *TokenRequirement) (TokenProvider, error)
}

// Manager is implemented by credential objects that can be placed in a build
// context to drive the security layer.
type Manager interface {
	CreateTokenManager() TokenManager
}

// ================================================================================
// Default Client Credentials
// ================================================================================

// ClientCredentials is the plain credential object. Its token manager serves
// DefaultProvider, or fails when none is set.
type ClientCredentials struct {
	DefaultProvider TokenProvider
}

// NewClientCredentials creates client credentials with an optional default provider.
func NewClientCredentials(provider TokenProvider) *ClientCredentials {
	return &ClientCredentials{DefaultProvider: provider}
}

// Clone returns a shallow copy.
func (c *ClientCredentials) Clone() *ClientCredentials {
	clone := *c
	return &clone
}

// CreateTokenManager implements Manager.
func (c *ClientCredentials) CreateTokenManager() TokenManager {
	return &defaultTokenManager{provider: c.DefaultProvider}
}

type defaultTokenManager struct {
	provider TokenProvider
}

func (m *defaultTokenManager) CreateTokenProvider(_ context.Context, req *TokenRequirement) (TokenProvider, error) {
	if m.provider == nil {
		keyType := constants.KeyType("")
		if req != nil {
			keyType = req.KeyType
		}
		return nil, errors.ErrNoDefaultTokenProvider.WithDetail("key_type", string(keyType))
	}
	return m.provider, nil
}
