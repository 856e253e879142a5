package channel

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/turtacn/soapproxy/internal/credentials"
	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/logger"
	"github.com/turtacn/soapproxy/pkg/params"
)

// ================================================================================
// Security Presence
// ================================================================================

// IssuedTokenElement makes sure the build parameters hold extended client
// credentials before the rest of the stack is built. Existing extended
// credentials are reused; plain client credentials are replaced by a wrapper
// that keeps their default provider; otherwise fresh credentials are added.
type IssuedTokenElement struct{}

// NewIssuedTokenElement creates the security presence element.
func NewIssuedTokenElement() *IssuedTokenElement {
	return &IssuedTokenElement{}
}

// Clone implements BindingElement.
func (e *IssuedTokenElement) Clone() BindingElement {
	return &IssuedTokenElement{}
}

// BuildChannelFactory implements BindingElement.
func (e *IssuedTokenElement) BuildChannelFactory(bc *BuildContext) (ChannelFactory, error) {
	log, _ := params.Find[logger.Logger](bc.Parameters)
	log = logger.OrNoop(log)
	if log.Enabled(logger.DebugLevel) {
		log.Debug(context.Background(), "Creating issued token channel factory")
	}

	if _, ok := params.Find[*credentials.ExtendedClientCredentials](bc.Parameters); !ok {
		if base, ok := params.Remove[*credentials.ClientCredentials](bc.Parameters); ok {
			bc.Parameters.Add(credentials.WrapClientCredentials(base, log))
		} else {
			bc.Parameters.Add(credentials.NewExtendedClientCredentials(log))
		}
	}
	return bc.BuildInnerChannelFactory()
}

// ================================================================================
// Message Security
// ================================================================================

// TransportSecurityElement writes a WS-Security header carrying the issued
// token into every request. The token is obtained once, when the channel opens.
type TransportSecurityElement struct {
	KeyType           constants.KeyType
	TimestampValidity time.Duration
}

// Clone implements BindingElement.
func (e *TransportSecurityElement) Clone() BindingElement {
	clone := *e
	return &clone
}

// BuildChannelFactory implements BindingElement.
func (e *TransportSecurityElement) BuildChannelFactory(bc *BuildContext) (ChannelFactory, error) {
	var manager credentials.Manager
	if m, ok := params.Find[credentials.Manager](bc.Parameters); ok {
		manager = m
	} else {
		manager = credentials.NewClientCredentials(nil)
	}
	tokenManager := manager.CreateTokenManager()

	inner, err := bc.BuildInnerChannelFactory()
	if err != nil {
		return nil, err
	}

	validity := e.TimestampValidity
	if validity <= 0 {
		validity = constants.DefaultTimestampValidity
	}
	keyType := e.KeyType
	if keyType == "" {
		keyType = constants.KeyTypeBearer
	}
	return &securityChannelFactory{inner: inner, tokenManager: tokenManager, keyType: keyType, validity: validity}, nil
}

type securityChannelFactory struct {
	inner        ChannelFactory
	tokenManager credentials.TokenManager
	keyType      constants.KeyType
	validity     time.Duration
}

func (f *securityChannelFactory) CreateChannel(to, via *url.URL) (RequestChannel, error) {
	inner, err := f.inner.CreateChannel(to, via)
	if err != nil {
		return nil, err
	}
	return &securityChannel{RequestChannel: inner, factory: f, now: time.Now}, nil
}

type securityChannel struct {
	RequestChannel
	factory *securityChannelFactory
	now     func() time.Time

	mu    sync.RWMutex
	token *models.CanonicalXMLToken
}

func (c *securityChannel) Open(ctx context.Context) error {
	if err := c.RequestChannel.Open(ctx); err != nil {
		return err
	}
	provider, err := c.factory.tokenManager.CreateTokenProvider(ctx, &credentials.TokenRequirement{
		KeyType:    c.factory.keyType,
		Parameters: c.RequestChannel.Parameters(),
	})
	if err != nil {
		return err
	}
	token, err := provider.GetToken(ctx)
	if err != nil {
		return err
	}
	if c.factory.keyType == constants.KeyTypeSymmetric && token.Proof == nil {
		return errors.ErrUnsupportedKeyType.WithMessage("symmetric key type requires a token with a proof key")
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

func (c *securityChannel) Request(ctx context.Context, msg *Message) (*Message, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token == nil {
		return nil, errors.ErrChannelNotUsable.WithMessage("channel has no security token; open it first")
	}

	now := c.now().UTC()
	if token.IsExpired(now) {
		return nil, errors.ErrTokenUnavailable.
			WithMessage("issued token has expired").
			WithDetail("valid_to", token.ValidTo.Format(time.RFC3339))
	}
	msg.AddHeader(securityHeader(token, now, c.factory.validity), true)
	return c.RequestChannel.Request(ctx, msg)
}

// securityHeader builds the wsse:Security header for token.
func securityHeader(token *models.CanonicalXMLToken, now time.Time, validity time.Duration) *etree.Element {
	security := etree.NewElement("wsse:Security")
	security.CreateAttr("xmlns:wsse", constants.NamespaceWSSE)
	security.CreateAttr("xmlns:wsu", constants.NamespaceWSU)

	ts := security.CreateElement("wsu:Timestamp")
	ts.CreateAttr("wsu:Id", "_"+uuid.NewString())
	ts.CreateElement("wsu:Created").SetText(now.Format("2006-01-02T15:04:05.000Z"))
	ts.CreateElement("wsu:Expires").SetText(now.Add(validity).Format("2006-01-02T15:04:05.000Z"))

	security.AddChild(token.Element.Copy())
	return security
}
