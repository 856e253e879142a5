// Package proxy creates typed SOAP clients whose channels present an issued
// token. A Registry collects per-contract configuration at startup and is
// finalized into a Factory, which caches the channels it creates until they
// close, fault, or the factory is disposed.
package proxy

import (
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/turtacn/soapproxy/internal/channel"
	"github.com/turtacn/soapproxy/internal/config"
	"github.com/turtacn/soapproxy/internal/domain/service"
	"github.com/turtacn/soapproxy/internal/infrastructure/tokens"
	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
)

// ================================================================================
// Options
// ================================================================================

// Options configures one proxy. Options are read-only once the registry has
// been built.
// Options 配置单个代理。注册表构建完成后选项为只读。
type Options struct {
	// Key identifies the configuration: the contract type name, or
	// <Type>_<variant> for named proxies.
	Key string

	// Endpoint is the service address. It must be an absolute URL.
	Endpoint string

	MaxReceivedMessageSize int64
	MaxBufferPoolSize      int64
	ReaderQuotas           channel.ReaderQuotas

	OpenTimeout    time.Duration
	CloseTimeout   time.Duration
	SendTimeout    time.Duration
	ReceiveTimeout time.Duration

	KeyType      constants.KeyType
	SecurityMode constants.SecurityMode

	// SecurityTokenHandlers read token strings and write tokens, in order.
	SecurityTokenHandlers []service.SecurityTokenHandler

	// ContractBehaviors are applied to the channel factory of every proxy.
	ContractBehaviors []channel.ContractBehavior

	// Stages are inserted into the channel stack between the security
	// presence element and the message security element.
	Stages []channel.BindingElement

	// HTTPClient overrides the transport client.
	HTTPClient *http.Client

	// Initializer builds the channel. Nil uses the registry's default.
	Initializer Initializer

	address *url.URL
}

// DefaultOptions returns options holding the proxy defaults for key.
func DefaultOptions(key string) *Options {
	return &Options{
		Key:                    key,
		MaxReceivedMessageSize: constants.DefaultMaxReceivedMessageSize,
		MaxBufferPoolSize:      constants.DefaultMaxBufferPoolSize,
		ReaderQuotas:           channel.DefaultReaderQuotas(),
		OpenTimeout:            constants.DefaultOpenTimeout,
		CloseTimeout:           constants.DefaultCloseTimeout,
		SendTimeout:            constants.DefaultSendTimeout,
		ReceiveTimeout:         constants.DefaultReceiveTimeout,
		KeyType:                constants.KeyTypeBearer,
		SecurityMode:           constants.SecurityModeTransportWithMessageCredential,
		SecurityTokenHandlers: []service.SecurityTokenHandler{
			tokens.NewSAMLHandler(),
			tokens.NewSAML2Handler(),
		},
	}
}

// Address returns the parsed endpoint. It is nil until the options are finalized.
func (o *Options) Address() *url.URL { return o.address }

// Timeouts returns the channel timeouts.
func (o *Options) Timeouts() channel.Timeouts {
	return channel.Timeouts{
		Open:    o.OpenTimeout,
		Close:   o.CloseTimeout,
		Send:    o.SendTimeout,
		Receive: o.ReceiveTimeout,
	}
}

// finalize validates the endpoint.
func (o *Options) finalize() error {
	if strings.TrimSpace(o.Endpoint) == "" {
		return errors.ErrInvalidEndpoint.WithDetail("proxy", o.Key)
	}
	u, err := url.Parse(o.Endpoint)
	if err != nil {
		return errors.ErrInvalidEndpoint.WithDetail("proxy", o.Key).WithError(err)
	}
	if !u.IsAbs() || u.Host == "" {
		return errors.ErrInvalidEndpoint.
			WithMessage("proxy endpoint must be an absolute URL").
			WithDetail("proxy", o.Key).
			WithDetail("endpoint", o.Endpoint)
	}
	o.address = u
	return nil
}

// ================================================================================
// Keys
// ================================================================================

// CreateKey returns the configuration key for a contract type name and an
// optional variant.
func CreateKey(typeName, variant string) string {
	if variant == "" {
		return typeName
	}
	return typeName + "_" + variant
}

// ContractName returns the name used for T in configuration keys.
func ContractName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// KeyFor returns the configuration key of contract T.
func KeyFor[T any](variant string) string {
	return CreateKey(ContractName[T](), variant)
}

// ================================================================================
// Configuration file
// ================================================================================

// handlerFactories maps configured handler names to constructors.
var handlerFactories = map[string]func() service.SecurityTokenHandler{
	"saml11": func() service.SecurityTokenHandler { return tokens.NewSAMLHandler() },
	"saml2":  func() service.SecurityTokenHandler { return tokens.NewSAML2Handler() },
	"jwt":    func() service.SecurityTokenHandler { return tokens.NewJWTHandler() },
}

// FromConfig returns a configure function applying pc. Zero values keep the
// current settings.
func FromConfig(pc config.ProxyConfig) (func(*Options), error) {
	var handlers []service.SecurityTokenHandler
	for _, name := range pc.TokenHandlers {
		newHandler, ok := handlerFactories[strings.ToLower(name)]
		if !ok {
			return nil, errors.ErrInvalidConfiguration.WithMessage("unknown token handler %q", name)
		}
		handlers = append(handlers, newHandler())
	}

	return func(o *Options) {
		if pc.Endpoint != "" {
			o.Endpoint = pc.Endpoint
		}
		if pc.MaxReceivedMessageSize > 0 {
			o.MaxReceivedMessageSize = pc.MaxReceivedMessageSize
		}
		if pc.MaxBufferPoolSize > 0 {
			o.MaxBufferPoolSize = pc.MaxBufferPoolSize
		}
		if pc.ReaderQuotas.MaxDepth > 0 {
			o.ReaderQuotas.MaxDepth = pc.ReaderQuotas.MaxDepth
		}
		if pc.ReaderQuotas.MaxArrayLength > 0 {
			o.ReaderQuotas.MaxArrayLength = pc.ReaderQuotas.MaxArrayLength
		}
		if pc.ReaderQuotas.MaxStringContentLength > 0 {
			o.ReaderQuotas.MaxStringContentLength = pc.ReaderQuotas.MaxStringContentLength
		}
		if pc.OpenTimeout > 0 {
			o.OpenTimeout = pc.OpenTimeout
		}
		if pc.CloseTimeout > 0 {
			o.CloseTimeout = pc.CloseTimeout
		}
		if pc.SendTimeout > 0 {
			o.SendTimeout = pc.SendTimeout
		}
		if pc.ReceiveTimeout > 0 {
			o.ReceiveTimeout = pc.ReceiveTimeout
		}
		if pc.KeyType != "" {
			o.KeyType = pc.KeyType
		}
		if pc.SecurityMode != "" {
			o.SecurityMode = pc.SecurityMode
		}
		if len(handlers) > 0 {
			o.SecurityTokenHandlers = append([]service.SecurityTokenHandler(nil), handlers...)
		}
	}, nil
}
