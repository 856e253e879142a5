package proxy

import (
	"context"

	"github.com/turtacn/soapproxy/internal/channel"
	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/pkg/logger"
)

// Initializer builds the channel behind a proxy.
// Initializer 构建代理背后的通道。
type Initializer interface {
	// InitializeProxy creates a channel for opts. A nil token creates a
	// channel that relies on the default credentials.
	// InitializeProxy 为 opts 创建通道。token 为 nil 时通道使用默认凭据。
	InitializeProxy(ctx context.Context, opts *Options, token models.SecurityToken) (*channel.ServiceChannel, error)
}

// InitializerFunc adapts a function to Initializer.
type InitializerFunc func(ctx context.Context, opts *Options, token models.SecurityToken) (*channel.ServiceChannel, error)

// InitializeProxy implements Initializer.
func (f InitializerFunc) InitializeProxy(ctx context.Context, opts *Options, token models.SecurityToken) (*channel.ServiceChannel, error) {
	return f(ctx, opts, token)
}

// DefaultInitializer builds an issued-token HTTP binding from the options and
// creates the channel from an IssuedTokenChannelFactory.
type DefaultInitializer struct {
	logger logger.Logger
}

// NewDefaultInitializer creates the default initializer. A non-nil logger
// enables diagnostic message logging on the channels it builds.
func NewDefaultInitializer(log logger.Logger) *DefaultInitializer {
	return &DefaultInitializer{logger: log}
}

// InitializeProxy implements Initializer.
func (i *DefaultInitializer) InitializeProxy(ctx context.Context, opts *Options, token models.SecurityToken) (*channel.ServiceChannel, error) {
	log := logger.OrNoop(i.logger)
	if log.Enabled(logger.DebugLevel) {
		log.Debug(ctx, "Initializing channel for endpoint", logger.Fields{
			"proxy":    opts.Key,
			"endpoint": opts.Endpoint,
		})
	}

	factoryOpts := []channel.FactoryOption{channel.WithBehaviors(opts.ContractBehaviors...)}
	if i.logger != nil {
		factoryOpts = append(factoryOpts, channel.WithLogger(i.logger))
	}
	if opts.HTTPClient != nil {
		factoryOpts = append(factoryOpts, channel.WithBuildParameters(opts.HTTPClient))
	}
	factory := channel.NewIssuedTokenChannelFactory(i.CreateBinding(opts), opts.Key, opts.Address(), factoryOpts...)

	if token == nil {
		return factory.CreateChannelWithIssuedToken(nil)
	}
	factory.SetSecurityTokenHandlers(opts.SecurityTokenHandlers...)
	return factory.CreateChannelWithIssuedToken(token)
}

// CreateBinding returns the binding for opts.
func (i *DefaultInitializer) CreateBinding(opts *Options) channel.Binding {
	binding := channel.NewIssuedTokenBinding()
	binding.KeyType = opts.KeyType
	binding.SecurityMode = opts.SecurityMode
	binding.MaxReceivedMessageSize = opts.MaxReceivedMessageSize
	binding.MaxBufferPoolSize = opts.MaxBufferPoolSize
	binding.ReaderQuotas = opts.ReaderQuotas
	binding.ChannelTimeouts = opts.Timeouts()
	binding.Stages = append(binding.Stages, opts.Stages...)
	return binding
}
