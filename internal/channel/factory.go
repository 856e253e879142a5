package channel

import (
	"context"
	"net/url"
	"sync"

	"github.com/turtacn/soapproxy/internal/credentials"
	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/internal/domain/service"
	"github.com/turtacn/soapproxy/internal/infrastructure/tokens"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/logger"
	"github.com/turtacn/soapproxy/pkg/params"
)

// ================================================================================
// Service Channel Factory
// ================================================================================

// FactoryOption configures a ServiceChannelFactory.
type FactoryOption func(*ServiceChannelFactory)

// WithLogger enables diagnostic logging: the encoding element is replaced by a
// tracing wrapper at the same position, and a LoggingBehavior is added.
func WithLogger(log logger.Logger) FactoryOption {
	return func(f *ServiceChannelFactory) { f.logger = log }
}

// WithCredentials sets the credentials placed in the build parameters.
func WithCredentials(creds credentials.Manager) FactoryOption {
	return func(f *ServiceChannelFactory) { f.credentials = creds }
}

// WithBehaviors appends contract behaviors.
func WithBehaviors(behaviors ...ContractBehavior) FactoryOption {
	return func(f *ServiceChannelFactory) { f.behaviors = append(f.behaviors, behaviors...) }
}

// WithBuildParameters adds items, such as an *http.Client, to the build parameters.
func WithBuildParameters(items ...any) FactoryOption {
	return func(f *ServiceChannelFactory) { f.buildParams = append(f.buildParams, items...) }
}

// ServiceChannelFactory builds the channel stack of a binding once, on first
// use, and creates service channels from it.
type ServiceChannelFactory struct {
	binding     Binding
	contract    string
	endpoint    *url.URL
	logger      logger.Logger
	credentials credentials.Manager
	behaviors   []ContractBehavior
	buildParams []any

	once    sync.Once
	inner   ChannelFactory
	runtime *ClientRuntime
	err     error
}

// NewServiceChannelFactory creates a factory for contract at endpoint.
func NewServiceChannelFactory(binding Binding, contract string, endpoint *url.URL, opts ...FactoryOption) *ServiceChannelFactory {
	f := &ServiceChannelFactory{
		binding:  binding,
		contract: contract,
		endpoint: endpoint,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger != nil {
		f.behaviors = append(f.behaviors, &LoggingBehavior{Logger: f.logger})
	}
	return f
}

// Endpoint returns the default service address.
func (f *ServiceChannelFactory) Endpoint() *url.URL { return f.endpoint }

// Contract returns the contract name.
func (f *ServiceChannelFactory) Contract() string { return f.contract }

// Credentials returns the credentials placed in the build parameters, or nil.
func (f *ServiceChannelFactory) Credentials() credentials.Manager { return f.credentials }

// BindingElements returns the elements the stack is built from, after the
// diagnostic substitution.
func (f *ServiceChannelFactory) BindingElements() []BindingElement {
	elements := f.binding.CreateBindingElements()
	if f.logger == nil {
		return elements
	}
	for i, e := range elements {
		if enc, ok := e.(MessageEncodingElement); ok {
			elements[i] = NewTraceMessageEncodingElement(enc, f.logger)
			break
		}
	}
	return elements
}

func (f *ServiceChannelFactory) build() (ChannelFactory, *ClientRuntime, error) {
	f.once.Do(func() {
		log := logger.OrNoop(f.logger)
		if log.Enabled(logger.DebugLevel) {
			log.Debug(context.Background(), "Creating channel factory", logger.Fields{
				"contract": f.contract,
				"binding":  f.binding.Name(),
			})
		}

		parameters := params.New(f.credentials)
		for _, item := range f.buildParams {
			parameters.Add(item)
		}
		runtime := &ClientRuntime{Contract: f.contract}
		for _, b := range f.behaviors {
			b.AddBindingParameters(parameters)
			b.ApplyClientBehavior(runtime)
		}

		f.inner, f.err = NewBuildContext(f.BindingElements(), parameters).BuildInnerChannelFactory()
		f.runtime = runtime
	})
	return f.inner, f.runtime, f.err
}

// CreateChannel creates a service channel addressed to to and sent via via.
// Nil addresses default to the endpoint.
func (f *ServiceChannelFactory) CreateChannel(to, via *url.URL) (*ServiceChannel, error) {
	inner, runtime, err := f.build()
	if err != nil {
		return nil, err
	}
	if to == nil {
		to = f.endpoint
	}
	if to == nil {
		return nil, errors.ErrInvalidEndpoint
	}
	rc, err := inner.CreateChannel(to, via)
	if err != nil {
		return nil, err
	}
	return newServiceChannel(rc, runtime, f.binding.Timeouts(), f.logger), nil
}

// ================================================================================
// Issued Token Channel Factory
// ================================================================================

// IssuedTokenChannelFactory creates service channels that present an issued
// token. The token and the handlers that may write it are attached to each
// channel's parameters right after the channel is created.
type IssuedTokenChannelFactory struct {
	*ServiceChannelFactory

	mu       sync.RWMutex
	handlers []service.SecurityTokenHandler
	generic  service.SecurityTokenHandler
}

// NewIssuedTokenChannelFactory creates a factory whose credentials default to
// extended client credentials.
func NewIssuedTokenChannelFactory(binding Binding, contract string, endpoint *url.URL, opts ...FactoryOption) *IssuedTokenChannelFactory {
	f := &IssuedTokenChannelFactory{
		ServiceChannelFactory: NewServiceChannelFactory(binding, contract, endpoint, opts...),
		generic:               tokens.NewGenericXMLHandler(),
	}
	if f.credentials == nil {
		f.credentials = credentials.NewExtendedClientCredentials(f.logger)
	}
	return f
}

// AddSecurityTokenHandlers appends handlers ahead of the built-in generic XML handler.
func (f *IssuedTokenChannelFactory) AddSecurityTokenHandlers(handlers ...service.SecurityTokenHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handlers...)
}

// SetSecurityTokenHandlers replaces the caller handlers.
func (f *IssuedTokenChannelFactory) SetSecurityTokenHandlers(handlers ...service.SecurityTokenHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append([]service.SecurityTokenHandler(nil), handlers...)
}

// SecurityTokenHandlers returns the caller handlers followed by the generic
// XML handler, which is always checked last.
func (f *IssuedTokenChannelFactory) SecurityTokenHandlers() []service.SecurityTokenHandler {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.SecurityTokenHandler, 0, len(f.handlers)+1)
	out = append(out, f.handlers...)
	return append(out, f.generic)
}

// CreateChannelWithIssuedToken creates a channel to the configured endpoint.
func (f *IssuedTokenChannelFactory) CreateChannelWithIssuedToken(token models.SecurityToken) (*ServiceChannel, error) {
	return f.CreateChannelWithIssuedTokenVia(token, nil, nil)
}

// CreateChannelWithIssuedTokenTo creates a channel to the service address to.
func (f *IssuedTokenChannelFactory) CreateChannelWithIssuedTokenTo(token models.SecurityToken, to *url.URL) (*ServiceChannel, error) {
	return f.CreateChannelWithIssuedTokenVia(token, to, nil)
}

// CreateChannelWithIssuedTokenVia creates a channel to to, sent through via.
// A nil token yields a channel without a sidecar, which relies on the default
// credentials.
func (f *IssuedTokenChannelFactory) CreateChannelWithIssuedTokenVia(token models.SecurityToken, to, via *url.URL) (*ServiceChannel, error) {
	ch, err := f.CreateChannel(to, via)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return ch, nil
	}

	var sidecar *credentials.ExtendedClientCredentials
	if ext, ok := f.Credentials().(*credentials.ExtendedClientCredentials); ok {
		sidecar = ext.WithIssuedToken(token, f.SecurityTokenHandlers())
	} else {
		sidecar = credentials.NewExtendedClientCredentials(f.logger).WithIssuedToken(token, f.SecurityTokenHandlers())
	}
	ch.Parameters().Add(sidecar)
	return ch, nil
}
