package proxy

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/soapproxy/internal/channel"
	"github.com/turtacn/soapproxy/internal/config"
	"github.com/turtacn/soapproxy/internal/domain/service"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/logger"
)

// ================================================================================
// Registry
// ================================================================================

// Constructor wraps a channel in the typed client of contract T.
type Constructor[T any] func(ch *channel.ServiceChannel) T

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used by the factory. It does not enable message
// diagnostics; see WithDiagnostics.
func WithLogger(log logger.Logger) RegistryOption {
	return func(r *Registry) { r.logger = log }
}

// WithDiagnostics makes the default initializer log SOAP messages at debug level.
func WithDiagnostics(enabled bool) RegistryOption {
	return func(r *Registry) { r.diagnostics = enabled }
}

// WithMetrics records proxy creation and adds a metrics stage to every proxy.
func WithMetrics(metrics service.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = metrics }
}

// WithTracer traces proxy creation and adds a tracing stage to every proxy.
func WithTracer(tracer trace.Tracer) RegistryOption {
	return func(r *Registry) { r.tracer = tracer }
}

// WithTokenSource sets the token source used when no token is supplied.
func WithTokenSource(source service.TokenSource) RegistryOption {
	return func(r *Registry) { r.tokenSource = source }
}

type configureStep struct {
	key string // empty applies to every proxy
	fn  func(*Options)
}

// Registry collects proxy registrations and configuration. It is not safe for
// concurrent use; configure it at startup and call Build once.
type Registry struct {
	constructors map[string]any
	steps        []configureStep
	tokenSource  service.TokenSource
	logger       logger.Logger
	diagnostics  bool
	metrics      service.Metrics
	tracer       trace.Tracer
	err          error
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{constructors: make(map[string]any)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddProxy registers contract T with the default initializer.
func AddProxy[T any](r *Registry, newClient Constructor[T], configure func(*Options)) *Registry {
	return register(r, KeyFor[T](""), newClient, nil, configure)
}

// AddProxyWithInitializer registers contract T with a custom initializer.
func AddProxyWithInitializer[T any](r *Registry, init Initializer, newClient Constructor[T], configure func(*Options)) *Registry {
	return register(r, KeyFor[T](""), newClient, init, configure)
}

// AddNamedProxy registers a variant of contract T under <Type>_<name>.
func AddNamedProxy[T any](r *Registry, name string, newClient Constructor[T], configure func(*Options)) *Registry {
	return register(r, KeyFor[T](name), newClient, nil, configure)
}

// ConfigureProxy adds a configure function for contract T.
func ConfigureProxy[T any](r *Registry, configure func(*Options)) *Registry {
	return r.Configure(KeyFor[T](""), configure)
}

func register[T any](r *Registry, key string, newClient Constructor[T], init Initializer, configure func(*Options)) *Registry {
	if newClient == nil {
		r.fail(errors.ErrInvalidConfiguration.WithMessage("proxy %s has no client constructor", key))
		return r
	}
	r.constructors[key] = newClient
	if init != nil {
		r.Configure(key, func(o *Options) { o.Initializer = init })
	}
	return r.Configure(key, configure)
}

// Configure adds a configure function for the proxy registered under key.
func (r *Registry) Configure(key string, configure func(*Options)) *Registry {
	if configure != nil {
		r.steps = append(r.steps, configureStep{key: key, fn: configure})
	}
	return r
}

// ConfigureAll adds a configure function applied to every proxy, in
// registration order with the per-proxy functions.
func (r *Registry) ConfigureAll(configure func(*Options)) *Registry {
	if configure != nil {
		r.steps = append(r.steps, configureStep{fn: configure})
	}
	return r
}

// AddTokenSource sets the token source used when no token is supplied.
func (r *Registry) AddTokenSource(source service.TokenSource) *Registry {
	r.tokenSource = source
	return r
}

// ConfigureFromConfig applies file configuration to registered proxies.
// Configuration keys are matched case-insensitively because viper lower-cases
// map keys; entries without a registered proxy are logged and skipped.
func (r *Registry) ConfigureFromConfig(proxies map[string]config.ProxyConfig) *Registry {
	log := logger.OrNoop(r.logger)
	names := make([]string, 0, len(proxies))
	for name := range proxies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key, ok := r.lookupKey(name)
		if !ok {
			log.Warn(context.Background(), "No proxy registered for configuration", logger.Fields{"proxy": name})
			continue
		}
		configure, err := FromConfig(proxies[name])
		if err != nil {
			r.fail(err)
			continue
		}
		r.Configure(key, configure)
	}
	return r
}

func (r *Registry) lookupKey(name string) (string, bool) {
	if _, ok := r.constructors[name]; ok {
		return name, true
	}
	for key := range r.constructors {
		if strings.EqualFold(key, name) {
			return key, true
		}
	}
	return "", false
}

func (r *Registry) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Build finalizes the configuration of every registered proxy and returns the
// factory. A proxy with an empty or relative endpoint fails the build.
func (r *Registry) Build() (*Factory, error) {
	if r.err != nil {
		return nil, r.err
	}

	var defaultInit Initializer
	if r.diagnostics {
		defaultInit = NewDefaultInitializer(r.logger)
	} else {
		defaultInit = NewDefaultInitializer(nil)
	}

	keys := make([]string, 0, len(r.constructors))
	for key := range r.constructors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	options := make(map[string]*Options, len(keys))
	for _, key := range keys {
		opts := DefaultOptions(key)
		for _, step := range r.steps {
			if step.key == "" || step.key == key {
				step.fn(opts)
			}
		}
		opts.Key = key
		if err := opts.finalize(); err != nil {
			return nil, err
		}
		if opts.Initializer == nil {
			opts.Initializer = defaultInit
		}
		if r.tracer != nil {
			opts.Stages = append(opts.Stages, channel.NewTracingElement(r.tracer, key))
		}
		if r.metrics != nil {
			opts.Stages = append(opts.Stages, channel.NewMetricsElement(r.metrics, key))
		}
		options[key] = opts
	}

	constructors := make(map[string]any, len(r.constructors))
	for key, c := range r.constructors {
		constructors[key] = c
	}

	metrics := r.metrics
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	tracer := r.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	logger.OrNoop(r.logger).Info(context.Background(), "Proxy factory built", logger.Fields{"proxies": keys})
	return &Factory{
		options:      options,
		constructors: constructors,
		tokenSource:  r.tokenSource,
		logger:       logger.OrNoop(r.logger),
		metrics:      metrics,
		tracer:       tracer,
	}, nil
}
