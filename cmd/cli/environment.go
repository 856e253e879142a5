package cli

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/turtacn/soapproxy/internal/channel"
	"github.com/turtacn/soapproxy/internal/config"
	"github.com/turtacn/soapproxy/internal/domain/service"
	"github.com/turtacn/soapproxy/internal/infrastructure/monitoring"
	"github.com/turtacn/soapproxy/internal/infrastructure/tokensource"
	"github.com/turtacn/soapproxy/internal/proxy"
	"github.com/turtacn/soapproxy/pkg/logger"
)

// ================================================================================
// RawService
// ================================================================================

// RawService is the contract behind every configured proxy: it sends a body
// element with an action and returns the reply body.
type RawService struct {
	ch *channel.ServiceChannel
}

// NewRawService wraps ch.
func NewRawService(ch *channel.ServiceChannel) RawService {
	return RawService{ch: ch}
}

// Call sends body with action.
func (s RawService) Call(ctx context.Context, action string, body *etree.Element) (*etree.Element, error) {
	return s.ch.Call(ctx, action, body)
}

// Endpoint returns the address the proxy sends to.
func (s RawService) Endpoint() string {
	return s.ch.RemoteAddress().String()
}

// ================================================================================
// Environment
// ================================================================================

// environment holds what every command builds from the configuration file.
type environment struct {
	cfg      *config.Config
	logger   logger.Logger
	registry *prometheus.Registry
	metrics  service.Metrics
	tracing  *monitoring.TracingManager
}

func loadEnvironment(path string) (*environment, error) {
	cfg, err := config.LoadConfig(path, nil)
	if err != nil {
		return nil, err
	}
	log, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return nil, err
	}

	env := &environment{cfg: cfg, logger: log, metrics: service.NoopMetrics{}}
	if cfg.Metrics.Enabled {
		env.registry = prometheus.NewRegistry()
		env.metrics = monitoring.NewMetricsAdapter(monitoring.NewMetrics(env.registry))
	}
	if env.tracing, err = monitoring.NewTracingManager(&cfg.Tracing, log); err != nil {
		return nil, err
	}
	return env, nil
}

// close flushes pending spans.
func (e *environment) close(ctx context.Context) {
	if err := e.tracing.Shutdown(ctx); err != nil {
		e.logger.Warn(ctx, "Failed to shut down tracing", logger.Fields{"error": err.Error()})
	}
}

// proxyName normalizes a proxy name the way viper normalizes configuration keys.
func proxyName(name string) string {
	return strings.ToLower(name)
}

// proxyNames returns the configured proxy names, sorted.
func (e *environment) proxyNames() []string {
	names := make([]string, 0, len(e.cfg.Proxies))
	for name := range e.cfg.Proxies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildFactory registers a RawService variant for every configured proxy.
func (e *environment) buildFactory() (*proxy.Factory, error) {
	source, err := tokensource.New(e.cfg.TokenSource, e.logger, e.metrics)
	if err != nil {
		return nil, err
	}

	opts := []proxy.RegistryOption{
		proxy.WithLogger(e.logger),
		proxy.WithDiagnostics(e.cfg.Log.Diagnostics),
		proxy.WithTokenSource(source),
	}
	if e.registry != nil {
		opts = append(opts, proxy.WithMetrics(e.metrics))
	}
	if e.cfg.Tracing.Enabled {
		opts = append(opts, proxy.WithTracer(e.tracing.Tracer()))
	}

	r := proxy.NewRegistry(opts...)
	for _, name := range e.proxyNames() {
		configure, err := proxy.FromConfig(e.cfg.Proxies[name])
		if err != nil {
			return nil, err
		}
		proxy.AddNamedProxy[RawService](r, proxyName(name), NewRawService, configure)
	}
	return r.Build()
}

// writeMetrics writes the gathered metrics in the Prometheus text format.
func (e *environment) writeMetrics(w io.Writer) error {
	if e.registry == nil {
		return nil
	}
	families, err := e.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
