package proxy

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/soapproxy/internal/channel"
	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/internal/domain/service"
	"github.com/turtacn/soapproxy/internal/infrastructure/tokens"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/logger"
)

const tracerName = "github.com/turtacn/soapproxy/internal/proxy"

// ================================================================================
// Create Options
// ================================================================================

// CreateOption customizes a single CreateProxy call.
type CreateOption func(*createOptions)

type createOptions struct {
	variant string
}

// WithVariant selects the named proxy registered with AddNamedProxy.
func WithVariant(name string) CreateOption {
	return func(o *createOptions) { o.variant = name }
}

// ================================================================================
// Factory
// ================================================================================

// cacheKey identifies one retained channel. Every created channel gets its own
// sequence number, so concurrent creations of one contract are tracked apart.
type cacheKey struct {
	proxy string
	seq   uint64
}

// Factory creates proxies and keeps their channels until they close, fault,
// or the factory is disposed. It is safe for concurrent use.
type Factory struct {
	options      map[string]*Options
	constructors map[string]any
	tokenSource  service.TokenSource
	logger       logger.Logger
	metrics      service.Metrics
	tracer       trace.Tracer

	entries  sync.Map // cacheKey -> *channel.ServiceChannel
	seq      atomic.Uint64
	count    atomic.Int64
	disposed atomic.Bool
}

// CreateProxy creates a client for contract T. An empty token asks the token
// source for one; the string is then read by the first configured handler
// that can read it.
func CreateProxy[T any](ctx context.Context, f *Factory, token string, opts ...CreateOption) (T, error) {
	var zero T
	key := KeyFor[T](applyCreateOptions(opts).variant)
	ch, err := f.create(ctx, key, func(ctx context.Context, o *Options) (models.SecurityToken, error) {
		raw := token
		if raw == "" {
			var err error
			if raw, err = f.acquireToken(ctx); err != nil {
				return nil, err
			}
		}
		return readToken(raw, o)
	})
	if err != nil {
		return zero, err
	}
	return newClient[T](f, key, ch)
}

// CreateProxyWithSecurityToken creates a client for contract T presenting
// token. A nil token asks the token source for one.
func CreateProxyWithSecurityToken[T any](ctx context.Context, f *Factory, token models.SecurityToken, opts ...CreateOption) (T, error) {
	var zero T
	key := KeyFor[T](applyCreateOptions(opts).variant)
	ch, err := f.create(ctx, key, func(ctx context.Context, o *Options) (models.SecurityToken, error) {
		if token != nil {
			return token, nil
		}
		raw, err := f.acquireToken(ctx)
		if err != nil {
			return nil, err
		}
		return readToken(raw, o)
	})
	if err != nil {
		return zero, err
	}
	return newClient[T](f, key, ch)
}

func applyCreateOptions(opts []CreateOption) createOptions {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newClient[T any](f *Factory, key string, ch *channel.ServiceChannel) (T, error) {
	var zero T
	construct, ok := f.constructors[key].(Constructor[T])
	if !ok {
		ch.Abort()
		return zero, errors.ErrUnknownProxyConfiguration.WithDetail("proxy", key)
	}
	return construct(ch), nil
}

// Options returns the finalized options registered under key.
func (f *Factory) Options(key string) (*Options, bool) {
	o, ok := f.options[key]
	return o, ok
}

type tokenFunc func(ctx context.Context, o *Options) (models.SecurityToken, error)

// create looks up the configuration, obtains the token, builds the channel and
// registers it. Nothing is registered unless every step succeeds.
func (f *Factory) create(ctx context.Context, key string, getToken tokenFunc) (ch *channel.ServiceChannel, err error) {
	start := time.Now()
	ctx, span := f.tracer.Start(ctx, "proxy.create", trace.WithAttributes(attribute.String("proxy.key", key)))
	defer func() {
		code := ""
		if err != nil {
			code = errorCode(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		f.metrics.RecordProxyCreate(key, err == nil, time.Since(start), code)
		span.End()
	}()

	if f.disposed.Load() {
		return nil, errors.ErrFactoryDisposed
	}
	opts, ok := f.options[key]
	if !ok {
		return nil, errors.ErrUnknownProxyConfiguration.WithDetail("proxy", key)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	token, err := getToken(ctx, opts)
	if err != nil {
		f.logger.Warn(ctx, "Failed to obtain security token", logger.Fields{"proxy": key, "error": err.Error()})
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkConvertible(token, opts); err != nil {
		f.logger.Warn(ctx, "Security token cannot be converted", logger.Fields{"proxy": key, "error": err.Error()})
		return nil, err
	}

	ch, err = opts.Initializer.InitializeProxy(ctx, opts, token)
	if err != nil {
		f.logger.Error(ctx, "Failed to initialize proxy", err, logger.Fields{"proxy": key})
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		ch.Abort()
		return nil, err
	}

	if err := f.register(key, ch); err != nil {
		return nil, err
	}
	if f.logger.Enabled(logger.DebugLevel) {
		f.logger.Debug(ctx, "Proxy created", logger.Fields{"proxy": key, "endpoint": opts.Endpoint})
	}
	return ch, nil
}

func (f *Factory) acquireToken(ctx context.Context) (string, error) {
	if f.tokenSource == nil {
		return "", errors.ErrNoTokenProviderConfigured
	}
	token, err := f.tokenSource.GetSecurityToken(ctx)
	if err != nil {
		if errors.HasCode(err, errors.CodeTokenAcquisition) {
			return "", err
		}
		return "", errors.ErrTokenUnavailable.WithError(err)
	}
	if token == "" {
		return "", errors.ErrTokenUnavailable
	}
	return token, nil
}

func readToken(raw string, opts *Options) (models.SecurityToken, error) {
	for _, h := range opts.SecurityTokenHandlers {
		if !h.CanReadToken(raw) {
			continue
		}
		token, err := h.ReadToken(raw)
		if err != nil {
			return nil, errors.ErrUnreadableToken.
				WithDetail("handler", string(h.TokenType())).
				WithError(err)
		}
		return token, nil
	}
	return nil, errors.ErrUnreadableToken.WithDetail("proxy", opts.Key)
}

// checkConvertible fails when no handler the channel will use can write token
// or when its proof key cannot become a binary secret. A nil token passes.
func checkConvertible(token models.SecurityToken, opts *Options) error {
	if token == nil {
		return nil
	}
	handlers := make([]service.SecurityTokenHandler, 0, len(opts.SecurityTokenHandlers)+1)
	handlers = append(handlers, opts.SecurityTokenHandlers...)
	handlers = append(handlers, tokens.NewGenericXMLHandler())
	if _, ok := tokens.FindWriter(token, handlers); !ok {
		name := models.TypeName(token)
		return errors.ErrUnsupportedTokenType.
			WithMessage("cannot write token type: %s", name).
			WithDetail("token_type", name)
	}
	_, err := tokens.ProofToken(token.SecurityKey())
	return err
}

// register retains ch until it closes or faults.
func (f *Factory) register(key string, ch *channel.ServiceChannel) error {
	k := cacheKey{proxy: key, seq: f.seq.Add(1)}
	remove := func() { f.remove(k, ch) }
	ch.OnClosed(remove)
	ch.OnFaulted(remove)

	f.count.Add(1)
	f.entries.Store(k, ch)

	// The channel may have ended before its entry existed, and Dispose may
	// have run between the disposed check and the store.
	if f.disposed.Load() {
		if _, loaded := f.entries.LoadAndDelete(k); loaded {
			f.count.Add(-1)
		}
		ch.Abort()
		return errors.ErrFactoryDisposed
	}
	if s := ch.State(); s == channel.StateClosed || s == channel.StateFaulted {
		remove()
	}
	f.metrics.SetCachedProxies(int(f.count.Load()))
	return nil
}

func (f *Factory) remove(k cacheKey, ch *channel.ServiceChannel) {
	if f.entries.CompareAndDelete(k, ch) {
		f.metrics.SetCachedProxies(int(f.count.Add(-1)))
	}
}

// Len returns the number of retained channels.
func (f *Factory) Len() int {
	n := 0
	f.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Keys returns the configuration key of every retained channel, sorted. A key
// appears once per channel.
func (f *Factory) Keys() []string {
	var keys []string
	f.entries.Range(func(k, _ any) bool {
		keys = append(keys, k.(cacheKey).proxy)
		return true
	})
	sort.Strings(keys)
	return keys
}

// Dispose disposes every retained channel exactly once. Later calls do
// nothing; CreateProxy fails with ErrFactoryDisposed afterwards.
func (f *Factory) Dispose() {
	if !f.disposed.CompareAndSwap(false, true) {
		return
	}
	n := 0
	f.entries.Range(func(k, _ any) bool {
		if v, loaded := f.entries.LoadAndDelete(k); loaded {
			f.count.Add(-1)
			v.(*channel.ServiceChannel).Dispose()
			n++
		}
		return true
	})
	f.metrics.SetCachedProxies(int(f.count.Load()))
	f.logger.Info(context.Background(), "Proxy factory disposed", logger.Fields{"channels": n})
}

func errorCode(err error) string {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return "unknown"
}
