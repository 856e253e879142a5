package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/soapproxy/internal/config"
	"github.com/turtacn/soapproxy/pkg/logger"
)

func TestZapLogger_EnabledFollowsCoreLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewZapLoggerFromCore(core)

	assert.False(t, log.Enabled(logger.DebugLevel))
	assert.True(t, log.Enabled(logger.InfoLevel))
	assert.True(t, log.Enabled(logger.ErrorLevel))

	log.Debug(context.Background(), "hidden")
	log.WithFields(logger.Fields{"contract": "Echo"}).Info(context.Background(), "visible", logger.Fields{"n": 1})
	log.Error(context.Background(), "failed", errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "visible", entries[0].Message)
	assert.Equal(t, "Echo", entries[0].ContextMap()["contract"])
	assert.Equal(t, "failed", entries[1].Message)
}

func TestZapLogger_ForContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := NewZapLoggerFromCore(core)
	scoped := base.WithFields(logger.Fields{"request_id": "r-1"})

	ctx := logger.NewContext(context.Background(), scoped)
	base.ForContext(ctx).Debug(ctx, "inside scope")
	base.ForContext(context.Background()).Debug(context.Background(), "outside scope")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "r-1", entries[0].ContextMap()["request_id"])
	assert.NotContains(t, entries[1].ContextMap(), "request_id")
}

func TestMetricsAdapter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	adapter := NewMetricsAdapter(m)

	adapter.RecordProxyCreate("Echo", true, 10*time.Millisecond, "")
	adapter.RecordProxyCreate("Echo", false, time.Millisecond, "configuration_error")
	adapter.RecordTokenResolve("SAMLToken", true)
	adapter.RecordTokenSourceFetch("redis", true, true)
	adapter.RecordSOAPRequest("Echo", "urn:echo", true, time.Millisecond)
	adapter.SetCachedProxies(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProxyCreations.WithLabelValues("Echo", "success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProxyCreations.WithLabelValues("Echo", "failure", "configuration_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenResolutions.WithLabelValues("SAMLToken", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenSourceFetches.WithLabelValues("redis", "success", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SOAPRequests.WithLabelValues("Echo", "urn:echo", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CachedProxies))
}

func TestTracingManager_TraceOperation(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tm, err := NewTracingManagerWithExporter(&config.TracingConfig{Enabled: true, ServiceName: "soapproxy-test"}, exporter, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tm.Shutdown(context.Background()) })

	err = TraceOperation(context.Background(), tm, "proxy.create", func(ctx context.Context) error {
		assert.NotEmpty(t, tm.GetTraceID(ctx))
		return nil
	}, map[string]interface{}{"proxy": "Echo"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = TraceOperation(context.Background(), tm, "proxy.create", func(context.Context) error { return boom }, nil)
	assert.ErrorIs(t, err, boom)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "proxy.create", spans[0].Name)
	assert.Len(t, spans[1].Events, 1)
}

func TestTracingManager_Disabled(t *testing.T) {
	tm, err := NewTracingManager(&config.TracingConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.NotNil(t, tm.Tracer())
	assert.NoError(t, tm.Shutdown(context.Background()))
}
