// Package monitoring provides the zap logger, the Prometheus metrics and the
// OpenTelemetry tracing used by the proxy.
package monitoring

import (
	"time"

	"github.com/turtacn/soapproxy/internal/domain/service"
)

// MetricsAdapter implements the domain's service.Metrics interface, sending metrics to a Prometheus backend.
// MetricsAdapter 实现了域的 service.Metrics 接口，将指标发送到 Prometheus 后端。
type MetricsAdapter struct {
	metrics *Metrics
}

// NewMetricsAdapter wraps a concrete Prometheus Metrics object, satisfying the domain's Metrics interface.
// NewMetricsAdapter 包装具体 Prometheus Metrics 对象，满足域的 Metrics 接口。
func NewMetricsAdapter(metrics *Metrics) service.Metrics {
	return &MetricsAdapter{metrics: metrics}
}

// RecordProxyCreate delegates the call to the underlying Prometheus Metrics object.
func (a *MetricsAdapter) RecordProxyCreate(proxyKey string, success bool, duration time.Duration, errorCode string) {
	a.metrics.RecordProxyCreate(proxyKey, success, duration, errorCode)
}

// RecordTokenResolve delegates the call to the underlying Prometheus Metrics object.
func (a *MetricsAdapter) RecordTokenResolve(tokenType string, success bool) {
	a.metrics.RecordTokenResolve(tokenType, success)
}

// RecordTokenSourceFetch delegates the call to the underlying Prometheus Metrics object.
func (a *MetricsAdapter) RecordTokenSourceFetch(source string, success bool, cacheHit bool) {
	a.metrics.RecordTokenSourceFetch(source, success, cacheHit)
}

// RecordSOAPRequest delegates the call to the underlying Prometheus Metrics object.
func (a *MetricsAdapter) RecordSOAPRequest(contract, action string, success bool, duration time.Duration) {
	a.metrics.RecordSOAPRequest(contract, action, success, duration)
}

// SetCachedProxies delegates the call to the underlying Prometheus Metrics object.
func (a *MetricsAdapter) SetCachedProxies(count int) {
	a.metrics.SetCachedProxies(count)
}
