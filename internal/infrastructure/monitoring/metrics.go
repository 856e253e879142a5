package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics.
type Metrics struct {
	ProxyCreations     *prometheus.CounterVec
	ProxyCreateLatency *prometheus.HistogramVec
	TokenResolutions   *prometheus.CounterVec
	TokenSourceFetches *prometheus.CounterVec
	SOAPRequests       *prometheus.CounterVec
	SOAPRequestLatency *prometheus.HistogramVec
	CachedProxies      prometheus.Gauge
}

// NewMetrics creates the Prometheus metrics and registers them with reg.
// A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ProxyCreations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soapproxy_proxy_creations_total",
				Help: "Total number of proxy creation attempts.",
			},
			[]string{"proxy", "result", "error_code"},
		),
		ProxyCreateLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "soapproxy_proxy_create_latency_seconds",
				Help:    "Latency of proxy creation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"proxy"},
		),
		TokenResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soapproxy_token_resolutions_total",
				Help: "Total number of token conversions to their XML form.",
			},
			[]string{"token_type", "result"},
		),
		TokenSourceFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soapproxy_token_source_fetches_total",
				Help: "Total number of token source calls.",
			},
			[]string{"source", "result", "cache"},
		),
		SOAPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soapproxy_soap_requests_total",
				Help: "Total number of SOAP requests.",
			},
			[]string{"contract", "action", "result"},
		),
		SOAPRequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "soapproxy_soap_request_latency_seconds",
				Help:    "Latency of SOAP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"contract", "action"},
		),
		CachedProxies: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "soapproxy_cached_proxies",
				Help: "Number of proxies tracked by the proxy factory.",
			},
		),
	}
}

// RecordProxyCreate records metrics for a proxy creation.
func (m *Metrics) RecordProxyCreate(proxyKey string, success bool, duration time.Duration, errorCode string) {
	m.ProxyCreations.WithLabelValues(proxyKey, result(success), errorCode).Inc()
	m.ProxyCreateLatency.WithLabelValues(proxyKey).Observe(duration.Seconds())
}

// RecordTokenResolve records a token conversion.
func (m *Metrics) RecordTokenResolve(tokenType string, success bool) {
	m.TokenResolutions.WithLabelValues(tokenType, result(success)).Inc()
}

// RecordTokenSourceFetch records a token source call.
func (m *Metrics) RecordTokenSourceFetch(source string, success bool, cacheHit bool) {
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	m.TokenSourceFetches.WithLabelValues(source, result(success), cache).Inc()
}

// RecordSOAPRequest records a SOAP request.
func (m *Metrics) RecordSOAPRequest(contract, action string, success bool, duration time.Duration) {
	m.SOAPRequests.WithLabelValues(contract, action, result(success)).Inc()
	m.SOAPRequestLatency.WithLabelValues(contract, action).Observe(duration.Seconds())
}

// SetCachedProxies sets the cached proxy gauge.
func (m *Metrics) SetCachedProxies(count int) {
	m.CachedProxies.Set(float64(count))
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

//Personal.AI order the ending
