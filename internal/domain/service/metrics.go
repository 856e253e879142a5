// Package service defines the interfaces for domain services and collaborators.
package service

import (
	"time"
)

// Metrics defines the interface for collecting proxy metrics.
// This abstraction keeps the proxy independent of the specific monitoring implementation (e.g., Prometheus).
// Metrics 定义了收集代理指标的接口。
// 这种抽象使代理能够独立于具体的监控实现（例如 Prometheus）。
type Metrics interface {
	// RecordProxyCreate records the outcome and latency of a proxy creation.
	// RecordProxyCreate 记录代理创建的结果和延迟。
	RecordProxyCreate(proxyKey string, success bool, duration time.Duration, errorCode string)

	// RecordTokenResolve records a token conversion and the handler that wrote it.
	// RecordTokenResolve 记录令牌转换及写入它的处理器。
	RecordTokenResolve(tokenType string, success bool)

	// RecordTokenSourceFetch records a token source call.
	// RecordTokenSourceFetch 记录令牌源调用。
	RecordTokenSourceFetch(source string, success bool, cacheHit bool)

	// RecordSOAPRequest records a SOAP request and its latency.
	// RecordSOAPRequest 记录 SOAP 请求及其延迟。
	RecordSOAPRequest(contract, action string, success bool, duration time.Duration)

	// SetCachedProxies sets the number of proxies tracked by a factory.
	// SetCachedProxies 设置工厂跟踪的代理数量。
	SetCachedProxies(count int)
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

// RecordProxyCreate implements Metrics.
func (NoopMetrics) RecordProxyCreate(string, bool, time.Duration, string) {}

// RecordTokenResolve implements Metrics.
func (NoopMetrics) RecordTokenResolve(string, bool) {}

// RecordTokenSourceFetch implements Metrics.
func (NoopMetrics) RecordTokenSourceFetch(string, bool, bool) {}

// RecordSOAPRequest implements Metrics.
func (NoopMetrics) RecordSOAPRequest(string, string, bool, time.Duration) {}

// SetCachedProxies implements Metrics.
func (NoopMetrics) SetCachedProxies(int) {}
