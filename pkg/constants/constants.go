// Package constants defines system-wide constants for the SOAP issued-token proxy.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Proxy Defaults
// ================================================================================

const (
	// DefaultMaxReceivedMessageSize is the largest SOAP reply accepted, in bytes
	DefaultMaxReceivedMessageSize int64 = 10_000_000

	// DefaultMaxBufferPoolSize is the total size of pooled encode buffers, in bytes
	DefaultMaxBufferPoolSize int64 = 20_000_000

	// DefaultReaderQuotasMaxDepth is the maximum nesting depth of a received document
	DefaultReaderQuotasMaxDepth = 32

	// DefaultReaderQuotasMaxArrayLength is the maximum number of sibling elements
	DefaultReaderQuotasMaxArrayLength = 400_000

	// DefaultReaderQuotasMaxStringContentLength is the maximum length of element text
	DefaultReaderQuotasMaxStringContentLength = 200_000

	// DefaultOpenTimeout bounds channel open
	DefaultOpenTimeout = 5 * time.Second

	// DefaultCloseTimeout bounds channel close
	DefaultCloseTimeout = 5 * time.Second

	// DefaultReceiveTimeout bounds waiting for a reply
	DefaultReceiveTimeout = 5 * time.Second

	// DefaultSendTimeout bounds writing a request
	DefaultSendTimeout = 5 * time.Second

	// DefaultTokenFetchTimeout bounds a shared token source fetch
	DefaultTokenFetchTimeout = 30 * time.Second

	// DefaultTimestampValidity is the lifetime of the wsu:Timestamp written in the security header
	DefaultTimestampValidity = 5 * time.Minute
)

// ================================================================================
// Key Types
// ================================================================================

// KeyType describes how the issued token is bound to the request
type KeyType string

const (
	// KeyTypeBearer presents the token by possession only (signed supporting token)
	KeyTypeBearer KeyType = "bearer"

	// KeyTypeSymmetric presents the token with a symmetric proof key (endorsing supporting token)
	KeyTypeSymmetric KeyType = "symmetric"
)

// ================================================================================
// Security Modes
// ================================================================================

// SecurityMode selects which transports are acceptable for a channel
type SecurityMode string

const (
	// SecurityModeTransportWithMessageCredential requires https and carries the token in the message
	SecurityModeTransportWithMessageCredential SecurityMode = "transport_with_message_credential"

	// SecurityModeMessageCredentialOnly carries the token in the message over any transport
	SecurityModeMessageCredentialOnly SecurityMode = "message_credential_only"
)

// ================================================================================
// XML Namespaces
// ================================================================================

const (
	// NamespaceSOAP12 is the SOAP 1.2 envelope namespace
	NamespaceSOAP12 = "http://www.w3.org/2003/05/soap-envelope"

	// NamespaceSOAP11 is the SOAP 1.1 envelope namespace
	NamespaceSOAP11 = "http://schemas.xmlsoap.org/soap/envelope/"

	// NamespaceAddressing is the WS-Addressing 1.0 namespace
	NamespaceAddressing = "http://www.w3.org/2005/08/addressing"

	// NamespaceWSSE is the WS-Security 1.0 secext namespace
	NamespaceWSSE = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"

	// NamespaceWSSE11 is the WS-Security 1.1 namespace
	NamespaceWSSE11 = "http://docs.oasis-open.org/wss/oasis-wss-wssecurity-secext-1.1.xsd"

	// NamespaceWSU is the WS-Security utility namespace
	NamespaceWSU = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd"

	// NamespaceWSTrust13 is the WS-Trust 1.3 namespace
	NamespaceWSTrust13 = "http://docs.oasis-open.org/ws-sx/ws-trust/200512"

	// NamespaceSAML11 is the SAML 1.1 assertion namespace
	NamespaceSAML11 = "urn:oasis:names:tc:SAML:1.0:assertion"

	// NamespaceSAML2 is the SAML 2.0 assertion namespace
	NamespaceSAML2 = "urn:oasis:names:tc:SAML:2.0:assertion"

	// EncodingTypeBase64Binary is the wsse encoding type for base64 binary tokens
	EncodingTypeBase64Binary = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-soap-message-security-1.0#Base64Binary"

	// ValueTypeJWT identifies a JWT carried in a wsse:BinarySecurityToken
	ValueTypeJWT = "urn:ietf:params:oauth:token-type:jwt"

	// BinarySecretTypeSymmetricKey is the WS-Trust binary secret type for symmetric keys
	BinarySecretTypeSymmetricKey = "http://docs.oasis-open.org/ws-sx/ws-trust/200512/SymmetricKey"
)

// ================================================================================
// Content Types
// ================================================================================

const (
	// MediaTypeSOAP12 is the SOAP 1.2 media type
	MediaTypeSOAP12 = "application/soap+xml"

	// MediaTypeSOAP11 is the SOAP 1.1 media type
	MediaTypeSOAP11 = "text/xml"
)

// ================================================================================
// Logging Constants
// ================================================================================

// LogLevel represents the severity level of log messages
type LogLevel string

const (
	// LogLevelDebug is the most verbose logging level
	LogLevelDebug LogLevel = "debug"

	// LogLevelInfo is the standard informational logging level
	LogLevelInfo LogLevel = "info"

	// LogLevelWarn indicates potential issues
	LogLevelWarn LogLevel = "warn"

	// LogLevelError indicates errors that need attention
	LogLevelError LogLevel = "error"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context
type ContextKey string

const (
	// ContextKeyLogger is the key for a request-scoped logger in context
	ContextKeyLogger ContextKey = "logger"

	// ContextKeyRequestID is the key for the SOAP request correlation ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyTraceID is the key for distributed trace ID in context
	ContextKeyTraceID ContextKey = "trace_id"
)

// ================================================================================
// Token Source Types
// ================================================================================

// TokenSourceType names a configured token source implementation
type TokenSourceType string

const (
	// TokenSourceNone disables the token source
	TokenSourceNone TokenSourceType = ""

	// TokenSourceStatic returns a fixed token string
	TokenSourceStatic TokenSourceType = "static"

	// TokenSourceVault reads the token from a Vault KV v2 secret
	TokenSourceVault TokenSourceType = "vault"

	// TokenSourceRedis reads the token from a Redis key
	TokenSourceRedis TokenSourceType = "redis"
)
