package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/utils"
)

// Config holds the application's configuration.
type Config struct {
	Log         LogConfig              `mapstructure:"log"`
	Tracing     TracingConfig          `mapstructure:"tracing"`
	Metrics     MetricsConfig          `mapstructure:"metrics"`
	TokenSource TokenSourceConfig      `mapstructure:"token_source"`
	Proxies     map[string]ProxyConfig `mapstructure:"proxies" validate:"dive"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	// Output is stdout or stderr.
	Output string `mapstructure:"output" validate:"omitempty,oneof=stdout stderr"`
	// Diagnostics enables SOAP message logging at debug level.
	Diagnostics bool `mapstructure:"diagnostics"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint" validate:"required_if=Enabled true,omitempty,url"`
	ServiceName    string  `mapstructure:"service_name"`
	SamplingRate   float64 `mapstructure:"sampling_rate" validate:"gte=0,lte=1"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type TokenSourceConfig struct {
	Type     constants.TokenSourceType `mapstructure:"type" validate:"omitempty,oneof=static vault redis"`
	Static   string                    `mapstructure:"static"`
	Vault    VaultConfig               `mapstructure:"vault"`
	Redis    RedisConfig               `mapstructure:"redis"`
	CacheTTL time.Duration             `mapstructure:"cache_ttl" validate:"gte=0"`
}

type VaultConfig struct {
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
	// Path is the KV v2 data path, e.g. secret/data/soap/token.
	Path  string `mapstructure:"path"`
	Field string `mapstructure:"field"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// ProxyConfig configures one contract. Zero values keep the proxy defaults.
type ProxyConfig struct {
	Endpoint               string                 `mapstructure:"endpoint"`
	MaxReceivedMessageSize int64                  `mapstructure:"max_received_message_size" validate:"gte=0"`
	MaxBufferPoolSize      int64                  `mapstructure:"max_buffer_pool_size" validate:"gte=0"`
	ReaderQuotas           ReaderQuotasConfig     `mapstructure:"reader_quotas"`
	OpenTimeout            time.Duration          `mapstructure:"open_timeout" validate:"gte=0"`
	CloseTimeout           time.Duration          `mapstructure:"close_timeout" validate:"gte=0"`
	SendTimeout            time.Duration          `mapstructure:"send_timeout" validate:"gte=0"`
	ReceiveTimeout         time.Duration          `mapstructure:"receive_timeout" validate:"gte=0"`
	KeyType                constants.KeyType      `mapstructure:"key_type" validate:"omitempty,oneof=bearer symmetric"`
	SecurityMode           constants.SecurityMode `mapstructure:"security_mode" validate:"omitempty,oneof=transport_with_message_credential message_credential_only"`
	// TokenHandlers lists handler names in order: saml11, saml2, jwt.
	TokenHandlers []string `mapstructure:"token_handlers" validate:"dive,token_handler"`
}

type ReaderQuotasConfig struct {
	MaxDepth               int `mapstructure:"max_depth" validate:"gte=0"`
	MaxArrayLength         int `mapstructure:"max_array_length" validate:"gte=0"`
	MaxStringContentLength int `mapstructure:"max_string_content_length" validate:"gte=0"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	for key, p := range c.Proxies {
		if p.Endpoint == "" {
			return errors.ErrInvalidEndpoint.WithDetail("proxy", key)
		}
		if _, err := url.Parse(p.Endpoint); err != nil {
			return errors.ErrInvalidConfiguration.WithDetail("proxy", key).WithError(err)
		}
	}
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}

	switch c.TokenSource.Type {
	case constants.TokenSourceNone:
	case constants.TokenSourceStatic:
		if c.TokenSource.Static == "" {
			return errors.ErrInvalidConfiguration.WithMessage("static token source requires a token")
		}
	case constants.TokenSourceVault:
		if c.TokenSource.Vault.Path == "" {
			return errors.ErrInvalidConfiguration.WithMessage("vault token source requires a path")
		}
	case constants.TokenSourceRedis:
		if c.TokenSource.Redis.Addr == "" || c.TokenSource.Redis.Key == "" {
			return errors.ErrInvalidConfiguration.WithMessage("redis token source requires an address and a key")
		}
	default:
		return errors.ErrInvalidConfiguration.WithMessage("unknown token source type %q", c.TokenSource.Type)
	}
	return nil
}

// String renders the token source for logs without secrets.
func (c TokenSourceConfig) String() string {
	switch c.Type {
	case constants.TokenSourceVault:
		return fmt.Sprintf("vault(%s)", c.Vault.Path)
	case constants.TokenSourceRedis:
		return fmt.Sprintf("redis(%s/%s)", c.Redis.Addr, c.Redis.Key)
	case constants.TokenSourceStatic:
		return "static"
	default:
		return "none"
	}
}

//Personal.AI order the ending
