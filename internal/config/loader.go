package config

import (
	"context"
	"strings"

	"github.com/spf13/viper"

	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/logger"
)

// LoadConfig loads the configuration from file and environment variables.
// An empty path searches for config.yaml in /etc/soapproxy/ and the working
// directory; a missing file is not an error.
func LoadConfig(path string, log logger.Logger) (*Config, error) {
	log = logger.OrNoop(log)
	v := viper.New()

	// Set default values
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.diagnostics", false)
	v.SetDefault("tracing.service_name", "soapproxy")
	v.SetDefault("tracing.sampling_rate", 1.0)
	v.SetDefault("token_source.vault.field", "token")
	v.SetDefault("token_source.cache_ttl", "5m")

	// Load from config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/soapproxy/")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, errors.ErrInvalidConfiguration.WithMessage("failed to read config").WithError(err)
		}
		log.Debug(context.Background(), "No config file found, using defaults and environment")
	}

	// Load from environment variables
	v.SetEnvPrefix("SOAPPROXY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ErrInvalidConfiguration.WithMessage("failed to unmarshal config").WithError(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info(context.Background(), "Configuration loaded", logger.Fields{
		"proxies":      len(cfg.Proxies),
		"token_source": cfg.TokenSource.String(),
	})
	return &cfg, nil
}

//Personal.AI order the ending
