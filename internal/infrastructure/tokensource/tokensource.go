// Package tokensource implements service.TokenSource over a fixed string,
// HashiCorp Vault and Redis, plus a caching decorator.
package tokensource

import (
	"context"

	vault "github.com/hashicorp/vault/api"

	"github.com/turtacn/soapproxy/internal/config"
	"github.com/turtacn/soapproxy/internal/domain/service"
	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/logger"
)

// Static returns the same token on every call.
type Static struct {
	token string
}

// NewStatic creates a static token source.
func NewStatic(token string) *Static {
	return &Static{token: token}
}

// GetSecurityToken implements service.TokenSource.
func (s *Static) GetSecurityToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.token, nil
}

// New builds the token source described by cfg. It returns nil, nil when no
// token source is configured.
func New(cfg config.TokenSourceConfig, log logger.Logger, metrics service.Metrics) (service.TokenSource, error) {
	log = logger.OrNoop(log)
	var (
		source service.TokenSource
		name   string
	)
	switch cfg.Type {
	case constants.TokenSourceNone:
		return nil, nil
	case constants.TokenSourceStatic:
		source, name = NewStatic(cfg.Static), string(constants.TokenSourceStatic)
	case constants.TokenSourceVault:
		vaultConfig := vault.DefaultConfig()
		if cfg.Vault.Address != "" {
			vaultConfig.Address = cfg.Vault.Address
		}
		client, err := vault.NewClient(vaultConfig)
		if err != nil {
			return nil, errors.ErrInvalidConfiguration.WithMessage("create vault client").WithError(err)
		}
		if cfg.Vault.Token != "" {
			client.SetToken(cfg.Vault.Token)
		}
		source, name = NewVault(client, cfg.Vault.Path, cfg.Vault.Field, log), string(constants.TokenSourceVault)
	case constants.TokenSourceRedis:
		source, name = NewRedisFromConfig(cfg.Redis, log), string(constants.TokenSourceRedis)
	default:
		return nil, errors.ErrInvalidConfiguration.WithMessage("unknown token source type %q", cfg.Type)
	}

	log.Info(context.Background(), "Token source configured", logger.Fields{"token_source": cfg.String()})
	if cfg.CacheTTL > 0 {
		return NewCaching(source, name, cfg.CacheTTL, metrics), nil
	}
	return source, nil
}
