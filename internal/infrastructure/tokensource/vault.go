package tokensource

import (
	"context"

	vault "github.com/hashicorp/vault/api"

	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/logger"
)

const defaultVaultField = "token"

// Vault reads the token from a field of a KV v2 secret.
type Vault struct {
	client *vault.Client
	path   string
	field  string
	logger logger.Logger
}

// NewVault creates a Vault token source. path is the full KV v2 data path,
// e.g. secret/data/soap/token; field defaults to "token".
func NewVault(client *vault.Client, path, field string, log logger.Logger) *Vault {
	if field == "" {
		field = defaultVaultField
	}
	return &Vault{client: client, path: path, field: field, logger: logger.OrNoop(log)}
}

// GetSecurityToken implements service.TokenSource.
func (v *Vault) GetSecurityToken(ctx context.Context) (string, error) {
	secret, err := v.client.Logical().ReadWithContext(ctx, v.path)
	if err != nil {
		v.logger.Error(ctx, "Failed to read token from vault", err, logger.Fields{"path": v.path})
		return "", errors.ErrTokenUnavailable.WithDetail("path", v.path).WithError(err)
	}
	if secret == nil || secret.Data == nil {
		return "", errors.ErrTokenUnavailable.WithMessage("token not found in vault").WithDetail("path", v.path)
	}

	// KV v2 nests the secret under "data"; KV v1 does not.
	data := secret.Data
	if nested, ok := secret.Data["data"].(map[string]interface{}); ok {
		data = nested
	}
	raw, ok := data[v.field]
	if !ok || raw == nil {
		return "", errors.ErrTokenUnavailable.
			WithMessage("token field not found in vault secret").
			WithDetail("path", v.path).
			WithDetail("field", v.field)
	}
	token, ok := raw.(string)
	if !ok {
		return "", errors.ErrTokenUnavailable.
			WithMessage("token field has type %T, expected string", raw).
			WithDetail("field", v.field)
	}
	return token, nil
}
