package credentials

import (
	"context"

	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/pkg/logger"
)

func logCreatingTokenManager(log logger.Logger) {
	if log.Enabled(logger.DebugLevel) {
		log.Debug(context.Background(), "Creating issued security token manager")
	}
}

func logCreatingTokenProvider(ctx context.Context, log logger.Logger) {
	if log.Enabled(logger.DebugLevel) {
		log.Debug(ctx, "Creating issued security token provider")
	}
}

func logCredentialsNotFound(ctx context.Context, log logger.Logger) {
	if log.Enabled(logger.DebugLevel) {
		log.Debug(ctx, "Extended client credentials not found in channel parameters, using default token provider")
	}
}

func logAddingToken(ctx context.Context, log logger.Logger, token models.SecurityToken) {
	if log.Enabled(logger.InfoLevel) {
		log.Info(ctx, "Adding security token to SOAP request", logger.Fields{
			"token_type": models.TypeName(token),
			"token_id":   token.ID(),
		})
	}
}
