package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/soapproxy/internal/domain/models"
	"github.com/turtacn/soapproxy/internal/domain/service"
	"github.com/turtacn/soapproxy/internal/infrastructure/tokens"
	"github.com/turtacn/soapproxy/internal/infrastructure/tokensource"
	"github.com/turtacn/soapproxy/pkg/constants"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/utils"
	"github.com/turtacn/soapproxy/pkg/xmlutil"
)

var tokenTTL time.Duration

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage and inspect issued tokens",
}

// tokenPutCmd stores a token for the redis token source.
var tokenPutCmd = &cobra.Command{
	Use:   "put <token>",
	Short: "Store a token under the configured redis key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(cfgFile)
		if err != nil {
			return err
		}
		defer env.close(context.Background())

		if env.cfg.TokenSource.Type != constants.TokenSourceRedis {
			return errors.ErrInvalidConfiguration.WithMessage("token put requires the redis token source, got %q", env.cfg.TokenSource.Type)
		}
		source := tokensource.NewRedisFromConfig(env.cfg.TokenSource.Redis, env.logger)
		if err := source.Store(cmd.Context(), args[0], tokenTTL); err != nil {
			return errors.ErrTokenUnavailable.WithMessage("failed to store token").WithError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored token %s under %s\n", utils.MaskToken(args[0]), env.cfg.TokenSource.Redis.Key)
		return nil
	},
}

// tokenInspectCmd reads a token and prints what a proxy would send.
var tokenInspectCmd = &cobra.Command{
	Use:   "inspect [token]",
	Short: "Read a token and print its canonical security header form",
	Long: `inspect reads the given token, or the one from the configured token source,
with the SAML 1.1, SAML 2.0 and JWT readers and prints its identity, validity
and the element a proxy would place in the security header.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(cfgFile)
		if err != nil {
			return err
		}
		defer env.close(context.Background())

		raw := ""
		if len(args) == 1 {
			raw = args[0]
		} else {
			source, err := tokensource.New(env.cfg.TokenSource, env.logger, env.metrics)
			if err != nil {
				return err
			}
			if source == nil {
				return errors.ErrNoTokenProviderConfigured
			}
			if raw, err = source.GetSecurityToken(cmd.Context()); err != nil {
				return err
			}
		}

		handlers := []service.SecurityTokenHandler{
			tokens.NewSAMLHandler(),
			tokens.NewSAML2Handler(),
			tokens.NewJWTHandler(),
		}
		token, err := readWith(raw, handlers)
		if err != nil {
			return err
		}
		canonical, err := tokens.NewResolver(env.logger, env.metrics).Resolve(cmd.Context(), token, handlers)
		if err != nil {
			return err
		}
		return printToken(cmd.OutOrStdout(), token, canonical)
	},
}

func init() {
	tokenPutCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime in redis, 0 for no expiry")
	tokenCmd.AddCommand(tokenPutCmd)
	tokenCmd.AddCommand(tokenInspectCmd)
	rootCmd.AddCommand(tokenCmd)
}

func readWith(raw string, handlers []service.SecurityTokenHandler) (models.SecurityToken, error) {
	for _, h := range handlers {
		if h.CanReadToken(raw) {
			token, err := h.ReadToken(raw)
			if err != nil {
				return nil, errors.ErrUnreadableToken.WithDetail("handler", string(h.TokenType())).WithError(err)
			}
			return token, nil
		}
	}
	return nil, errors.ErrUnreadableToken
}

func printToken(w io.Writer, token models.SecurityToken, canonical *models.CanonicalXMLToken) error {
	fmt.Fprintf(w, "id:         %s\n", token.ID())
	fmt.Fprintf(w, "type:       %s\n", token.TokenTypes()[0])
	fmt.Fprintf(w, "valid from: %s\n", formatTime(canonical.ValidFrom))
	fmt.Fprintf(w, "valid to:   %s\n", formatTime(canonical.ValidTo))
	fmt.Fprintf(w, "proof key:  %t\n", canonical.Proof != nil)
	if canonical.IsExpired(time.Now()) {
		fmt.Fprintln(w, "expired:    true")
	}

	_, err := io.WriteString(w, xmlutil.String(canonical.Element, true))
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
