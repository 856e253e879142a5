package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/turtacn/soapproxy/internal/proxy"
)

// proxiesCmd validates the configured proxies and lists their settings.
var proxiesCmd = &cobra.Command{
	Use:   "proxies",
	Short: "List the configured proxies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := loadEnvironment(cfgFile)
		if err != nil {
			return err
		}
		defer env.close(context.Background())

		factory, err := env.buildFactory()
		if err != nil {
			return err
		}
		defer factory.Dispose()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tENDPOINT\tKEY TYPE\tSECURITY MODE\tHANDLERS\tSEND TIMEOUT")
		for _, name := range env.proxyNames() {
			opts, ok := factory.Options(proxy.KeyFor[RawService](proxyName(name)))
			if !ok {
				continue
			}
			handlers := make([]string, 0, len(opts.SecurityTokenHandlers))
			for _, h := range opts.SecurityTokenHandlers {
				handlers = append(handlers, string(h.TokenType()))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				name, opts.Endpoint, opts.KeyType, opts.SecurityMode, strings.Join(handlers, ","), opts.SendTimeout)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(proxiesCmd)
}
