package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/beevik/etree"
	"github.com/spf13/cobra"

	"github.com/turtacn/soapproxy/internal/infrastructure/monitoring"
	"github.com/turtacn/soapproxy/internal/proxy"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/logger"
	"github.com/turtacn/soapproxy/pkg/xmlutil"
)

var callFlags struct {
	proxy       string
	action      string
	body        string
	token       string
	timeout     time.Duration
	dumpMetrics bool
}

// callCmd sends one request through a configured proxy.
var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Send a SOAP request through a configured proxy",
	Long: `call reads a request body element from a file (or stdin), sends it with
the given action through the named proxy and prints the reply body.

Without --token the token is taken from the configured token source.`,
	Example: `  soapcall call -c config.yaml --proxy billing --action urn:billing/GetInvoice --body invoice.xml
  echo '<Ping xmlns="urn:ping"/>' | soapcall call --proxy ping --action urn:ping/Ping`,
	Args: cobra.NoArgs,
	RunE: runCall,
}

func init() {
	flags := callCmd.Flags()
	flags.StringVarP(&callFlags.proxy, "proxy", "p", "", "configured proxy name")
	flags.StringVarP(&callFlags.action, "action", "a", "", "SOAP action of the request")
	flags.StringVarP(&callFlags.body, "body", "b", "-", "file holding the body element, - for stdin")
	flags.StringVarP(&callFlags.token, "token", "t", "", "issued token to present instead of the token source")
	flags.DurationVar(&callFlags.timeout, "timeout", 0, "overall deadline for the call")
	flags.BoolVar(&callFlags.dumpMetrics, "dump-metrics", false, "write collected metrics to stderr when done")
	_ = callCmd.MarkFlagRequired("proxy")
	_ = callCmd.MarkFlagRequired("action")

	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if callFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, callFlags.timeout)
		defer cancel()
	}

	body, err := readBody(cmd.InOrStdin(), callFlags.body)
	if err != nil {
		return err
	}

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

	name := proxyName(callFlags.proxy)
	var reply *etree.Element
	err = traceCall(ctx, env, name, func(ctx context.Context) error {
		svc, err := proxy.CreateProxy[RawService](ctx, factory, callFlags.token, proxy.WithVariant(name))
		if err != nil {
			return err
		}
		env.logger.Debug(ctx, "Sending request", logger.Fields{
			"proxy":    name,
			"action":   callFlags.action,
			"endpoint": svc.Endpoint(),
			"trace_id": env.tracing.GetTraceID(ctx),
		})
		reply, err = svc.Call(ctx, callFlags.action, body)
		return err
	})
	if err != nil {
		return err
	}

	if err := writeReply(cmd.OutOrStdout(), reply); err != nil {
		return err
	}
	if callFlags.dumpMetrics {
		return env.writeMetrics(cmd.ErrOrStderr())
	}
	return nil
}

func traceCall(ctx context.Context, env *environment, name string, fn func(context.Context) error) error {
	if !env.cfg.Tracing.Enabled {
		return fn(ctx)
	}
	return monitoring.TraceOperation(ctx, env.tracing, "soapcall.call", fn, map[string]interface{}{
		"proxy":  name,
		"action": callFlags.action,
	})
}

// readBody parses the body element from path, or from stdin when path is "-".
func readBody(stdin io.Reader, path string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if path == "" || path == "-" {
		if _, err := doc.ReadFrom(stdin); err != nil {
			return nil, errors.ErrInvalidConfiguration.WithMessage("failed to parse request body").WithError(err)
		}
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.ErrInvalidConfiguration.WithMessage("failed to open request body").WithError(err)
		}
		defer f.Close()
		if _, err := doc.ReadFrom(f); err != nil {
			return nil, errors.ErrInvalidConfiguration.WithMessage("failed to parse request body").WithError(err)
		}
	}
	if doc.Root() == nil {
		return nil, errors.ErrInvalidConfiguration.WithMessage("request body has no element")
	}
	return doc.Root(), nil
}

// writeReply prints the reply body indented. An empty reply prints nothing.
func writeReply(w io.Writer, reply *etree.Element) error {
	if reply == nil {
		return nil
	}
	_, err := io.WriteString(w, xmlutil.String(reply, true))
	return err
}
