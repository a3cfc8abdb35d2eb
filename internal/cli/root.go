// Package cli is the presentation layer: cobra commands over the order
// service. Every command prints one JSON envelope to stdout and maps tagged
// errors onto process exit codes.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Ulixes-8/orderflow/internal/config"

	"github.com/spf13/cobra"
)

// options are flag overrides layered on top of the environment config.
type options struct {
	dbPath      string
	catalogPath string
	authCode    string
	logLevel    string
}

func (o *options) config() config.Config {
	cfg := config.New()
	if o.dbPath != "" {
		cfg.Store.Path = o.dbPath
	}
	if o.catalogPath != "" {
		cfg.CatalogPath = o.catalogPath
	}
	if o.authCode != "" {
		cfg.Auth.Code = o.authCode
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "orderflow",
		Short:         "Text-message order intake and fulfillment",
		Long:          "Orderflow turns short text messages like \"ORDER COFFEE=2 TEA\" into priced, persistent orders and walks them through a PENDING to FULFILLED lifecycle.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Path to the SQLite database file")
	cmd.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "Path to a catalogue JSON file")
	cmd.PersistentFlags().StringVar(&opts.authCode, "auth-code", "", "Fulfillment authorization code")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	cmd.AddCommand(newPlaceCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newShowCmd(opts))
	cmd.AddCommand(newFulfillCmd(opts))
	cmd.AddCommand(newBatchCmd(opts))
	cmd.AddCommand(newMetricsCmd(opts))

	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// runWithApp opens the app for one command, runs fn and persists the metrics
// snapshot on the way out.
func runWithApp(cmd *cobra.Command, opts *options, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, opts.config())
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return &exitError{code: 1, msg: err.Error()}
	}
	defer a.close(ctx)

	return fn(ctx, a)
}
