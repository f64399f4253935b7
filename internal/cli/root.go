// Package cli implements the trygglink command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/raysh454/trygglink/internal/app"
	"github.com/raysh454/trygglink/internal/logging"
)

// appFactory builds the Application a command runs against.
type appFactory func(cfg *app.Config, logger logging.Logger) (*app.Application, error)

type rootOptions struct {
	configPath string
	newApp     appFactory
}

// NewRoot returns the trygglink root command.
func NewRoot(version string) *cobra.Command {
	return newRoot(version, func(cfg *app.Config, logger logging.Logger) (*app.Application, error) {
		return app.NewApplication(cfg, logger)
	})
}

func newRoot(version string, factory appFactory) *cobra.Command {
	opts := &rootOptions{newApp: factory}
	cmd := &cobra.Command{
		Use:           "trygglink",
		Short:         "trygglink: aggregated threat-intel verdicts for URLs and files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Version = version
	cmd.SetVersionTemplate("trygglink {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("TRYGGLINK_CONFIG"), "path to a YAML config file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newScanCmd(opts))

	return cmd
}

// load reads the config and builds the logger and Application.
func (o *rootOptions) load() (*app.Config, *app.Application, error) {
	cfg, err := app.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewLogger(os.Stderr, "trygglink", logging.ParseLevel(cfg.LogLevel))
	a, err := o.newApp(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, a, nil
}
