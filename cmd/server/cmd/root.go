package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sp-hack/server/internal/config"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// NewRootCommand builds the command tree. Without a subcommand it serves.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	serve := newServeCommand(opts)

	root := &cobra.Command{
		Use:   "server",
		Short: "sp-hack server - hackathon information site backend",
		Long: `sp-hack server is the backend of the hackathon information site.

It serves:
- Public event information: dates, place and schedule
- Feedback questions and team applications protected by a captcha
- An admin area to edit the event and answer participants by email
- The built frontend, OpenAPI document and Swagger UI`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve.RunE(cmd, args)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file overlaid on environment variables (optional)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json, console) (default: json)")

	root.AddCommand(serve)
	root.AddCommand(newMigrateCommand(opts))
	root.AddCommand(newAdminCommand(opts))
	root.AddCommand(newSeedCommand(opts))
	root.AddCommand(newVersionCommand())
	root.AddCommand(newHealthcheckCommand())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		os.Exit(1)
	}
}

func (o *globalOptions) loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return config.Config{}, err
	}

	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	return cfg, nil
}
