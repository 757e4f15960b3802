package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/nature/internal/config"
	"github.com/roach88/nature/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string // YAML config file, optional
	EnvFile    string // .env file, ignored when absent
	DB         string // overrides the configured database path

	cfg      *config.Config
	closeLog func() error
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Config loads the configuration once per command run. The --db flag wins
// over the file and the environment.
func (o *RootOptions) Config() (config.Config, error) {
	if o.cfg != nil {
		return *o.cfg, nil
	}
	cfg, err := config.Load(o.ConfigPath, o.EnvFile)
	if err != nil {
		return config.Config{}, err
	}
	if o.DB != "" {
		cfg.DB = o.DB
	}
	o.cfg = &cfg
	return cfg, nil
}

// NewRootCommand creates the root command for the nature CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nature",
		Short: "nature - instance routing for business flows",
		Long: `Compile meta and relation definitions, load them into a definition
store, and resolve the missions an instance triggers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.setupLogging()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.closeLog == nil {
				return nil
			}
			return opts.closeLog()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "environment file loaded before NATURE_* overrides")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "definition database path (overrides config)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewMetaCommand(opts))
	cmd.AddCommand(NewRelationsCommand(opts))
	cmd.AddCommand(NewRouteCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setupLogging installs the process-wide slog handler. --verbose forces
// debug level.
func (o *RootOptions) setupLogging() error {
	cfg, err := o.Config()
	if err != nil {
		return WrapExitError(ExitCommandError, "loading config", err)
	}
	logCfg := cfg.Log
	if o.Verbose {
		logCfg.Level = "debug"
	}
	closer, err := logging.Setup(logCfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "configuring logging", err)
	}
	o.closeLog = closer
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
