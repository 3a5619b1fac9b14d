// Package cli implements the dispatch command line tool.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/paveg/dispatch/internal/config"
	"github.com/paveg/dispatch/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagWorkers   int
	flagVerbose   bool
	flagLogFormat string

	cfg    config.Config
	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the dispatch CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dispatch",
		Short: "Fixed-pool parallel-for dispatcher",
		Long:  "dispatch runs scanline workloads on a fixed worker pool, one barrier-synchronized round at a time.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, warnings, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg = loaded
			logger = logging.New(cmd.ErrOrStderr(), cfg)
			for _, w := range warnings {
				logger.Debug("config", "warning", w)
			}
			config.SetGlobalConfig(cfg)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (.json, .yaml, .toml)")
	root.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "Worker count (0 = hardware parallelism)")
	root.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", config.LogFormatText, "Log format (text, json)")

	root.AddCommand(
		newVersionCmd(),
		newRenderCmd(),
		newBenchCmd(),
		newServeCmd(),
	)

	return root
}

// loadConfig layers the config file, DISPATCH_* variables and explicit flags,
// in that order of increasing precedence.
func loadConfig(cmd *cobra.Command) (config.Config, []string, error) {
	loaded := config.NewConfig()
	if flagConfig != "" {
		fromFile, err := config.LoadFromFile(flagConfig)
		if err != nil {
			return config.Config{}, nil, fmt.Errorf("load config: %w", err)
		}
		loaded = fromFile
	}
	loaded = config.ApplyEnv(loaded)

	flags := cmd.Flags()
	if flags.Changed("workers") {
		loaded.Workers = flagWorkers
	}
	if flags.Changed("verbose") {
		loaded.VerboseLogging = flagVerbose
	}
	if flags.Changed("log-format") {
		loaded.LogFormat = flagLogFormat
	}

	validated, warnings, err := config.NewConfigValidator().Validate(loaded)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("invalid config: %w", err)
	}
	return validated, warnings, nil
}
