package cmd

import (
	"io"
	"os"

	"github.com/jjjimenez100/backend-coding-test/config"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "rides",
	Short: "Ride record-keeping service",
	Long: `A service that records rides, serves them back one at a time or
in pages, and keeps a search index of them up to date.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cmd.Help(); err != nil {
			log.Error().Err(err).Msg("Failed to display help")
		}
	},
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config directory or file (config.yaml, app.env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig reads configuration and configures the global logger from it.
// The returned closer releases the log file and is nil without one.
func loadConfig() (config.Config, io.Closer, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	closer, err := setupLogging(cfg)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, closer, nil
}

func setupLogging(cfg config.Config) (io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil || cfg.Logging.Level == "" {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stdout
	if cfg.Environment == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	var closer io.Closer
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open log file %s", cfg.Logging.File)
		}
		out = zerolog.MultiLevelWriter(out, f)
		closer = f
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer, nil
}

func closeLog(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close log file")
	}
}
