package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"crud-benchmark/internal/config"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

// RootCmd is the root command; every subcommand is registered here.
func RootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:          "benchmark-runner",
		Short:        "benchmark-runner measures CRUD latency of a datastore across growing batch sizes.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML config file (defaults are used when empty)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		runCmd(flags),
		serveCmd(flags),
		collectCmd(flags),
		reduceCmd(flags),
	)
	return cmd
}

func (f *globalFlags) logger() (*log.Logger, error) {
	level, err := log.ParseLevel(f.logLevel)
	if err != nil {
		return nil, err
	}
	logger := log.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	logger.SetLevel(level)
	return logger, nil
}

// loadConfig reads the config file when one is given, overlays the
// environment and validates the result.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		cfg, err = config.LoadConfig(f.configPath)
		if err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
