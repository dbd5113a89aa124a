package main

import (
	"log/slog"
	"os"

	"github.com/rendis/textaction/internal/logging"
	"github.com/rendis/textaction/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	debug      bool
	jsonOutput bool
	topK       int
	threshold  float64
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:           "textaction",
	Short:         "Turn natural-language commands into action calls",
	Long:          `textaction sends a command to an extraction service, binds the actions it names to registered implementations and runs them in order.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("textaction failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().IntVar(&topK, "top-k", pipeline.DefaultTopK, "maximum number of candidate actions")
	rootCmd.PersistentFlags().Float64Var(&threshold, "threshold", pipeline.DefaultThreshold, "minimum match score between 0 and 1")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	rootCmd.AddCommand(runCmd, replCmd, serveCmd, mcpCmd, actionsCmd)
}

// resolveConfig loads the layered configuration and applies the flags the
// user set explicitly.
func resolveConfig(cmd *cobra.Command) (Config, error) {
	cfg, err := loadConfig(settingsPath(), envFile)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("top-k") {
		cfg.TopK = topK
	}
	if flags.Changed("threshold") {
		cfg.Threshold = threshold
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// bootstrap resolves the configuration and builds the logger and pipeline.
func bootstrap(cmd *cobra.Command) (Config, *slog.Logger, *pipeline.Stack, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return cfg, nil, nil, err
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogJSON)
	slog.SetDefault(logger)

	opts := cfg.options()
	opts.Logger = logger
	stack, err := pipeline.Bootstrap(opts)
	if err != nil {
		return cfg, logger, nil, err
	}
	return cfg, logger, stack, nil
}
