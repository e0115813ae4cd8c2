// Package cmd implements the nexushire command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fmuoria/nexushire/internal/config"
	"github.com/fmuoria/nexushire/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const app = "nexushire"

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "nexushire screens job applicants from a form response sheet",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// loadConfig reads the configuration and applies the logging flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if viper.GetBool("debug") {
		cfg.Logging.Level = "debug"
	}
	if viper.GetBool("json") {
		cfg.Logging.Format = "json"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}
	return log, nil
}

// setup loads the config and builds the logger every command starts with.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// interruptible returns a context cancelled on SIGINT or SIGTERM.
func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
