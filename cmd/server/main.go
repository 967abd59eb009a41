package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/friendlychat-server/internal/app"
	"github.com/vovakirdan/friendlychat-server/internal/config"
	logpkg "github.com/vovakirdan/friendlychat-server/internal/log"
)

var version = "dev"

func main() {
	var (
		configPath string
		addr       string
		logLevel   string
	)

	c := &cobra.Command{
		Use:     "friendlychat-server",
		Short:   "FriendlyChat backend: chat API, realtime subscriptions and event handlers",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLogger := logpkg.New("info")

			cfg, path, err := config.Load(bootLogger, configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			logger := logpkg.New(cfg.LogLevel)
			logger.Info().Str("config", path).Msg("configuration loaded")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}

			logger.Info().Str("addr", cfg.Addr).Str("version", version).Msg("starting friendlychat server")
			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited with error: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	c.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default ./config.yaml or $FRIENDLYCHAT_CONFIG_DEFAULT_PATH)")
	c.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	c.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	if err := c.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
