package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wudi/linkpreview/internal/logging"
	"github.com/wudi/linkpreview/internal/server"
)

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server until SIGINT or SIGTERM",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			logger := logging.NewFromConfig(cfg.Logging)
			defer logger.Sync()
			logging.SetGlobal(logger)

			logging.Info("Starting linkpreview",
				zap.String("version", Version),
				zap.String("address", cfg.Server.Address),
				zap.Bool("cache", cfg.Cache.Enabled),
				zap.Duration("cache_ttl", cfg.Cache.TTL),
				zap.String("base_url", cfg.Preview.BaseURL),
				zap.String("parser", cfg.Preview.Parser),
			)

			srv, err := server.New(cfg)
			if err != nil {
				logging.Error("Failed to create server", zap.Error(err))
				return err
			}
			if err := srv.Run(); err != nil {
				logging.Error("Server error", zap.Error(err))
				return err
			}
			return nil
		},
	}
}
