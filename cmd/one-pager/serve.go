// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pdiddy/one-pager/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis HTTP API",
	Long: `Serve starts a JSON HTTP API. Clients create a session, upload one PDF and
trigger analyze actions on it. Without an API key the server still starts;
analyze returns 503 and /api/v1/health carries the configuration warning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := map[string]string{
			"addr":         "server.addr",
			"analyze-rate": "server.analyze_rate",
		}
		for k, v := range completionFlagKeys {
			keys[k] = v
		}
		if err := bindFlags(cmd, keys); err != nil {
			return err
		}

		cfg := loadConfig(loadedSecrets)
		pl, err := buildPipeline(cfg, logger)
		if err != nil {
			return err
		}
		defer pl.Close()
		if pl.warning != "" {
			logger.Warn("config.warning", "warning", pl.warning)
		}

		gin.SetMode(gin.ReleaseMode)
		srv := server.New(server.Options{
			Config:   cfg.Server,
			Analyzer: pl.analyzer,
			Warning:  pl.warning,
			Logger:   logger,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().Float64("analyze-rate", 0, "analyze actions per second per client; 0 disables limiting")
	completionFlags(serveCmd)

	rootCmd.AddCommand(serveCmd)
}
