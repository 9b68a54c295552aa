package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/consilium-health/consilium/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web API",
	Long: `Serve the HTTP API: start discussions with POST /api/sessions,
follow them live over Server-Sent Events, and browse or export the
session history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if serveAddr != "" {
			cfg.Web.Addr = serveAddr
		}

		st, err := buildStack(cfg, nil)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := web.New(cfg.Web.Addr, st.orchestrator, st.db, st.exporter)
		return server.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
}
