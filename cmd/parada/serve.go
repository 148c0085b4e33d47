package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpAdapter "github.com/granalabs/parada/internal/adapters/http"
	"github.com/granalabs/parada/internal/metrics"
	"github.com/granalabs/parada/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the bot as a JSON API over HTTP: events in, replies out, plus stop lookups, health and Prometheus metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}

		logger := newLogger(cfg)
		m := metrics.New()

		hooks := m.Hooks()
		if cfg.Level() <= slog.LevelDebug {
			hooks = observability.Combine(hooks, observability.LoggingHooks(logger))
		}

		bot, err := newBot(cfg, logger, hooks)
		if err != nil {
			fmt.Printf("Error initializing parada: %v\n", err)
			os.Exit(1)
		}

		opts := []httpAdapter.Option{httpAdapter.WithLogger(logger)}
		if cfg.HTTP.Metrics {
			opts = append(opts, httpAdapter.WithMetrics(m.Handler()))
		}

		srv := &http.Server{
			Addr:    cfg.HTTP.Addr,
			Handler: httpAdapter.NewHandler(bot, bot.Gateway(), opts...),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("parada server listening", "addr", srv.Addr, "feed", cfg.APIBaseURL)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("shutdown started", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			logger.Info("parada server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides config)")
}
