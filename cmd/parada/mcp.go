package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpAdapter "github.com/granalabs/parada/internal/adapters/mcp"
	"github.com/granalabs/parada/pkg/domain"
	"github.com/granalabs/parada/pkg/observability"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts parada as an MCP server so AI agents can look up Metro de Granada
departures and manage favorite stops as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}

		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// Logs go to stderr so stdout stays clean for JSON-RPC.
		logger := newLogger(cfg)

		hooks := domain.Hooks{}
		if cfg.Level() <= slog.LevelDebug {
			hooks = observability.LoggingHooks(logger)
		}

		bot, err := newBot(cfg, logger, hooks)
		if err != nil {
			fmt.Printf("Error initializing parada: %v\n", err)
			os.Exit(1)
		}

		srv := mcpAdapter.NewServer(bot.Gateway(), bot.Favorites(), mcpAdapter.WithLogger(logger))

		switch transport {
		case "stdio":
			// Ensure stray log output doesn't corrupt JSON-RPC on stdout.
			log.SetOutput(os.Stderr)
			logger.Info("starting parada MCP server (stdio)")
			if err := srv.ServeStdio(); err != nil {
				logger.Error("MCP server execution failed", "error", err)
				os.Exit(1)
			}
		case "sse":
			logger.Info("starting parada MCP server (SSE)", "port", port)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				// Ignore server closed error if it was caused by context cancellation.
				if err != http.ErrServerClosed {
					logger.Error("MCP server execution failed", "error", err)
					os.Exit(1)
				}
			}
			logger.Info("MCP server stopped gracefully")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
