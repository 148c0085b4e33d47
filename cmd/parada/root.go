package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parada",
	Short: "parada answers when the next Metro de Granada train arrives",
	Long: `parada is a departures bot for the Metro de Granada: live arrivals,
stop search and favorite stops, served over a terminal chat, an HTTP
API or MCP, backed by the MovGR feed.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file (default parada.yaml if present)")
}
