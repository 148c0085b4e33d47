package main

import (
	"fmt"
	"strings"

	"github.com/granalabs/parada"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of parada",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("parada version %s\n", strings.TrimSpace(parada.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
