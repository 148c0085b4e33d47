package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/granalabs/parada/internal/presentation/graph"
	"github.com/granalabs/parada/pkg/domain"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the dialog graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the conversation state machine.
With --user, the state that user's session currently sits in is highlighted.`,
	Run: func(cmd *cobra.Command, args []string) {
		var overlay *graph.Overlay

		if userID, _ := cmd.Flags().GetString("user"); userID != "" {
			store, err := sessionStore(cmd)
			if err != nil {
				fmt.Printf("Error opening session store: %v\n", err)
				os.Exit(1)
			}
			sess, err := store.Load(cmd.Context(), userID)
			switch {
			case errors.Is(err, domain.ErrSessionNotFound):
				overlay = &graph.Overlay{Current: domain.StateIdle}
			case err != nil:
				fmt.Printf("Error loading session '%s': %v\n", userID, err)
				os.Exit(1)
			default:
				overlay = &graph.Overlay{Current: sess.State}
			}
		}

		fmt.Print(graph.GenerateMermaid(graph.DialogTransitions(), overlay))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().StringP("user", "u", "", "Highlight the state this user's session is in")
}
