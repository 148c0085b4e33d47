package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/granalabs/parada/pkg/domain"
	"github.com/granalabs/parada/pkg/ports"
)

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Manage stored favorite stops",
	Long:  `List and remove favorite stops directly against the configured store, bypassing the dialog.`,
}

var favoritesLsCmd = &cobra.Command{
	Use:   "ls <user-id>",
	Short: "List a user's favorite stops",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		userID := args[0]
		store, err := favoritesStore(cmd)
		if err != nil {
			fmt.Printf("Error opening favorites store: %v\n", err)
			os.Exit(1)
		}

		favs, err := store.List(cmd.Context(), userID)
		if err != nil {
			fmt.Printf("Error listing favorites for '%s': %v\n", userID, err)
			os.Exit(1)
		}

		if len(favs) == 0 {
			fmt.Println("No favorites found.")
			return
		}

		fmt.Printf("Favorites of %s:\n", userID)
		for _, f := range favs {
			fmt.Println("- " + string(f.StopID))
		}
	},
}

var favoritesRmCmd = &cobra.Command{
	Use:   "rm <user-id> <stop-id>...",
	Short: "Remove one or more favorite stops from a user",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		userID := args[0]
		store, err := favoritesStore(cmd)
		if err != nil {
			fmt.Printf("Error opening favorites store: %v\n", err)
			os.Exit(1)
		}

		hasError := false
		for _, stopID := range args[1:] {
			if err := store.Remove(cmd.Context(), userID, domain.StopID(stopID)); err != nil {
				fmt.Printf("Error removing '%s': %v\n", stopID, err)
				hasError = true
			} else {
				fmt.Printf("Removed favorite '%s'\n", stopID)
			}
		}

		if hasError {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(favoritesCmd)
	favoritesCmd.AddCommand(favoritesLsCmd)
	favoritesCmd.AddCommand(favoritesRmCmd)
}

func favoritesStore(cmd *cobra.Command) (ports.FavoritesStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newFavorites(cfg)
}
