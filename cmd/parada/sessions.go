package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/granalabs/parada/pkg/ports"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage persistent dialog sessions",
	Long:  `List, inspect, and remove dialog sessions stored in the configured backend.`,
}

var sessionsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	Run: func(cmd *cobra.Command, args []string) {
		store, err := sessionStore(cmd)
		if err != nil {
			fmt.Printf("Error opening session store: %v\n", err)
			os.Exit(1)
		}

		users, err := store.List(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing sessions: %v\n", err)
			os.Exit(1)
		}

		if len(users) == 0 {
			fmt.Println("No active sessions found.")
			return
		}

		fmt.Println("Active Sessions:")
		for _, u := range users {
			fmt.Println("- " + u)
		}
	},
}

var sessionsInspectCmd = &cobra.Command{
	Use:   "inspect <user-id>",
	Short: "Inspect the dialog state of a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		userID := args[0]
		store, err := sessionStore(cmd)
		if err != nil {
			fmt.Printf("Error opening session store: %v\n", err)
			os.Exit(1)
		}

		session, err := store.Load(cmd.Context(), userID)
		if err != nil {
			fmt.Printf("Error loading session '%s': %v\n", userID, err)
			os.Exit(1)
		}

		data, err := json.MarshalIndent(session, "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling session: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(string(data))
	},
}

var sessionsRmCmd = &cobra.Command{
	Use:   "rm <user-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, err := sessionStore(cmd)
		if err != nil {
			fmt.Printf("Error opening session store: %v\n", err)
			os.Exit(1)
		}

		hasError := false
		for _, userID := range args {
			if err := store.Delete(cmd.Context(), userID); err != nil {
				fmt.Printf("Error removing '%s': %v\n", userID, err)
				hasError = true
			} else {
				fmt.Printf("Removed session '%s'\n", userID)
			}
		}

		if hasError {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsLsCmd)
	sessionsCmd.AddCommand(sessionsInspectCmd)
	sessionsCmd.AddCommand(sessionsRmCmd)
}

func sessionStore(cmd *cobra.Command) (ports.SessionStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newSessions(cfg), nil
}
