package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/granalabs/parada"
	"github.com/granalabs/parada/internal/presentation/tui"
	"github.com/granalabs/parada/pkg/domain"
	"github.com/granalabs/parada/pkg/observability"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot from the terminal",
	Long:  `Starts an interactive conversation on stdin/stdout. Menu buttons become numbered options; type a number, a /command or free text.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}

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

		// Flags are empty when chat runs as the root default command.
		userID, _ := cmd.Flags().GetString("user")
		headless, _ := cmd.Flags().GetBool("headless")

		runner := parada.NewRunner()
		runner.Input = os.Stdin
		runner.Output = os.Stdout
		runner.Headless = headless
		if userID != "" {
			runner.UserID = userID
		}

		// Pretty output only when a human is actually watching.
		if term.IsTerminal(int(os.Stdout.Fd())) && !headless {
			tui.PrintBanner()
			runner.Renderer = tui.NewRenderer()
		}

		if err := runner.Run(bot); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("user", "u", "local", "User ID the conversation belongs to")
	chatCmd.Flags().Bool("headless", false, "Run in headless mode (no prompts, strict IO)")

	// Make 'chat' the default if no command is provided.
	rootCmd.Run = chatCmd.Run
}
