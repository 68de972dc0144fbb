package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerdpudding/factorio-llm/internal/cli"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat with the game",
	Long: `Starts the interactive terminal chat. The model can inspect and act in
the running game through its tool catalog; slash commands control the
session (/help lists them).`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		model, _ := cmd.Flags().GetString("model")
		cloud, _ := cmd.Flags().GetBool("cloud")
		numCtx, _ := cmd.Flags().GetInt("num-ctx")
		debug, _ := cmd.Flags().GetBool("debug")

		opts := cli.ChatOptions{
			ConfigPath: configPath,
			Model:      model,
			Cloud:      cloud,
			NumCtx:     numCtx,
			Debug:      debug,
		}
		if cmd.Flags().Changed("think") {
			think, _ := cmd.Flags().GetBool("think")
			opts.Think = &think
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := cli.RunChat(ctx, opts); err != nil {
			// RunChat already told the user what went wrong.
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("model", "", "Model profile to activate (or model name with legacy configs)")
	chatCmd.Flags().Bool("cloud", false, "Use Ollama Cloud instead of the local instance")
	chatCmd.Flags().Bool("think", false, "Enable model thinking for this session")
	chatCmd.Flags().Int("num-ctx", 0, "Context window override for this session")
	chatCmd.Flags().Bool("debug", false, "Start with debug logging enabled")

	// Chat is what you want most of the time; make it the default.
	rootCmd.Run = chatCmd.Run
}
