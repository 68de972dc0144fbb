package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "factorio-llm",
	Short: "factorio-llm puts a local language model inside a running Factorio game",
	Long: `factorio-llm connects chat models served by Ollama to a live Factorio
server over RCON. The model sees the game through a fixed catalog of
tools; every answer is grounded in what those tools return.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Shared by every subcommand.
	rootCmd.PersistentFlags().String("config", "config.yaml", "Path to the configuration file")
}
