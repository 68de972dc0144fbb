package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	factoriollm "github.com/nerdpudding/factorio-llm"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of factorio-llm",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("factorio-llm version %s\n", strings.TrimSpace(factoriollm.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
