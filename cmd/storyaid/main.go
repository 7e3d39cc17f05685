package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/larpforge/storyai/internal/cli"
	"github.com/larpforge/storyai/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "storyaid",
		Short: "StoryAI daemon and CLI",
		Long:  "StoryAI daemon for running the lore retrieval API server and managing LARPs and indexes",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.LARPCmd())
	rootCmd.AddCommand(admin.ReindexCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
