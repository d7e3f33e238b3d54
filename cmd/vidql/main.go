// Package main provides the vidql CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	pretty  = true
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vidql",
		Short: "Natural-language video analysis",
		Long: `vidql: query orchestration for natural-language video analysis.

Usage modes:
  vidql                Start an interactive chat session
  vidql serve          Run the HTTP API server
  vidql query <text>   Run one query and print the response

Use 'vidql help' for the full command list.`,
		Version: version,
		Run: func(cmd *cobra.Command, args []string) {
			runChat(cmd)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", isTTY(), "Pretty print output")
	rootCmd.Flags().String("video", "", "Video reference for this session")

	rootCmd.AddCommand(
		serveCmd(),
		queryCmd(),
		chatCmd(),
		sessionsCmd(),
		historyCmd(),
		reportCmd(),
		videosCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
