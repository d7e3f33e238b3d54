package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okabe/vidql/internal/render"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <session-id>",
		Short: "Show a session's message history",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, _, closer, err := buildEngine()
			if err != nil {
				exitOnError(err)
			}
			defer closer()

			limit, _ := cmd.Flags().GetInt("limit")
			messages, err := eng.History(context.Background(), args[0], limit)
			if err != nil {
				exitOnError(err)
			}
			fmt.Print(render.New(pretty).History(messages))
		},
	}
	cmd.Flags().Int("limit", 50, "Maximum messages to show")
	return cmd
}
