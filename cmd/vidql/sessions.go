package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okabe/vidql/internal/render"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		Run: func(cmd *cobra.Command, args []string) {
			eng, _, closer, err := buildEngine()
			if err != nil {
				exitOnError(err)
			}
			defer closer()

			limit, _ := cmd.Flags().GetInt("limit")
			sessions := eng.Sessions(context.Background(), limit)
			fmt.Print(render.New(pretty).Sessions(sessions))
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum sessions to list")
	return cmd
}
