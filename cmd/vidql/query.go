package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okabe/vidql/internal/render"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run one query and print the response",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, _, closer, err := buildEngine()
			if err != nil {
				exitOnError(err)
			}
			defer closer()

			video, _ := cmd.Flags().GetString("video")
			sessionID, _ := cmd.Flags().GetString("session")
			query := strings.Join(args, " ")

			result, err := eng.Query(context.Background(), sessionID, query, video)
			if err != nil {
				exitOnError(err)
			}

			fmt.Print(render.New(pretty).Result(result))
			if sessionID == "" && pretty {
				fmt.Printf("\nsession: %s\n", result.SessionID)
			}
		},
	}
	cmd.Flags().String("session", "", "Session ID to continue")
	cmd.Flags().String("video", "", "Video reference for this session")
	return cmd
}
