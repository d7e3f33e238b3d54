package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okabe/vidql/internal/render"
)

func videosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "videos",
		Short: "List videos in the media library",
		Run: func(cmd *cobra.Command, args []string) {
			_, lib, closer, err := buildEngine()
			if err != nil {
				exitOnError(err)
			}
			defer closer()

			videos, err := lib.List()
			if err != nil {
				exitOnError(err)
			}
			fmt.Print(render.New(pretty).Videos(videos))
		},
	}
}
