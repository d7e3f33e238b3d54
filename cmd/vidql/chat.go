package main

import (
	"github.com/spf13/cobra"

	"github.com/okabe/vidql/internal/tui"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Run: func(cmd *cobra.Command, args []string) {
			runChat(cmd)
		},
	}
	cmd.Flags().String("video", "", "Video reference for this session")
	return cmd
}

func runChat(cmd *cobra.Command) {
	eng, _, closer, err := buildEngine()
	if err != nil {
		exitOnError(err)
	}
	defer closer()

	video, _ := cmd.Flags().GetString("video")
	if err := tui.RunChat(eng, video); err != nil {
		exitOnError(err)
	}
}
