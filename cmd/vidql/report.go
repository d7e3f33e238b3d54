package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <session-id>",
		Short: "Generate a document from a session's analysis",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, _, closer, err := buildEngine()
			if err != nil {
				exitOnError(err)
			}
			defer closer()

			format, _ := cmd.Flags().GetString("format")
			path, err := eng.Report(context.Background(), args[0], format)
			if err != nil {
				exitOnError(err)
			}
			fmt.Println(path)
		},
	}
	cmd.Flags().String("format", "pdf", "Document format (pdf or pptx)")
	return cmd
}
