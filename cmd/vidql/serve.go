package main

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okabe/vidql/internal/config"
	"github.com/okabe/vidql/internal/metrics"
	"github.com/okabe/vidql/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Run: func(cmd *cobra.Command, args []string) {
			eng, lib, closer, err := buildEngine()
			if err != nil {
				exitOnError(err)
			}
			defer closer()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			env := config.Env()
			if port, err := strconv.Atoi(env.MetricsPort); err == nil && port > 0 {
				ms := metrics.NewServer(port)
				if err := ms.Start(); err == nil {
					defer ms.Stop(context.Background())
				}
			}

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = env.ListenAddr
			}
			if err := server.New(eng, lib, addr).Serve(ctx); err != nil {
				exitOnError(err)
			}
		},
	}
	cmd.Flags().String("addr", "", "Listen address (defaults to VIDQL_ADDR)")
	return cmd
}
