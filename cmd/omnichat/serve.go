package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Protocol-Lattice/omnichat/src/httpapi"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	var autoReply bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and websocket API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			st, err := a.build(ctx, reg)
			if err != nil {
				return err
			}
			defer st.Close()

			srv, err := httpapi.New(httpapi.Options{
				Orchestrator: st.Orchestrator,
				Metrics:      st.Metrics,
				Gatherer:     reg,
				Logger:       a.logger,
				Mode:         a.cfg.Server.Mode,
				AutoReply:    autoReply,
			})
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			return srv.Run(ctx, addr, a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().BoolVar(&autoReply, "auto-reply", true, "send voice transcripts to the text provider")
	return cmd
}
