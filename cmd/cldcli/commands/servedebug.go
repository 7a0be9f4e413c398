package commands

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cldc-go/cldc/internal/cli/health"
	"github.com/cldc-go/cldc/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveDebugAddr string

var serveDebugCmd = &cobra.Command{
	Use:   "serve-debug",
	Short: "Serve /healthz and /metrics for a process embedding cldc",
	Long: `serve-debug runs a small HTTP server exposing /healthz (process
liveness, not a CLD session's state) and /metrics (the Prometheus registry
installed with metrics.InitRegistry). It is meant for operators running a
fleet of long-lived processes that link this module as a library; it does
not itself hold a CLD session.`,
	RunE: runServeDebug,
}

func init() {
	serveDebugCmd.Flags().StringVar(&serveDebugAddr, "addr", ":9090", "Address to listen on")
}

var debugStartedAt = time.Now()

func runServeDebug(cmd *cobra.Command, args []string) error {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		resp := health.Response{Status: "healthy"}
		resp.Data.Service = "cldcli"
		resp.Data.StartedAt = debugStartedAt.Format(time.RFC3339)
		uptime := time.Since(debugStartedAt)
		resp.Data.Uptime = uptime.String()
		resp.Data.UptimeSec = int64(uptime.Seconds())

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         serveDebugAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}
