package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/edaloom-cli/internal/metrics"
	"github.com/KaramelBytes/edaloom-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	srvAddr        string
	srvMaxUploadMB int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cleaning pipeline over HTTP",
	Long: `Starts an HTTP server exposing:
  GET  /healthz      liveness probe
  POST /v1/analyze   upload a dataset (raw body or multipart field "file"), get a JSON report
  GET  /metrics      Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := srvAddr
		if !cmd.Flags().Changed("addr") && cfg != nil && cfg.ServeAddr != "" {
			addr = cfg.ServeAddr
		}
		maxMB := srvMaxUploadMB
		if !cmd.Flags().Changed("max-upload-mb") && cfg != nil && cfg.MaxUploadMB > 0 {
			maxMB = cfg.MaxUploadMB
		}
		if maxMB <= 0 {
			return fmt.Errorf("invalid --max-upload-mb: %d", maxMB)
		}

		r := newRunner(metrics.New())
		s := server.New(server.Config{
			Addr:           addr,
			MaxUploadBytes: int64(maxMB) << 20,
			Report:         reportDefaults(),
		}, r)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Printf("✓ Serving on %s (Ctrl+C to stop)\n", addr)
		return s.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&srvMaxUploadMB, "max-upload-mb", 32, "maximum upload size in MiB")
}
