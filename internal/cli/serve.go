package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/studyplan/studyplan/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local plan service",
	Long: `Run the reference plan service on the given address.

It answers GET /health and POST /plan with template-based weekly plans,
which is enough to use every other command without a remote service.`,
	Example: `  studyplan serve
  studyplan serve --addr 0.0.0.0:9000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "info")
		if err != nil {
			return err
		}
		defer a.Close()

		addr := serveAddr
		if addr == "" {
			addr = a.cfg.ListenAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(server.Options{
			Generator:          server.TemplateGenerator{},
			Version:            server.DefaultVersion,
			RateLimitPerMinute: a.cfg.RateLimitPerMinute,
			Logger:             a.log,
		})
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, 127.0.0.1:8000)")
}
