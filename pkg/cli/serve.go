package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hemaweb/featmock/pkg/engine"
	"github.com/hemaweb/featmock/pkg/livereload"
	"github.com/hemaweb/featmock/pkg/metrics"
	"github.com/hemaweb/featmock/pkg/mock"
	"github.com/hemaweb/featmock/pkg/reload"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the standalone mock server",
	Long: `Start the standalone mock server.

Routes from every feature package are served under the base path, together
with GET /health, GET /mock-info and GET /metrics. With --watch (the default)
mock files are reloaded on change and browsers connected to /__featmock/ws are
told to refresh.

Examples:
  # Serve on the default port 3001
  featmock serve

  # Only the users and orders features, without artificial delays
  featmock serve --include feat-users,feat-orders --no-delay

  # Production-like environment with mocks forced on
  NODE_ENV=production VITE_USE_MOCK=true featmock serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer closeLog()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		collector, err := newCollector(cfg, log)
		if err != nil {
			return err
		}

		m := metrics.NewMock()
		opts := []engine.ServerOption{
			engine.WithLogger(log),
			engine.WithCollector(collector),
			engine.WithMetrics(m),
		}

		routes := func() []mock.FeatureRoute { return nil }
		if cfg.Mock.Enabled {
			rl := reload.New(collector, reload.Options{Logger: log, Metrics: m})
			if err := rl.Load(ctx); err != nil {
				return err
			}
			routes = rl.Routes
			if cfg.Mock.Watch {
				hub := livereload.NewHub(log, m)
				defer hub.Close()
				rl.OnReload(hub.Notify)
				if err := rl.Watch(ctx); err != nil {
					return err
				}
				opts = append(opts, engine.WithLiveReload(hub))
			}
		} else {
			log.Warn("mocks are disabled: NODE_ENV is production and VITE_USE_MOCK is not true")
		}
		opts = append(opts, engine.WithRoutes(routes))

		srv := engine.NewServer(cfg, opts...)
		if err := srv.Start(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "featmock serving %d routes at http://%s%s\n", len(routes()), srv.Addr(), cfg.Mock.Base)

		<-ctx.Done()
		fmt.Fprintln(cmd.OutOrStdout(), "shutting down")
		return srv.Stop()
	},
}

func init() {
	f := serveCmd.Flags()
	f.String("host", "", "Host to bind (default localhost, MOCK_HOST)")
	f.IntP("port", "p", 0, "Port to listen on (default 3001, MOCK_PORT)")
	f.String("base", "", "Base path mocks are served under (default /api)")
	f.Bool("watch", true, "Reload mock files on change")
	f.Bool("no-delay", false, "Ignore route delays")
	f.Bool("log", true, "Log one line per mocked request")
	f.String("log-level", "", "Log level: debug, info, warn, error")
	f.String("log-format", "", "Log format: text or json")
	f.String("log-file", "", "Also write JSON logs to this file")
	addMockFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}
