package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mockhost/mockhost/internal/storage"
	"github.com/mockhost/mockhost/pkg/config"
	"github.com/mockhost/mockhost/pkg/engine"
	"github.com/mockhost/mockhost/pkg/metrics"
)

type serveFlags struct {
	files     []string
	port      int
	project   string
	chaosSeed uint64
}

func newServeCmd(g *globalFlags) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve mock endpoints over HTTP",
		Long: `Serve the endpoints described by one or more configuration files.

Files are merged in order; server settings come from the first file that
declares them and are overridden by flags. The server runs until it
receives SIGINT or SIGTERM.`,
		Example: `  # Serve mockhost.yaml on the configured port
  mockhost serve

  # Serve several files on port 9000
  mockhost serve -c base.yaml -c 'mocks/**/*.yaml' --port 9000

  # Reproducible failure simulation
  mockhost serve --chaos-seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, f)
		},
	}

	cmd.Flags().StringArrayVarP(&f.files, "config", "c", nil, "Config file path or glob (repeatable)")
	cmd.Flags().IntVarP(&f.port, "port", "p", config.DefaultPort, "HTTP port (0 picks a free port)")
	cmd.Flags().StringVar(&f.project, "project", "", "Serve only endpoints of this project")
	cmd.Flags().Uint64Var(&f.chaosSeed, "chaos-seed", 0, "Seed for reproducible failure simulation")
	return cmd
}

func runServe(cmd *cobra.Command, g *globalFlags, f *serveFlags) error {
	file, err := config.Load(configPaths(f.files)...)
	if err != nil {
		return err
	}

	cfg := file.ServerOrDefault()
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = f.port
	}
	if flags.Changed("project") {
		cfg.Project = f.project
	}
	if flags.Changed("chaos-seed") {
		cfg.ChaosSeed = f.chaosSeed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	endpoints, err := file.ToEndpoints()
	if err != nil {
		return err
	}

	log := g.logger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	provider, registry, err := metrics.Setup(cfg.Metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := metrics.Close(provider); err != nil {
			log.Warn("closing metrics", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []engine.ServerOption{
		engine.WithLogger(log),
		engine.WithMetrics(provider, registry),
	}
	if cfg.Store.Backend == config.StoreRedis {
		rs, err := storage.NewRedisStore(ctx, storage.RedisOptions{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
		})
		if err != nil {
			return err
		}
		defer func() { _ = rs.Close() }()
		opts = append(opts, engine.WithStore(rs))
	}

	srv := engine.NewServer(cfg, opts...)
	if err := srv.Load(ctx, endpoints); err != nil {
		return fmt.Errorf("loading endpoints: %w", err)
	}
	if err := srv.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down", "uptime", srv.Uptime().String())
	return srv.Stop()
}
