package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/pageshot/internal/browserpool"
	"github.com/tomasbasham/pageshot/internal/config"
	"github.com/tomasbasham/pageshot/internal/llmclient"
	"github.com/tomasbasham/pageshot/internal/retention"
	"github.com/tomasbasham/pageshot/internal/scheduler"
	"github.com/tomasbasham/pageshot/internal/server"
	"github.com/tomasbasham/pageshot/internal/storage"
	"github.com/tomasbasham/pageshot/internal/store"
)

var _ server.BrowserPool = (*browserpool.Pool)(nil)

// ServeOptions holds the flags for the `serve` command. Every setting can
// also be set via the matching PAGESHOT_* environment variable; an explicit
// flag wins.
type ServeOptions struct {
	Port int
}

var serveLong = templates.LongDesc(`Start the pageshot worker: the scheduler loop, the retention
	sweep and the HTTP API used by the UI and the script-generation collaborator.`)

var serveExample = templates.Examples(`
	# Start on the default port, configured entirely via environment
	pageshot serve

	# Override just the port
	pageshot serve --port 9090`)

func NewServeOptions() *ServeOptions {
	return &ServeOptions{}
}

func NewServeCommand(o *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the pageshot worker",
		Long:    serveLong,
		Example: serveExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&o.Port, "port", "p", 0, "Port to listen on (overrides PAGESHOT_LISTEN_ADDR)")

	return cmd
}

func (o *ServeOptions) Run(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.Port != 0 {
		cfg.ListenAddr = fmt.Sprintf(":%d", o.Port)
	}

	logger := slog.Default()

	db, err := store.Open(cfg.DatabaseURL, store.DefaultConfig())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	files, err := storage.NewDiskStore(cfg.ScreenshotsDir)
	if err != nil {
		return fmt.Errorf("open screenshot store: %w", err)
	}

	pool, err := browserpool.New(ctx, cfg.Scheduler.PoolSize, browserpool.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("launch browser pool: %w", err)
	}
	defer pool.Close()

	sched := scheduler.New(cfg.Scheduler, db, files, pool, scheduler.WithLogger(logger))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	sweeper := retention.NewSweeper(db, files, logger)
	go runRetentionSweeps(ctx, sweeper, cfg.Scheduler.CleanupInterval, logger)

	llm, err := llmclient.NewClient(llmclient.Config{BaseURL: cfg.LLMEndpoint, APIKey: cfg.LLMAPIKey})
	if err != nil {
		return fmt.Errorf("create collaborator client: %w", err)
	}

	srv := server.New(db, llm, db, sched, pool)

	logger.Info("pageshot worker starting", "listen_addr", cfg.ListenAddr)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.ListenAddr) }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

// runRetentionSweeps runs the retention policy once every interval (the
// configured cleanup interval), until ctx is cancelled.
func runRetentionSweeps(ctx context.Context, sweeper *retention.Sweeper, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			deleted, err := sweeper.Sweep(ctx, now)
			if err != nil {
				logger.Error("retention sweep failed", "err", err)
				continue
			}
			if deleted > 0 {
				logger.Info("retention sweep deleted screenshots", "count", deleted)
			}
		}
	}
}
