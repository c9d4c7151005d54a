package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aifeed/aifeed/internal/ai"
	"github.com/aifeed/aifeed/internal/api"
	"github.com/aifeed/aifeed/internal/autopost"
	"github.com/aifeed/aifeed/internal/config"
	"github.com/aifeed/aifeed/internal/feeds"
	"github.com/aifeed/aifeed/internal/scheduler"
	"github.com/aifeed/aifeed/internal/storage"
	"github.com/aifeed/aifeed/internal/storage/postgres"
)

// scheduledRunTimeout bounds one scheduled generation, retries included.
const scheduledRunTimeout = 10 * time.Minute

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q\n", *logLevel)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(*configPath); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration (auto-creates default if missing).
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := ai.NewRegistry(cfg.ProviderConfigs())
	for _, d := range registry.Enabled() {
		slog.Info("AI provider configured", "provider", d.Name, "weight", d.Weight, "model", d.Model)
	}
	if len(registry.Enabled()) == 0 {
		slog.Warn("no AI provider API key configured, generation will fail")
	}

	// A nil fetcher must stay a nil interface.
	var headlines autopost.HeadlineSource
	if len(cfg.News.Feeds) > 0 {
		headlines = feeds.NewHeadlineFetcher(cfg.News.Feeds, cfg.News.MaxHeadlines, cfg.News.Timeout())
	}

	gen := cfg.Generator
	driver := autopost.NewDriver(registry, autopost.DriverConfig{
		MaxAttempts: gen.MaxAttempts,
		Backoff:     gen.Backoff(),
		Rules:       gen.Rules(),
	})
	service := autopost.NewService(
		driver,
		autopost.NewGuard(store, gen.DuplicatePrefixLen, gen.DuplicateWindow()),
		autopost.NewPublisher(store, gen.Author, gen.Source),
		headlines,
		gen.Location(),
	)

	if gen.Schedule != "" {
		sched, err := scheduler.New(gen.Schedule, gen.Location(), scheduledRunTimeout, func(ctx context.Context) error {
			_, err := service.Run(ctx)
			return err
		})
		if err != nil {
			return err
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
		slog.Info("generation scheduled", "schedule", gen.Schedule, "timezone", gen.Timezone, "next", sched.Next())
	} else {
		slog.Info("scheduled generation disabled")
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(store, registry, service),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Server.AutoOpenBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			openBrowser(fmt.Sprintf("http://localhost:%d/api/posts", cfg.Server.Port))
		}()
	}

	return g.Wait()
}

// openStore opens the configured post store and prepares its schema.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (storage.PostStore, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pg, err := postgres.New(ctx, postgres.Config{DSN: cfg.DSN, MaxConns: int32(cfg.MaxConns)})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("preparing postgres schema: %w", err)
		}
		slog.Info("using postgres store")
		return pg, pg.Close, nil

	default:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("creating data directory: %w", err)
			}
		}

		// Open database with WAL mode and pragmas.
		db, err := storage.OpenDatabase(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		if err := storage.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("using sqlite store", "path", cfg.Path)
		return storage.NewStore(db), func() { db.Close() }, nil
	}
}

// openBrowser opens url in the default browser. Errors are ignored.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	}
	if cmd != nil {
		_ = cmd.Start()
	}
}
