package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/five82/backroom/internal/api"
	"github.com/five82/backroom/internal/config"
	"github.com/five82/backroom/internal/kv"
	"github.com/five82/backroom/internal/netlog"
	"github.com/five82/backroom/internal/page"
	"github.com/five82/backroom/internal/prefs"
	"github.com/five82/backroom/internal/preview"
	"github.com/five82/backroom/internal/pusher"
	"github.com/five82/backroom/internal/query"
	"github.com/five82/backroom/internal/realtime"
	"github.com/five82/backroom/internal/sidebar"
	"github.com/five82/backroom/internal/state"
	"github.com/five82/backroom/internal/ui"
	"github.com/five82/backroom/internal/units"
)

// Options configure the backroom application.
type Options struct {
	ConfigPath string
	PollEvery  int    // seconds; zero uses the configured interval
	StartPage  string // empty reopens the last page
}

// Run boots the backroom TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}

	logger, closeLog, err := openLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	storage, closeStorage, err := openStorage(cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStorage()

	persistLog := logger.With("component", "persist")
	onPersistError := func(err error) { persistLog.Warn("client storage failed", "error", err) }

	userPrefs := prefs.Load(storage, onPersistError)
	requests := netlog.New(cfg.RequestLogLimit)

	client, err := api.NewClient(cfg.APIURL, cfg.APIToken, &netlog.Transport{Store: requests})
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}
	client.SetDeviceID(userPrefs.Get().DeviceID)

	session, err := api.ParseSession(cfg.APIToken)
	if err != nil {
		logger.Debug("api token carries no readable claims", "error", err)
	}

	cache, err := query.New(0, 0, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := realtime.NewMetrics(registry)

	store := &state.Store{}
	router := page.NewRouter(client, store, logger)
	hub := realtime.NewHub(logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var live *pusher.Client
	if cfg.Realtime.Enabled() {
		live, err = pusher.New(hub, pusher.Config{
			URL:        cfg.Realtime.URL,
			AppKey:     cfg.Realtime.AppKey,
			Authorizer: client,
			Logger:     logger,
		})
		if err != nil {
			return fmt.Errorf("init realtime: %w", err)
		}
		g.Go(func() error { return live.Run(gctx) })
	} else {
		logger.Info("realtime disabled; relying on polling")
	}

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			if err := serveMetrics(gctx, cfg.MetricsAddr, registry, logger); err != nil {
				logger.Warn("metrics endpoint stopped", "error", err)
			}
			return nil
		})
	}

	start := opts.StartPage
	if start == "" {
		start = userPrefs.Get().LastPage
	}
	if err := router.Visit(gctx, start); err != nil {
		logger.Warn("initial visit failed", "path", start, "error", err)
	}

	g.Go(func() error {
		RunPoller(gctx, router, store, connectedFunc(live), cfg.PollInterval, logger)
		return nil
	})

	uiErr := ui.Run(ui.Options{
		Context:   gctx,
		Store:     store,
		Router:    router,
		Backend:   client,
		Cache:     cache,
		Transport: hub,
		Metrics:   metrics,
		Connected: connectedFunc(live),
		Sidebar:   sidebar.New(storage, onPersistError),
		Preview:   preview.New(),
		Requests:  requests,
		Units:     units.New(),
		Prefs:     userPrefs,
		Session:   session,
		LogFile:   cfg.LogFile,
		Logger:    logger,
	})
	cancel()
	_ = g.Wait()
	return uiErr
}

func connectedFunc(live *pusher.Client) func() bool {
	if live == nil {
		return func() bool { return false }
	}
	return live.Connected
}

func openLogger(path string, level slog.Level) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := newLogger(file, level)
	slog.SetDefault(logger)
	return logger, func() { _ = file.Close() }, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func openStorage(cfg config.Storage) (kv.Storage, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create storage dir: %w", err)
		}
		db, err := kv.OpenSQLite(cfg.SQLitePath())
		if err != nil {
			return nil, nil, fmt.Errorf("open storage: %w", err)
		}
		return db, func() { _ = db.Close() }, nil
	default:
		fs, err := kv.NewFileStorage(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open storage: %w", err)
		}
		return fs, func() {}, nil
	}
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
