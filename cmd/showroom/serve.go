package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"showroom/internal/auth"
	"showroom/internal/catalog"
	"showroom/internal/config"
	"showroom/internal/db"
	"showroom/internal/httpapi"
	"showroom/internal/playback"
	"showroom/internal/session"
	pgdb "showroom/pkg/db"
	"showroom/pkg/logger"
)

var seedFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFiles...)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger.New(cfg.LogLevel))
	},
}

func init() {
	serveCmd.Flags().StringVar(&seedFile, "seed", "", "JSON file with reels to save into the catalog on startup")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, closeStore, err := openCatalog(ctx, cfg.Catalog, log)
	if err != nil {
		return err
	}
	defer closeStore()
	if seedFile != "" {
		if err := seedCatalog(ctx, store, seedFile); err != nil {
			return err
		}
		log.Info().Str("file", seedFile).Msg("catalog seeded")
	}

	prober, err := playback.NewHTTPProber(&http.Client{Timeout: cfg.Probe.Timeout}, cfg.Probe.BaseURL)
	if err != nil {
		return err
	}
	sessions := session.NewManager(session.Options{
		Prober:     prober,
		Metrics:    playback.NewMetrics(reg),
		IdleTTL:    cfg.Session.IdleTTL,
		Registerer: reg,
		Logger:     log,
	})
	api := httpapi.New(httpapi.Deps{
		Catalog:        store,
		Sessions:       sessions,
		Auth:           auth.NewService(cfg.AppSecret, cfg.Session.TokenTTL),
		AdminTokenHash: cfg.AdminTokenHash,
		Gatherer:       reg,
		AllowedOrigins: cfg.Session.AllowedOrigins,
		AutoAdvance:    cfg.Session.AutoAdvance,
		Autoplay:       cfg.Session.Autoplay,
		Muted:          cfg.Session.Muted,
		Controls:       cfg.Session.Controls,
		Logger:         log,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("catalog", string(cfg.Catalog.Backend)).Msg("showroom listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sessions.Run(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	err = g.Wait()
	log.Info().Msg("showroom stopped")
	return err
}

func openCatalog(ctx context.Context, cfg config.CatalogConfig, log zerolog.Logger) (catalog.Store, func(), error) {
	var (
		store   catalog.Store
		closeFn = func() {}
	)
	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := pgdb.ConnectWait(ctx, cfg.DBURL, cfg.ConnectTimeout, log)
		if err != nil {
			return nil, nil, err
		}
		pg := catalog.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		store, closeFn = pg, pool.Close
	case config.BackendScylla:
		s, err := db.Connect(ctx, db.ScyllaConfig{
			Hosts:       cfg.ScyllaHosts,
			Port:        cfg.ScyllaPort,
			Keyspace:    cfg.Keyspace,
			Consistency: cfg.Consistency,
			Replication: cfg.Replication,
			MaxWait:     cfg.ConnectTimeout,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = catalog.NewScyllaStore(s, cfg.Keyspace), s.Close
	default:
		mem, err := catalog.NewMemoryStore()
		if err != nil {
			return nil, nil, err
		}
		store = mem
	}
	if cfg.CacheTTL > 0 && cfg.Backend != config.BackendMemory {
		store = catalog.NewCachedStore(store, cfg.CacheTTL)
	}
	return store, closeFn, nil
}

func seedCatalog(ctx context.Context, store catalog.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	var reels []catalog.Reel
	if err := json.Unmarshal(data, &reels); err != nil {
		return fmt.Errorf("parse seed %s: %w", path, err)
	}
	for _, r := range reels {
		if _, err := store.SaveReel(ctx, r); err != nil {
			return fmt.Errorf("seed reel %q: %w", r.ID, err)
		}
	}
	return nil
}
