package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/pkwy-game-suite/internal/config"
	"github.com/DoyleJ11/pkwy-game-suite/internal/engine"
	"github.com/DoyleJ11/pkwy-game-suite/internal/httpapi"
	"github.com/DoyleJ11/pkwy-game-suite/internal/hub"
	"github.com/DoyleJ11/pkwy-game-suite/internal/logging"
	"github.com/DoyleJ11/pkwy-game-suite/internal/metrics"
	"github.com/DoyleJ11/pkwy-game-suite/internal/pack"
	"github.com/DoyleJ11/pkwy-game-suite/internal/store"
	"github.com/DoyleJ11/pkwy-game-suite/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, sessions, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New()
	writer := store.NewWriter(sessions, log, m)
	writerCtx, stopWriter := context.WithCancel(context.Background())
	defer stopWriter()
	go writer.Run(writerCtx)

	// Sessions outlive the signal context so shutdown can close them in order.
	h := hub.NewHub(context.Background(), hub.Options{
		Rules: engine.Rules{
			SpeedBonus:       cfg.Game.SpeedBonus,
			DefaultTimeLimit: int(cfg.Game.DefaultTimeLimit.Seconds()),
		},
		Logger:    log,
		Metrics:   m,
		Persister: writer,
	})
	if err := restore(ctx, h, sessions, log); err != nil {
		log.Warn("restore sessions", zap.Error(err))
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:       h,
			Packs:     pack.NewService(st, log),
			WS:        ws.NewHandler(h, cfg.WS, log),
			Metrics:   m,
			Logger:    log,
			PublicURL: cfg.PublicURL,
		}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		h.Close()
		stopWriter()
		select {
		case <-writer.Done():
		case <-shutdownCtx.Done():
			log.Warn("snapshot flush timed out")
		}
		return err
	})
	return g.Wait()
}

// openStore returns the pack store and the session store, which is the
// same store mirrored into Redis when REDIS_ADDR is set.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Store, store.Sessions, error) {
	var st store.Store
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pg, err := store.OpenPostgres(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		st = pg
	default:
		st = store.NewMemory()
	}
	if cfg.Redis.Addr == "" {
		return st, st, nil
	}
	cache, err := store.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.SnapshotTTL)
	if err != nil {
		log.Warn("redis unavailable, snapshots not cached", zap.Error(err))
		return st, st, nil
	}
	return closeBoth{st, cache}, store.Mirror{Primary: st, Cache: cache}, nil
}

type closeBoth struct {
	store.Store
	cache *store.Redis
}

func (c closeBoth) Close() error {
	return errors.Join(c.Store.Close(), c.cache.Close())
}

func restore(ctx context.Context, h *hub.Hub, sessions store.Sessions, log *zap.Logger) error {
	recs, err := sessions.LoadSessions(ctx)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		st, err := rec.State()
		if err != nil {
			log.Warn("skip unreadable session", zap.String("session_id", rec.ID), zap.Error(err))
			continue
		}
		if _, err := h.Restore(ctx, st); err != nil {
			return err
		}
	}
	log.Info("sessions restored", zap.Int("count", len(recs)))
	return nil
}
