package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lazypower/nudge/internal/engine"
	"github.com/lazypower/nudge/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, the hourly reminder run and the WhatsApp webhook",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	obs := newObserver(cfg)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	eng, err := newEngine(cfg, db, obs)
	if err != nil {
		return err
	}
	queue := engine.NewScoreQueue(eng)

	srv := server.New(db, eng, queue, VersionString())
	srv.SetObserver(obs)
	srv.SetFrontendOrigin(cfg.Server.FrontendOrigin)

	addr := cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := eng.Snoozer.Restore(ctx); err != nil {
		obs.Log().Warn().Err(err).Msg("snooze restore failed")
	}
	defer eng.Snoozer.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return queue.Run(gctx) })
	g.Go(func() error { return engine.NewScheduler(eng, cfg.Reminders.RunOnStart).Run(gctx) })
	g.Go(func() error {
		obs.Log().Info().Str("addr", addr).Str("db", db.Path).Str("tz", cfg.Reminders.Timezone).Msg("nudge serving")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		obs.Log().Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Scores may be stale from a previous run.
	queue.Submit()

	return g.Wait()
}
