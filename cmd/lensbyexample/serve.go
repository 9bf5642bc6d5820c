package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lensbyexample/internal/app"
	"lensbyexample/internal/content"
)

func runServe(ctx context.Context, cmd *cli.Command) (err error) {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	defer zap.RedirectStdLog(log)()

	if port := cmd.String("port"); port != "" {
		cfg.Port = port
	}
	if cfg.MailingListURL == "" {
		log.Warn("MAILING_LIST_URL is not set, the signup form will post back to the site")
	}

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(store))

	cache := content.NewCache(store, content.CacheOptions{
		TTL:          cfg.CacheTTL,
		Wait:         cfg.LoadWait,
		FetchTimeout: cfg.FetchTimeout,
		Logger:       log.Named("cache"),
	})

	handler, err := app.NewServer(cache, cfg, log.Named("http"))
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cache.Run(gctx)
	})
	g.Go(func() error {
		log.Info("Listening", zap.String("addr", srv.Addr), zap.String("backend", cfg.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("Server stopped")
		return nil
	})

	return g.Wait()
}
