package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"lensbyexample/internal/app"
	"lensbyexample/internal/content"
)

func runMirror(ctx context.Context, cmd *cli.Command) (err error) {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	from := cmd.String("from")
	if from != app.BackendFirestore && from != app.BackendFile {
		return fmt.Errorf("cannot mirror from %q, use %s or %s", from, app.BackendFirestore, app.BackendFile)
	}
	if cfg.MySQLDSN == "" {
		return fmt.Errorf("missing MYSQL_DSN or DATABASE_URL environment variable")
	}

	srcCfg := cfg
	srcCfg.Backend = from
	src, err := app.OpenStore(ctx, srcCfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", from, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(src))

	dst, err := content.OpenMySQL(cfg.MySQLDSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(dst))

	if err := dst.Ping(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	if err := dst.EnsureSchema(ctx); err != nil {
		return err
	}

	articles, err := src.FetchCollection(ctx)
	if err != nil {
		return err
	}

	written, err := dst.Mirror(ctx, articles)
	if err != nil {
		return err
	}

	log.Info("Mirrored collection",
		zap.String("from", from),
		zap.Int("fetched", len(articles)),
		zap.Int("written", written))
	return nil
}
