package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"lensbyexample/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:            "lensbyexample",
		Usage:           "serves the lens by example article site",
		HideHelpCommand: true,
		DefaultCommand:  "serve",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serves the site over HTTP",
				Action: runServe,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "listen on `PORT` instead of $PORT"},
				},
			},
			{
				Name:   "mirror",
				Usage:  "Copies the article collection into the MySQL posts table",
				Action: runMirror,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Value: app.BackendFirestore,
						Usage: "source `BACKEND` to copy from (firestore or file)"},
				},
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger shared by every command.
func setup() (app.Config, *zap.Logger, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := app.NewLogger(cfg)
	if err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
