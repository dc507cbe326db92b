package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/openplag/internal/adapters/cli"
	"github.com/kirillkom/openplag/internal/bootstrap"
	"github.com/kirillkom/openplag/internal/config"
	"github.com/kirillkom/openplag/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// stdout carries reports and the MCP protocol.
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "openplag-cli", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	load := func(ctx context.Context) (*cli.Services, func(), error) {
		app, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
		if err != nil {
			return nil, nil, err
		}
		return &cli.Services{
			Submissions: app.SubmissionUC,
			Analyzer:    app.AnalyzeUC,
			Archive:     app.ArchiveUC,
		}, app.Close, nil
	}

	if err := cli.Execute(ctx, load); err != nil {
		stop()
		os.Exit(1)
	}
}
