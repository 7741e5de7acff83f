// Package internal provides the application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/blogmigrate/internal/apperr"
	"github.com/starford/blogmigrate/internal/check"
	"github.com/starford/blogmigrate/internal/ledger"
	"github.com/starford/blogmigrate/internal/migrate"
	"github.com/starford/blogmigrate/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{
		stdout: os.Stdout,
		stderr: os.Stderr,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the structured JSON logger. Logs go to stderr, leaving
// stdout to progress lines, and are mirrored to a rotating file when one is
// configured.
func (a *application) newLogger() (*slog.Logger, io.Closer) {
	cfg := a.config.App
	var w io.Writer = a.stderr
	var closer io.Closer = nopCloser{}
	if cfg.LogFile.Path != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile.Path,
			MaxSize:    cfg.LogFile.MaxSizeMB,
			MaxBackups: cfg.LogFile.MaxBackups,
			MaxAge:     cfg.LogFile.MaxAgeDays,
			Compress:   cfg.LogFile.Compress,
		}
		w = io.MultiWriter(a.stderr, lj)
		closer = lj
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Run migrates every post under the configured source root.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, closer := app.newLogger()
	defer closer.Close()

	logger.Debug("Configuration loaded",
		slog.String("source_path", cfg.Source.Path),
		slog.String("dest_path", cfg.Dest.Path),
		slog.String("ledger_path", cfg.Ledger.Path),
		slog.Bool("dry_run", cfg.Migrate.DryRun),
		slog.String("log_level", cfg.App.LogLevel.String()))

	srcRoot, err := filepath.Abs(cfg.Source.Path)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}
	if info, err := os.Stat(srcRoot); err != nil || !info.IsDir() {
		fmt.Fprintf(app.stderr, "Source folder not found: %s\n", srcRoot)
		return fmt.Errorf("%w: %s", apperr.ErrSourceNotFound, srcRoot)
	}

	src, err := storage.NewFS(srcRoot, storage.WithIgnoreFile(cfg.Source.IgnoreFile))
	if err != nil {
		return fmt.Errorf("init source: %w", err)
	}
	dst, err := storage.OpenFS(cfg.Dest.Path)
	if err != nil {
		return fmt.Errorf("init destination: %w", err)
	}

	mopts := []migrate.Option{
		migrate.WithOutput(app.stdout),
		migrate.WithLogger(logger),
		migrate.WithClock(app.clock),
		migrate.WithFileName(cfg.Dest.FileName),
		migrate.WithDryRun(cfg.Migrate.DryRun),
		migrate.WithContinueOnError(cfg.Migrate.ContinueOnError),
	}
	var db *ledger.DB
	if cfg.Ledger.Enabled() && !cfg.Migrate.DryRun {
		db, err = ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return fmt.Errorf("init ledger: %w", err)
		}
		defer db.Close()
		mopts = append(mopts, migrate.WithLedger(db))
	}

	res, err := migrate.New(src, dst, cfg.Dest.Path, mopts...).Run(ctx)
	if err != nil {
		return err
	}
	if db != nil {
		entries, err := db.All()
		if err != nil {
			return fmt.Errorf("read ledger: %w", err)
		}
		logger.Info("ledger updated",
			slog.String("path", cfg.Ledger.Path),
			slog.Int("migrated", len(res.Migrated)),
			slog.Int("entries", len(entries)))
	}
	if res.Empty() {
		fmt.Fprintf(app.stdout, "No markdown files found in %s.\n", cfg.Source.Path)
	}
	return nil
}

// Check audits the migrated content tree and fails when any post misses
// its title or description.
func Check(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, closer := app.newLogger()
	defer closer.Close()

	dst, err := storage.NewFS(cfg.Dest.Path)
	if err != nil {
		return fmt.Errorf("init destination: %w", err)
	}
	rep, err := check.Run(dst, cfg.Dest.FileName)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}
	for _, f := range rep.Findings {
		fmt.Fprintln(app.stdout, f.String())
	}

	logger.Info("check finished",
		slog.Int("checked", rep.Checked),
		slog.Int("findings", len(rep.Findings)))

	if rep.Failed() {
		return fmt.Errorf("%w: %d posts checked, %d findings", apperr.ErrBudgetFailed, rep.Checked, len(rep.Findings))
	}
	fmt.Fprintf(app.stdout, "%d posts checked, no errors.\n", rep.Checked)
	return nil
}
