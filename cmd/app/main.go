package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/blogmigrate/internal"
	"github.com/starford/blogmigrate/internal/apperr"
	pkgconfig "github.com/starford/blogmigrate/pkg/config"
)

// loadConfig reads the config file and applies any flags given on the
// command line on top of it. The default config file may be absent; one named
// with --config or APP_CONFIG_FILE must exist.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg, err := internal.LoadConfig(cmd.String("config"), cmd.IsSet("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("source") {
		cfg.Source.Path = cmd.String("source")
	}
	if cmd.IsSet("dest") {
		cfg.Dest.Path = cmd.String("dest")
	}
	if cmd.IsSet("file-name") {
		cfg.Dest.FileName = cmd.String("file-name")
	}
	if cmd.IsSet("ignore-file") {
		cfg.Source.IgnoreFile = cmd.String("ignore-file")
	}
	if cmd.IsSet("ledger") {
		cfg.Ledger.Path = cmd.String("ledger")
	}
	if cmd.IsSet("dry-run") {
		cfg.Migrate.DryRun = cmd.Bool("dry-run")
	}
	if cmd.IsSet("continue-on-error") {
		cfg.Migrate.ContinueOnError = cmd.Bool("continue-on-error")
	}

	if err := pkgconfig.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runMigrate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Run(ctx, internal.WithConfig(cfg))
}

func runCheck(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Check(ctx, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "blogmigrate",
		Usage:  "Migrate legacy markdown posts into slug directories with complete front matter",
		Action: runMigrate,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "Directory holding the legacy posts",
				Sources: cli.EnvVars("BLOGMIGRATE_SOURCE"),
			},
			&cli.StringFlag{
				Name:    "dest",
				Aliases: []string{"d"},
				Usage:   "Directory receiving one <slug>/ entry per post",
				Sources: cli.EnvVars("BLOGMIGRATE_DEST"),
			},
			&cli.StringFlag{
				Name:  "file-name",
				Usage: "File written inside each slug directory",
			},
			&cli.StringFlag{
				Name:  "ignore-file",
				Usage: "Gitignore-style file in the source directory listing posts to skip",
			},
			&cli.StringFlag{
				Name:  "ledger",
				Usage: "SQLite file recording source to slug mappings across runs",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print what would be migrated without writing anything",
			},
			&cli.BoolFlag{
				Name:  "continue-on-error",
				Usage: "Keep migrating after a failed post and report all failures at the end",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "Audit migrated posts for missing titles and descriptions",
				Action: runCheck,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		// The missing-source case has already been reported on stderr.
		if !errors.Is(err, apperr.ErrSourceNotFound) {
			slog.Error("application error", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}
