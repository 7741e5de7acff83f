// Package migrate moves legacy markdown posts into the slug-per-directory
// layout, filling in front matter on the way.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/starford/blogmigrate/internal/apperr"
	"github.com/starford/blogmigrate/internal/checksum"
	"github.com/starford/blogmigrate/internal/infer"
	"github.com/starford/blogmigrate/internal/ledger"
	"github.com/starford/blogmigrate/internal/models"
	"github.com/starford/blogmigrate/internal/parser"
	"github.com/starford/blogmigrate/internal/storage"
)

// DefaultFileName is the file written inside each slug directory.
const DefaultFileName = "index.md"

// Result summarises a run.
type Result struct {
	// Found is the number of markdown files discovered under the source root.
	Found    int
	Migrated []models.Destination
}

// Empty reports whether the source root held no markdown files.
func (r *Result) Empty() bool { return r.Found == 0 }

// Migrator runs the migration over one source root.
type Migrator struct {
	source          storage.Provider
	dest            storage.Provider
	destDisplay     string
	fileName        string
	ledger          ledger.Recorder
	now             infer.Clock
	out             io.Writer
	logger          *slog.Logger
	dryRun          bool
	continueOnError bool
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithLedger records every written post and checks it for slug collisions
// with earlier runs.
func WithLedger(l ledger.Recorder) Option {
	return func(m *Migrator) { m.ledger = l }
}

// WithClock overrides the clock used for posts without any usable date.
func WithClock(c infer.Clock) Option {
	return func(m *Migrator) { m.now = c }
}

// WithOutput sets where progress lines are printed.
func WithOutput(w io.Writer) Option {
	return func(m *Migrator) { m.out = w }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Migrator) { m.logger = l }
}

// WithDryRun computes every destination without writing anything.
func WithDryRun(v bool) Option {
	return func(m *Migrator) { m.dryRun = v }
}

// WithContinueOnError keeps going after a per-file failure and returns all
// failures joined at the end instead of aborting on the first one.
func WithContinueOnError(v bool) Option {
	return func(m *Migrator) { m.continueOnError = v }
}

// WithFileName changes the name of the file written in each slug directory.
func WithFileName(name string) Option {
	return func(m *Migrator) {
		if name != "" {
			m.fileName = name
		}
	}
}

// New creates a Migrator reading from source and writing to dest.
// destDisplay is the destination root as the user configured it and is only
// used in progress lines. dest may be nil for dry runs.
func New(source, dest storage.Provider, destDisplay string, opts ...Option) *Migrator {
	m := &Migrator{
		source:      source,
		dest:        dest,
		destDisplay: destDisplay,
		fileName:    DefaultFileName,
		now:         time.Now,
		out:         io.Discard,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run discovers every markdown file under the source root, then migrates
// them one at a time in walk order.
func (m *Migrator) Run(ctx context.Context) (*Result, error) {
	if m.dest == nil && !m.dryRun {
		return nil, fmt.Errorf("migrate: destination is required")
	}

	files, err := m.source.List("")
	if err != nil {
		return nil, err
	}
	res := &Result{Found: len(files)}
	if res.Empty() {
		return res, nil
	}

	m.logger.Info("migration started",
		slog.String("source", m.source.Root()),
		slog.String("destination", m.destDisplay),
		slog.Int("files", len(files)),
		slog.Bool("dry_run", m.dryRun))

	seen := make(map[string]string, len(files))
	var errs []error
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		dst, err := m.migrateFile(rel, seen)
		if err != nil {
			err = fmt.Errorf("migrate %s: %w", rel, err)
			if !m.continueOnError {
				return res, err
			}
			m.logger.Error("migration failed", slog.String("path", rel), slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}
		res.Migrated = append(res.Migrated, *dst)
	}

	m.logger.Info("migration finished",
		slog.Int("migrated", len(res.Migrated)),
		slog.Int("failed", len(errs)))

	return res, errors.Join(errs...)
}

func (m *Migrator) migrateFile(rel string, seen map[string]string) (*models.Destination, error) {
	raw, err := m.source.Read(rel)
	if err != nil {
		return nil, err
	}
	ts, err := m.source.Stat(rel)
	if err != nil {
		return nil, err
	}

	doc := models.SourceDocument{
		Path:       filepath.Join(m.source.Root(), rel),
		RelPath:    rel,
		Content:    raw,
		Timestamps: ts,
	}
	meta := infer.Infer(doc, m.now)
	content := parser.Normalize(raw, meta)

	target := filepath.Join(meta.Slug, m.fileName)
	dst := &models.Destination{
		Source:   rel,
		Slug:     meta.Slug,
		Path:     filepath.Join(m.destDisplay, target),
		Checksum: checksum.Sum(content),
	}

	m.warnCollision(dst, seen)

	verb := "Would migrate"
	if !m.dryRun {
		verb = "Migrated"
		if err := m.dest.Write(target, content); err != nil {
			return nil, err
		}
		if m.ledger != nil {
			if err := m.ledger.Record(ledger.Entry{
				Slug:        dst.Slug,
				Source:      dst.Source,
				Destination: dst.Path,
				Checksum:    dst.Checksum,
			}); err != nil {
				return nil, err
			}
		}
	}

	m.logger.Debug("migrated",
		slog.String("path", rel),
		slog.String("source", doc.Path),
		slog.String("slug", dst.Slug),
		slog.String("checksum", checksum.Short(content)))
	fmt.Fprintf(m.out, "%s: %s -> %s\n", verb, rel, dst.Path)
	return dst, nil
}

// warnCollision logs when a slug was already produced by another source,
// either earlier in this run or, per the ledger, in a previous run. The
// later write still overwrites the earlier one.
func (m *Migrator) warnCollision(dst *models.Destination, seen map[string]string) {
	prev, inRun := seen[dst.Slug]
	seen[dst.Slug] = dst.Source
	if inRun {
		if prev != dst.Source {
			m.logger.Warn("slug collision, overwriting",
				slog.String("slug", dst.Slug),
				slog.String("previous", prev),
				slog.String("path", dst.Source))
		}
		return
	}
	if m.ledger == nil {
		return
	}
	e, err := m.ledger.Lookup(dst.Slug)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			m.logger.Warn("ledger lookup failed", slog.String("slug", dst.Slug), slog.String("error", err.Error()))
		}
		return
	}
	if e.Source != dst.Source {
		m.logger.Warn("slug collision with earlier run, overwriting",
			slog.String("slug", dst.Slug),
			slog.String("previous", e.Source),
			slog.String("path", dst.Source))
	}
}
