package migrate

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/blogmigrate/internal/storage"
	"github.com/starford/blogmigrate/internal/testutil"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// failingDest rejects writes under one slug directory.
type failingDest struct {
	storage.Provider
	slug string
}

func (f failingDest) Write(path string, content []byte) error {
	if strings.HasPrefix(path, f.slug+string(filepath.Separator)) {
		return errors.New("disk full")
	}
	return f.Provider.Write(path, content)
}

func TestRun_ApplePie(t *testing.T) {
	_, src := testutil.TestSource(t, map[string]string{
		"recipes/2023-05-01-apple-pie.md": "# Apple Pie\n\nA classic dessert.",
	})
	destRoot, dst := testutil.TestDest(t)

	var out bytes.Buffer
	m := New(src, dst, "content/blog", WithOutput(&out), WithClock(clock))
	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Migrated) != 1 || res.Migrated[0].Slug != "apple-pie" {
		t.Fatalf("migrated = %+v", res.Migrated)
	}

	got := testutil.ReadFile(t, destRoot, "apple-pie/index.md")
	for _, want := range []string{
		"title: \"Apple Pie\"\n",
		"date: 2023-05-01T09:00:00.000Z\n",
		"description: \"A classic dessert.\"\n",
		"tags: [\"recipes\"]\n",
		"---\n# Apple Pie\n\nA classic dessert.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	line := "Migrated: " + filepath.Join("recipes", "2023-05-01-apple-pie.md") +
		" -> " + filepath.Join("content", "blog", "apple-pie", "index.md") + "\n"
	if out.String() != line {
		t.Errorf("progress = %q, want %q", out.String(), line)
	}
}

func TestRun_EmptySource(t *testing.T) {
	_, src := testutil.TestSource(t, map[string]string{"notes.txt": "not markdown"})
	destRoot, dst := testutil.TestDest(t)

	res, err := New(src, dst, "content/blog").Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Empty() {
		t.Errorf("expected empty result, got %+v", res)
	}
	entries, _ := os.ReadDir(destRoot)
	if len(entries) != 0 {
		t.Errorf("expected no writes, found %d entries", len(entries))
	}
}

func TestRun_PreservesExistingFrontMatter(t *testing.T) {
	in := "---\ntitle: \"Hand Written\"\ncustom: keep me\n---\nBody line.\n"
	_, src := testutil.TestSource(t, map[string]string{"hand-written.md": in})
	destRoot, dst := testutil.TestDest(t)

	if _, err := New(src, dst, "out", WithClock(clock)).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := testutil.ReadFile(t, destRoot, "hand-written/index.md")
	if strings.Count(got, "title:") != 1 || !strings.Contains(got, `title: "Hand Written"`) {
		t.Errorf("title changed or duplicated:\n%s", got)
	}
	if !strings.Contains(got, "custom: keep me\n") {
		t.Errorf("custom key lost:\n%s", got)
	}
	if !strings.Contains(got, `description: "Body line."`) {
		t.Errorf("description not filled from body:\n%s", got)
	}
	if !strings.HasSuffix(got, "---\nBody line.\n") {
		t.Errorf("body not reattached verbatim:\n%q", got)
	}
}

func TestRun_RerunOverwritesDeterministically(t *testing.T) {
	_, src := testutil.TestSource(t, map[string]string{"a/2022-01-02_first-post.markdown": "Hello"})
	destRoot, dst := testutil.TestDest(t)

	m := New(src, dst, "out", WithClock(clock))
	if _, err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	first := testutil.ReadFile(t, destRoot, "first-post/index.md")
	if _, err := m.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second := testutil.ReadFile(t, destRoot, "first-post/index.md"); second != first {
		t.Errorf("rerun changed output:\n%s\n---\n%s", first, second)
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	_, src := testutil.TestSource(t, map[string]string{"post.md": "Body"})

	var out bytes.Buffer
	res, err := New(src, nil, "content/blog", WithDryRun(true), WithOutput(&out)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Migrated) != 1 {
		t.Fatalf("migrated = %+v", res.Migrated)
	}
	if !strings.HasPrefix(out.String(), "Would migrate: post.md -> ") {
		t.Errorf("progress = %q", out.String())
	}
}

func TestRun_NilDestWithoutDryRun(t *testing.T) {
	_, src := testutil.TestSource(t, map[string]string{"post.md": "Body"})
	if _, err := New(src, nil, "out").Run(context.Background()); err == nil {
		t.Error("expected error without destination")
	}
}

func TestRun_AbortsOnFirstError(t *testing.T) {
	_, src := testutil.TestSource(t, map[string]string{
		"a.md": "first",
		"b.md": "second",
		"c.md": "third",
	})
	destRoot, dst := testutil.TestDest(t)

	res, err := New(src, failingDest{Provider: dst, slug: "b"}, "out").Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v, want disk full", err)
	}
	if len(res.Migrated) != 1 {
		t.Errorf("migrated = %d, want 1", len(res.Migrated))
	}
	if _, statErr := os.Stat(filepath.Join(destRoot, "c", "index.md")); statErr == nil {
		t.Error("files after the failure should not be migrated")
	}
}

func TestRun_ContinueOnError(t *testing.T) {
	_, src := testutil.TestSource(t, map[string]string{
		"a.md": "first",
		"b.md": "second",
		"c.md": "third",
	})
	destRoot, dst := testutil.TestDest(t)

	res, err := New(src, failingDest{Provider: dst, slug: "b"}, "out", WithContinueOnError(true)).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "b.md") {
		t.Fatalf("err = %v, want failure for b.md", err)
	}
	if len(res.Migrated) != 2 {
		t.Errorf("migrated = %d, want 2", len(res.Migrated))
	}
	testutil.ReadFile(t, destRoot, "c/index.md")
}

func TestRun_CancelledContext(t *testing.T) {
	_, src := testutil.TestSource(t, map[string]string{"a.md": "x"})
	_, dst := testutil.TestDest(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(src, dst, "out").Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRun_SlugCollisionWarnsAndOverwrites(t *testing.T) {
	_, src := testutil.TestSource(t, map[string]string{
		"one/2021-01-01-same-name.md": "From one",
		"two/same-name.md":            "From two",
	})
	destRoot, dst := testutil.TestDest(t)

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if _, err := New(src, dst, "out", WithLogger(logger), WithClock(clock)).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(logs.String(), "slug collision") {
		t.Errorf("expected collision warning, logs: %s", logs.String())
	}
	if got := testutil.ReadFile(t, destRoot, "same-name/index.md"); !strings.Contains(got, "From two") {
		t.Errorf("later post should win:\n%s", got)
	}
}

func TestRun_DebugLogNamesSourceFile(t *testing.T) {
	srcRoot, src := testutil.TestSource(t, map[string]string{"hello.md": "Hi"})
	_, dst := testutil.TestDest(t)

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if _, err := New(src, dst, "out", WithLogger(logger), WithClock(clock)).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := `"source":"` + filepath.Join(srcRoot, "hello.md") + `"`
	if !strings.Contains(logs.String(), want) {
		t.Errorf("logs missing %s: %s", want, logs.String())
	}
}

func TestRun_LedgerRecordsAndDetectsEarlierRuns(t *testing.T) {
	db := testutil.TestLedger(t)
	_, dst := testutil.TestDest(t)

	_, first := testutil.TestSource(t, map[string]string{"x/shared.md": "first"})
	if _, err := New(first, dst, "out", WithLedger(db)).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	e, err := db.Lookup("shared")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if e.Source != filepath.Join("x", "shared.md") || e.Destination != filepath.Join("out", "shared", "index.md") {
		t.Errorf("entry = %+v", e)
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	_, second := testutil.TestSource(t, map[string]string{"y/shared.md": "second"})
	if _, err := New(second, dst, "out", WithLedger(db), WithLogger(logger)).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(logs.String(), "earlier run") {
		t.Errorf("expected cross-run collision warning, logs: %s", logs.String())
	}
}

func TestRun_CustomFileName(t *testing.T) {
	_, src := testutil.TestSource(t, map[string]string{"post.md": "Body"})
	destRoot, dst := testutil.TestDest(t)
	if _, err := New(src, dst, "out", WithFileName("_index.md")).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	testutil.ReadFile(t, destRoot, "post/_index.md")
}
