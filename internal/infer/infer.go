// Package infer derives post metadata (title, date, description, tags and
// slug) from a source document's file name, location, body and timestamps.
package infer

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/starford/blogmigrate/internal/models"
	"github.com/starford/blogmigrate/internal/parser"
)

// DateLayout renders dates as UTC with millisecond precision,
// e.g. 2023-05-01T09:00:00.000Z.
const DateLayout = "2006-01-02T15:04:05.000Z"

// MaxDescription is the longest description kept before truncation.
const MaxDescription = 160

const ellipsis = "..."

// descriptionPunct is the markdown punctuation removed from descriptions.
const descriptionPunct = "`*_>#-"

var (
	datePrefixRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})[-_]`)
	slugStripRe  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugRunRe    = regexp.MustCompile(`[\s-]+`)
	lineSplitRe  = regexp.MustCompile(`\r?\n`)
)

// Clock returns the current time. It is consulted only when neither the
// file name nor the file system supplies a date.
type Clock func() time.Time

// Infer computes the full metadata tuple for doc.
func Infer(doc models.SourceDocument, now Clock) models.Metadata {
	base := BaseName(doc.RelPath)
	body := doc.Content
	if _, rest, ok := parser.Split(body); ok {
		body = rest
	}
	return models.Metadata{
		Title:       Title(base),
		Date:        Date(base, doc.Timestamps, now),
		Description: Description(string(body)),
		Tags:        Tags(filepath.Dir(doc.RelPath)),
		Slug:        Slug(base),
	}
}

// BaseName returns the file name of path without its final extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// StripDate removes a leading YYYY-MM-DD- or YYYY-MM-DD_ prefix.
func StripDate(base string) string {
	if loc := datePrefixRe.FindStringIndex(base); loc != nil {
		return base[loc[1]:]
	}
	return base
}

// DateFromName returns 09:00 UTC on the calendar day named by a
// YYYY-MM-DD[-_] prefix. Prefixes naming an impossible day do not match.
func DateFromName(base string) (time.Time, bool) {
	m := datePrefixRe.FindStringSubmatch(base)
	if m == nil {
		return time.Time{}, false
	}
	day, err := time.Parse("2006-01-02", m[1]+"-"+m[2]+"-"+m[3])
	if err != nil {
		return time.Time{}, false
	}
	return day.Add(9 * time.Hour), true
}

// Date picks the post date: the file-name prefix, then the creation time,
// then the modification time, then now.
func Date(base string, ts models.Timestamps, now Clock) string {
	var t time.Time
	if d, ok := DateFromName(base); ok {
		t = d
	} else if !ts.Created.IsZero() {
		t = ts.Created
	} else if !ts.Modified.IsZero() {
		t = ts.Modified
	} else {
		if now == nil {
			now = time.Now
		}
		t = now()
	}
	return t.UTC().Format(DateLayout)
}

// Title turns a file name into a display title: the date prefix is dropped,
// hyphens and underscores become spaces and every word starts upper-case.
func Title(base string) string {
	name := strings.Map(dashToSpace, StripDate(base))

	var b strings.Builder
	b.Grow(len(name))
	inWord := false
	for _, r := range name {
		w := isWordChar(r)
		if w && !inWord && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		inWord = w
		b.WriteRune(r)
	}
	return b.String()
}

// Description returns the first line of body that is neither blank, a
// heading nor a front-matter marker, with markdown punctuation removed and
// truncated to MaxDescription characters.
func Description(body string) string {
	for _, line := range lineSplitRe.Split(body, -1) {
		line = strings.TrimFunc(line, isTrimmable)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, parser.Delimiter) {
			continue
		}
		cleaned := strings.Map(func(r rune) rune {
			if strings.ContainsRune(descriptionPunct, r) {
				return -1
			}
			return r
		}, line)
		return truncate(strings.TrimFunc(cleaned, isTrimmable))
	}
	return ""
}

// isTrimmable matches whitespace and the byte-order mark some editors put
// at the start of a file.
func isTrimmable(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxDescription {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxDescription-len(ellipsis)]) + ellipsis
}

// Tags turns the directory of a post (relative to the source root) into
// tags, one per path segment. Posts at the root get an empty list.
func Tags(relDir string) []string {
	tags := []string{}
	if relDir == "." || relDir == "" {
		return tags
	}
	for _, seg := range strings.Split(relDir, string(filepath.Separator)) {
		tags = append(tags, strings.Map(dashToSpace, seg))
	}
	return tags
}

// Slug derives the destination directory name from a file name.
func Slug(base string) string {
	name := StripDate(base)
	if name == "" {
		name = base
	}
	return Slugify(name)
}

// Slugify lower-cases s, keeps only [a-z0-9], whitespace and hyphens, and
// collapses whitespace/hyphen runs into a single hyphen.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = slugStripRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return slugRunRe.ReplaceAllString(s, "-")
}

func dashToSpace(r rune) rune {
	if r == '-' || r == '_' {
		return ' '
	}
	return r
}

func isWordChar(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
