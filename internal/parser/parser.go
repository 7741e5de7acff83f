// Package parser detects, fills in and decodes the front-matter block at the
// top of a markdown post.
//
// Normalize edits the block as text: it only appends missing keys and never
// touches what is already there, so hand-written formatting, comments and
// even malformed values survive a migration unchanged.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/adrg/frontmatter"

	"github.com/starford/blogmigrate/internal/apperr"
	"github.com/starford/blogmigrate/internal/models"
)

// Delimiter opens and closes a front-matter block.
const Delimiter = "---"

var blockRe = regexp.MustCompile(`(?s)\A---\n(.*?)\n---\n?`)

// keys filled in when an existing block lacks them, in insertion order.
var fillKeys = []string{"title", "date", "description", "tags", "contributors"}

var keyRes = func() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(fillKeys))
	for _, k := range fillKeys {
		out[k] = regexp.MustCompile(`(?m)^\s*` + regexp.QuoteMeta(k) + `:\s*`)
	}
	return out
}()

// Split separates a leading front-matter block from the rest of content.
// block excludes both delimiter lines; rest starts right after the closing
// delimiter (and its newline, if any). ok is false when content has no block.
func Split(content []byte) (block, rest []byte, ok bool) {
	loc := blockRe.FindSubmatchIndex(content)
	if loc == nil {
		return nil, content, false
	}
	return content[loc[2]:loc[3]], content[loc[1]:], true
}

// HasKey reports whether a front-matter block defines key at the start of a
// line (leading whitespace allowed, case-sensitive).
func HasKey(block []byte, key string) bool {
	re, ok := keyRes[key]
	if !ok {
		re = regexp.MustCompile(`(?m)^\s*` + regexp.QuoteMeta(key) + `:\s*`)
	}
	return re.Match(block)
}

// Normalize returns content guaranteed to start with a front-matter block.
// Without a block, a full default block is synthesized from meta and the
// content follows with leading whitespace trimmed. With a block, only the
// keys it lacks are appended; the remainder is reattached verbatim.
func Normalize(content []byte, meta models.Metadata) []byte {
	block, rest, ok := Split(content)
	if !ok {
		return synthesize(content, meta)
	}

	var additions []string
	for _, key := range fillKeys {
		if HasKey(block, key) {
			continue
		}
		additions = append(additions, fillLine(key, meta))
	}

	body := string(block)
	if len(additions) > 0 {
		body = strings.TrimSpace(body) + "\n" + strings.Join(additions, "\n")
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(rest) + 2*len(Delimiter) + 3)
	buf.WriteString(Delimiter + "\n")
	buf.WriteString(body)
	buf.WriteString("\n" + Delimiter + "\n")
	buf.Write(rest)
	return buf.Bytes()
}

func synthesize(content []byte, meta models.Metadata) []byte {
	lines := []string{
		Delimiter,
		fillLine("title", meta),
		fillLine("date", meta),
		fillLine("description", meta),
		fillLine("tags", meta),
		"draft: false",
		"categories: []",
		"series: []",
		fillLine("contributors", meta),
		"images: []",
		`canonicalURL: ""`,
		"toc: true",
		Delimiter,
		"",
	}
	var buf bytes.Buffer
	buf.WriteString(strings.Join(lines, "\n"))
	buf.Write(bytes.TrimLeftFunc(content, isSpace))
	return buf.Bytes()
}

func fillLine(key string, meta models.Metadata) string {
	switch key {
	case "title":
		return "title: " + quote(meta.Title)
	case "date":
		return "date: " + meta.Date
	case "description":
		return "description: " + quote(meta.Description)
	case "tags":
		tags := meta.Tags
		if tags == nil {
			tags = []string{}
		}
		return "tags: " + quote(tags)
	case "contributors":
		return "contributors: []"
	}
	return key + ": "
}

// quote renders v as JSON, which is also a valid YAML flow scalar or list.
func quote(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return `""`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// isSpace matches what a leading-whitespace trim should drop, including a BOM.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// FrontMatter is the subset of a migrated post's metadata the audit inspects.
type FrontMatter struct {
	Title        string   `yaml:"title"`
	Date         any      `yaml:"date"`
	Description  string   `yaml:"description"`
	Tags         []string `yaml:"tags"`
	Draft        bool     `yaml:"draft"`
	Contributors []string `yaml:"contributors"`
	CanonicalURL string   `yaml:"canonicalURL"`
}

// Decode parses the front matter of content into a FrontMatter and returns
// the body that follows it. Content without front matter yields
// apperr.ErrNoFrontMatter.
func Decode(content []byte) (*FrontMatter, []byte, error) {
	var fm FrontMatter
	body, err := frontmatter.MustParse(bytes.NewReader(content), &fm)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return nil, nil, apperr.ErrNoFrontMatter
		}
		return nil, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return &fm, body, nil
}
