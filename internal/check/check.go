// Package check audits a migrated content tree against the site's SEO
// budget: every post needs a title and a meta description, and descriptions
// should fit in a search snippet.
package check

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/starford/blogmigrate/internal/apperr"
	"github.com/starford/blogmigrate/internal/infer"
	"github.com/starford/blogmigrate/internal/parser"
	"github.com/starford/blogmigrate/internal/storage"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warn"
)

// Rule identifiers.
const (
	RuleFrontMatter     = "front-matter"
	RuleDocumentTitle   = "document-title"
	RuleMetaDescription = "meta-description"
	RuleDescriptionLen  = "description-length"
)

// Finding is one audit result for one file.
type Finding struct {
	Path     string
	Rule     string
	Severity string
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s\t%s\t%s: %s", f.Severity, f.Rule, f.Path, f.Message)
}

// Report collects findings for a destination tree.
type Report struct {
	Checked  int
	Findings []Finding
}

// Failed reports whether any finding is an error.
func (r *Report) Failed() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Run audits <slug>/<fileName> for every directory directly under the
// destination root. Directories without that file are skipped.
func Run(dest storage.Provider, fileName string) (*Report, error) {
	dirs, err := dest.Dirs("")
	if err != nil {
		return nil, err
	}

	rep := &Report{}
	for _, dir := range dirs {
		rel := filepath.Join(dir, fileName)
		data, err := dest.Read(rel)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		rep.Checked++
		rep.Findings = append(rep.Findings, File(rel, data)...)
	}
	return rep, nil
}

// File audits the content of a single migrated post.
func File(path string, data []byte) []Finding {
	fm, _, err := parser.Decode(data)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, apperr.ErrNoFrontMatter) {
			msg = "missing front matter block"
		}
		return []Finding{{Path: path, Rule: RuleFrontMatter, Severity: SeverityError, Message: msg}}
	}

	var out []Finding
	if strings.TrimSpace(fm.Title) == "" {
		out = append(out, Finding{Path: path, Rule: RuleDocumentTitle, Severity: SeverityError, Message: "title is empty"})
	}
	desc := strings.TrimSpace(fm.Description)
	switch {
	case desc == "":
		out = append(out, Finding{Path: path, Rule: RuleMetaDescription, Severity: SeverityError, Message: "description is empty"})
	case utf8.RuneCountInString(desc) > infer.MaxDescription:
		out = append(out, Finding{
			Path:     path,
			Rule:     RuleDescriptionLen,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("description is %d characters, budget is %d", utf8.RuneCountInString(desc), infer.MaxDescription),
		})
	}
	return out
}
