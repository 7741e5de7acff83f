// Package models defines the domain types for the post migration.
package models

import "time"

// Timestamps holds the file-system times of a source document.
// A zero value means the platform could not report that time.
type Timestamps struct {
	Created  time.Time
	Modified time.Time
}

// SourceDocument is a markdown file discovered under the source root.
type SourceDocument struct {
	Path       string // absolute
	RelPath    string // relative to the source root
	Content    []byte
	Timestamps Timestamps
}

// Metadata is the front matter inferred from a document's name, location,
// content and timestamps.
type Metadata struct {
	Title       string
	Date        string
	Description string
	Tags        []string
	Slug        string
}

// Destination describes where a source document was (or would be) written.
type Destination struct {
	Source   string
	Slug     string
	Path     string // relative to the working directory, as configured
	Checksum string
}
