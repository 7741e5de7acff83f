package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrSourceNotFound = errors.New("source folder not found")
	ErrNoFrontMatter  = errors.New("no front matter")
	ErrBudgetFailed   = errors.New("content budget failed")
)
