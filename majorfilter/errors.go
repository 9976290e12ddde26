package majorfilter

import "errors"

var (
	// ErrNoConditions is returned when a condition file yields no rules.
	ErrNoConditions = errors.New("no conditions loaded")
	// ErrEmptyRequirements is returned when a requirements file parses to an
	// empty catalog.
	ErrEmptyRequirements = errors.New("requirements catalog is empty")
	// ErrMissingHeader is returned when a condition file lacks a required
	// column.
	ErrMissingHeader = errors.New("missing required column")
)
