package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidOptions is returned when a job's editing directives fail validation.
	ErrInvalidOptions = errors.New("invalid options")
	// ErrInvalidState is returned when a lifecycle transition is requested
	// from a status that does not permit it.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidRatio is returned for split or aspect ratios that do not
	// parse as W:H with positive integers.
	ErrInvalidRatio = errors.New("invalid ratio")
	// ErrUnsupportedLayout is returned when a composition request carries
	// more sources than the planner supports.
	ErrUnsupportedLayout = errors.New("unsupported layout")
)
