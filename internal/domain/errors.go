package domain

import "errors"

var (
	ErrInvalidRegion = errors.New("south-west latitude is above north-east latitude")
	ErrInvalidBounds = errors.New("invalid bounds string")
)

var (
	ErrEmptyTerm     = errors.New("empty search term")
	ErrInvalidLimit  = errors.New("page limit must be at least 2")
	ErrInvalidOffset = errors.New("offset must be non-negative")
)
