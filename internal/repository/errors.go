package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique value already exists.
var ErrDuplicate = errors.New("duplicate")
