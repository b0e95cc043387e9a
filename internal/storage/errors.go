// Package storage declares errors shared by the persistence implementations.
package storage

import "errors"

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")
