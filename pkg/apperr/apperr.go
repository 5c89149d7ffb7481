// Package apperr defines the error kinds shared by the registries and the
// transport layer. Domain packages wrap these kinds in their own sentinels so
// callers can branch with errors.Is on either the specific or the general error.
//
//	var ErrNotFound = fmt.Errorf("tenant %w", apperr.ErrNotFound)
//
//	if errors.Is(err, apperr.ErrNotFound) {
//	    // 404
//	}
package apperr

import "errors"

var (
	// ErrNotFound is returned when a referenced record is absent, or present
	// but not usable for the requested operation (e.g. inactive tenant).
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a create would duplicate a natural key.
	ErrConflict = errors.New("already exists")

	// ErrValidation is returned for malformed input at the boundary.
	ErrValidation = errors.New("validation failed")
)
