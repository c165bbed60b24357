package multilu

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel error kinds from the error handling design. Callers should use
// errors.Is against these; call sites wrap them with pkgerrors.Wrapf to
// attach position context (step, supercolumn, row/col) without losing the
// sentinel identity.
var (
	// ErrOutOfMemory is returned when an allocation needed by the symbolic
	// or numeric phase fails.
	ErrOutOfMemory = errors.New("multilu: out of memory")

	// ErrMalformedInput is returned for an empty column, inconsistent CCS
	// arrays, a column order that is not a permutation, a threshold outside
	// (0, 1], a right-hand side of the wrong length, or a matrix type
	// outside the four declared MatrixType values.
	ErrMalformedInput = errors.New("multilu: malformed input")

	// ErrNumericFailure is returned when no acceptable pivot can be found
	// (a zero pivot below threshold) or a singular input defeats the
	// square-nonsingular assumption described in the design notes.
	ErrNumericFailure = errors.New("multilu: numeric failure")

	// ErrUnsupportedType is returned by entry points that require a dense
	// kernel backend not implemented by this core for the requested
	// scalar type.
	ErrUnsupportedType = errors.New("multilu: unsupported scalar type")

	// ErrInvalidFactor is returned by Solve when the blocked factor was
	// poisoned by an earlier invalid factor block.
	ErrInvalidFactor = errors.New("multilu: factor is invalid")
)

func wrapf(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrapf(err, format, args...)
}
