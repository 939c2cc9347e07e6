package score

import "errors"

var (
	// ErrInvalidInput is returned for malformed shapes or arguments
	// (too few columns, bad threshold ordering, non-positive exponent).
	ErrInvalidInput = errors.New("invalid input")

	// ErrAllMissing is returned when a required column holds no values.
	ErrAllMissing = errors.New("all values missing")

	// ErrEmptySubset is returned when a criterion matches no ensemble output.
	ErrEmptySubset = errors.New("criterion matches no data")

	// ErrShape is returned when run partitions do not line up.
	ErrShape = errors.New("misaligned shape")

	// ErrAlignment is returned when a run's time axis differs from the
	// criterion years. It wraps ErrShape.
	ErrAlignment = &alignmentError{}

	// ErrDegenerateWeights is returned when the posterior mass sums to zero.
	ErrDegenerateWeights = errors.New("degenerate weights")

	// ErrType is returned when a collaborator of the wrong kind is passed in.
	ErrType = errors.New("wrong collaborator type")
)

type alignmentError struct{}

func (*alignmentError) Error() string { return "time axis not aligned with criterion years" }

func (*alignmentError) Unwrap() error { return ErrShape }
