package cityhex

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("place not found by geocoding service")

	// ErrUnsupportedBoundary is returned when the resolver hands back a boundary
	// kind the service cannot fill.
	ErrUnsupportedBoundary = errors.New("unsupported boundary geometry")
)
