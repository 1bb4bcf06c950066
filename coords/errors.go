package coords

import (
	"fmt"

	"github.com/arloliu/geostream/errs"
)

// MalformedCoordinateError reports coordinate text that is not a sequence of
// complete numeric tuples.
type MalformedCoordinateError struct {
	// Token is the offending token, empty for an incomplete tuple.
	Token string
	// Offset is the byte offset of the token in its chunk.
	Offset int
	// Reason describes the failure.
	Reason string
}

func (e *MalformedCoordinateError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("%s: %s", errs.ErrMalformedCoordinate, e.Reason)
	}

	return fmt.Sprintf("%s: %q at offset %d: %s", errs.ErrMalformedCoordinate, e.Token, e.Offset, e.Reason)
}

func (e *MalformedCoordinateError) Unwrap() error {
	return errs.ErrMalformedCoordinate
}
