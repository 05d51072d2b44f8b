package iod

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedLine matches every *MalformedLineError via errors.Is.
	ErrMalformedLine = errors.New("malformed IOD line")

	// ErrConversionUnimplemented is returned when equatorial coordinates are
	// requested from an azimuth/elevation observation (angle formats 4-6).
	ErrConversionUnimplemented = errors.New("az/el to ra/dec conversion not implemented")

	// ErrNoAngles is returned when equatorial coordinates are requested for
	// an unrecognized angle format.
	ErrNoAngles = errors.New("no angles decoded for angle format")
)

// MalformedLineError reports a line that could not be tokenized or whose
// angle digits could not be decoded.
type MalformedLineError struct {
	Line  int    // 0-based line index in the source
	Field string // schema field that failed
	Err   error
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("line %d: field %s: %v", e.Line, e.Field, e.Err)
}

func (e *MalformedLineError) Unwrap() error {
	return e.Err
}

func (e *MalformedLineError) Is(target error) bool {
	return target == ErrMalformedLine
}

func errShortLine(n int) error {
	return fmt.Errorf("line has %d characters, need at least %d", n, MinLineWidth)
}
