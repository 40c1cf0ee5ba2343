package convert

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when a conversion is requested with no images.
var ErrEmptyInput = errors.New("convert: no images")

// EncodingError reports that the document could not be produced.
// Image is the offending input when the failure is tied to one.
type EncodingError struct {
	Image string
	Err   error
}

func (e *EncodingError) Error() string {
	if e.Image != "" {
		return fmt.Sprintf("convert: encode %s: %v", e.Image, e.Err)
	}
	return fmt.Sprintf("convert: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Code returns a stable error code for logs.
func (e *EncodingError) Code() string { return "convert_encode" }
