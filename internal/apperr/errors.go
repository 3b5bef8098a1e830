// Package apperr defines the error kinds surfaced by the masking pipeline.
//
// Each stage wraps its failures in an *Error carrying one of the codes below so
// that collaborators (CLI exit codes, HTTP status mapping) can classify a
// failure with CodeOf without depending on the stage that produced it.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies the kind of pipeline failure.
type Code string

const (
	// CodeInvalidImage marks malformed, empty or undecodable input.
	CodeInvalidImage Code = "INVALID_IMAGE"

	// CodeOCREngine marks an unavailable or failing OCR engine.
	CodeOCREngine Code = "OCR_ENGINE_ERROR"

	// CodeInvalidRegion marks a malformed mask region. It indicates a bug in
	// match-to-region mapping rather than bad input.
	CodeInvalidRegion Code = "INVALID_REGION"
)

// Error is a classified pipeline failure.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, &apperr.Error{Code: apperr.CodeOCREngine}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == "" && t.Cause == nil
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// InvalidImage reports unusable input image data.
func InvalidImage(message string, cause error) *Error {
	return &Error{Code: CodeInvalidImage, Message: message, Cause: cause}
}

// OCREngine reports an OCR engine failure.
func OCREngine(message string, cause error) *Error {
	return &Error{Code: CodeOCREngine, Message: message, Cause: cause}
}

// InvalidRegion reports a malformed mask region.
func InvalidRegion(message string) *Error {
	return &Error{Code: CodeInvalidRegion, Message: message}
}
