package lexcorpus

import (
	"errors"
	"fmt"
)

// Application error codes. These map domain failures onto machine-readable
// categories so callers can branch on ErrorCode instead of matching message
// strings.
const (
	EINTERNAL    = "internal"        // unexpected internal failure
	EINVALID     = "invalid"         // validation failed
	ENOTFOUND    = "not_found"       // document or resource does not exist
	EUNAVAILABLE = "unavailable"     // retries exhausted against a source
	EPARSE       = "parse"           // response body malformed or truncated
	ENOFORMAT    = "no_format"       // no extractable rendition for a document
	ESHORTTEXT   = "short_text"      // extracted text below the minimum-content threshold
)

// Error represents an application error with a machine-readable code and a
// human-readable message.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("lexcorpus error: code=%s message=%s", e.Code, e.Message)
}

// Errorf constructs an Error with the given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode unwraps err and returns its application error code. Non-domain
// errors report EINTERNAL; a nil error reports the empty string.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps err and returns its human-readable message. Non-domain
// errors report a generic message so internal details do not leak into
// user-facing output.
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}
