package httpx

import (
	"errors"
	"fmt"

	"dqx0.com/go/faras/httpx/internal/http1"
)

// Parse failures. A connection that fails to parse is closed without a
// response.
var (
	ErrMalformedStartLine = http1.ErrMalformedStartLine
	ErrMalformedHeader    = http1.ErrMalformedHeader
	ErrTruncatedHeaders   = http1.ErrTruncatedHeaders
	ErrIncompleteBody     = http1.ErrIncompleteBody
)

var ErrServerClosed = errors.New("httpx: server closed")

// StatusError carries an HTTP status out of a handler. Handlers return it
// for failures that map onto a response instead of a dropped connection.
type StatusError struct {
	Code   int
	Reason string
	Err    error
}

// Errorf builds a StatusError for code with the standard reason phrase.
func Errorf(code int, format string, args ...any) *StatusError {
	return &StatusError{Code: code, Reason: StatusText(code), Err: fmt.Errorf(format, args...)}
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("httpx: %d %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("httpx: %d %s: %v", e.Code, e.Reason, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// IsParseError reports whether err came from reading a malformed or
// truncated request.
func IsParseError(err error) bool {
	return errors.Is(err, ErrMalformedStartLine) ||
		errors.Is(err, ErrMalformedHeader) ||
		errors.Is(err, ErrTruncatedHeaders) ||
		errors.Is(err, ErrIncompleteBody)
}
