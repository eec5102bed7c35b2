package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError means we never got an HTTP response from the mail-capturing
// service, e.g., because it isn't running or the base URL points somewhere
// else.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf(
		"can't reach the mail-capturing service (%v %v): %v",
		e.Method,
		e.URL,
		e.Err,
	)
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// RequestError means the mail-capturing service answered with a non-2xx
// status code. MailCatcher returns a 404 both for unknown message IDs and for
// message parts (plain or HTML) that don't exist, so callers often need to
// inspect StatusCode.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *RequestError) Error() string {
	return fmt.Sprintf(
		"got non-2xx status code of %v %v from the mail-capturing service (%v %v)",
		e.StatusCode,
		http.StatusText(e.StatusCode),
		e.Method,
		e.URL,
	)
}

// IsNotFound reports whether err is (or wraps) a RequestError with a 404
// status code.
func IsNotFound(err error) bool {
	var re *RequestError
	if errors.As(err, &re) {
		return re.StatusCode == http.StatusNotFound
	}
	return false
}
