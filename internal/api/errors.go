package api

import (
	"errors"
	"fmt"
	"strings"
)

// StatusError reports a non-2xx response. All such responses are failures; callers
// only look at StatusCode to pick a message.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	// RequestID is the X-Request-Id sent with the failed call.
	RequestID string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	if b := strings.TrimSpace(e.Body); b != "" {
		msg += ": " + b
	}
	return msg
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// RequestID returns the request id carried by a StatusError in err's chain.
func RequestID(err error) (string, bool) {
	var se *StatusError
	if errors.As(err, &se) && se.RequestID != "" {
		return se.RequestID, true
	}
	return "", false
}

// IsNotFound is IsStatus(err, 404).
func IsNotFound(err error) bool {
	return IsStatus(err, 404)
}
