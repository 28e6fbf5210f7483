package stream

import (
	"errors"
	"fmt"
)

// errStreamClosed is returned when the server ends the response body
var errStreamClosed = errors.New("listen stream closed by server")

// StatusError is returned for a non-200 listen response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("listen request failed with HTTP %d", e.Code)
	}
	return fmt.Sprintf("listen request failed with HTTP %d: %s", e.Code, e.Body)
}

// TargetRemovedError is returned when the server drops the watch target
type TargetRemovedError struct {
	Code    int
	Message string
}

func (e *TargetRemovedError) Error() string {
	if e.Message == "" {
		return "listen target removed by server"
	}
	return fmt.Sprintf("listen target removed by server: %s (code %d)", e.Message, e.Code)
}
