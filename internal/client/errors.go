package client

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCircuitOpen is returned when the upstream breaker rejects a call without sending it.
var ErrCircuitOpen = errors.New("circuit breaker open")

// maxErrorBody bounds how much of an upstream body is echoed in Error().
const maxErrorBody = 512

// FetchError is a non-2xx upstream response. Status and Body are carried verbatim.
type FetchError struct {
	Service string
	URL     string
	Status  int
	Body    string
}

func (e *FetchError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return fmt.Sprintf("%s: GET %s: HTTP %d: %s", e.Service, e.URL, e.Status, body)
}

// ParseError is an upstream payload that is malformed or lacks an expected field.
type ParseError struct {
	Service string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse response: %v", e.Service, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parsef builds a ParseError for service with a formatted cause.
func Parsef(service, format string, args ...any) *ParseError {
	return &ParseError{Service: service, Err: fmt.Errorf(format, args...)}
}
