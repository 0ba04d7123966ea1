package provider

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when no adapter is registered for a
// configuration's provider kind.
var ErrUnknownKind = errors.New("unknown provider kind")

// StatusError is a non-2xx HTTP response from a provider backend. The
// retry executor uses the status code to decide whether the failure is
// transient.
type StatusError struct {
	Kind       Kind
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("%s api error (status %d): %s", e.Kind, e.StatusCode, body)
}

// Transient reports whether the status indicates a retryable condition:
// rate limiting or a server-side failure.
func (e *StatusError) Transient() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
