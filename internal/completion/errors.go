package completion

import (
	"errors"
	"fmt"
)

// ErrCompletion matches every completion failure through errors.Is.
var ErrCompletion = errors.New("completion failed")

// ServiceError is a non-success reply from the completion service.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("completion service returned %d: %s", e.StatusCode, e.Message)
}

func (e *ServiceError) Is(target error) bool { return target == ErrCompletion }

// MalformedResponseError means the reply could not be parsed into the shape
// the tool expects.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed completion response: %s: %v", e.Reason, e.Err)
	}
	return "malformed completion response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrCompletion }

// TransportError means the request never produced a reply: connection
// failure, timeout or cancellation.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "completion request: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrCompletion }

// UserMessage returns the service's own message when err carries one.
func UserMessage(err error) (string, bool) {
	var serr *ServiceError
	if errors.As(err, &serr) && serr.Message != "" {
		return serr.Message, true
	}
	return "", false
}
