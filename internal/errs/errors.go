package errs

import (
	"errors"
	"fmt"
)

// APIError is an application-level rejection from the backend: any non-2xx
// status other than 401/403. Message carries the server-supplied error text
// when present, else the transport status text.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// ValidationError is a client-side, field-level failure raised before any
// network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAuthRejected reports whether err stems from a 401/403 response.
func IsAuthRejected(err error) bool {
	return errors.Is(err, ErrAuthRejected)
}

// IsNetwork reports whether err is a transport-level failure without a response.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// UserMessage extracts the text suitable for showing to the user.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if errors.Is(err, ErrNetwork) {
		return "network error, please try again"
	}
	return err.Error()
}
