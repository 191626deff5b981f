package remote

import (
	"encoding/json"
	"errors"
	"strings"
)

// Error is the only failure kind returned by [Client]. Authentication,
// validation, and server faults all collapse into it; callers display
// Message and otherwise only distinguish success from failure.
type Error struct {
	// Op names the remote operation, e.g. "list tours".
	Op string

	// Status is the HTTP status code, or 0 when no response was received.
	Status int

	// Message is the human-readable failure text.
	Message string

	// Err is the underlying transport or decode error, if any.
	Err error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Message returns the human-readable text of err. For errors that are not
// (or do not wrap) *Error, the plain error text is returned.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}

func transportError(op operation, err error) *Error {
	msg := err.Error()
	if msg == "" {
		msg = op.fallback
	}
	return &Error{Op: op.name, Message: msg, Err: err}
}

// messageFromBody extracts a failure message from a response body. A JSON
// body contributes its "message" field, falling back to the operation default
// when that field is missing; a body that is not JSON is used verbatim; an
// empty body yields the default.
func messageFromBody(body []byte, fallback string) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return fallback
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		return fallback
	}
	return text
}
