// Package apperrors defines the error kinds the API reports to clients.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInput
	KindAccess
	KindAuth
)

// Name is the value of the "name" field in the error envelope.
func (k Kind) Name() string {
	switch k {
	case KindInput:
		return "InputError"
	case KindAccess:
		return "AccessError"
	case KindAuth:
		return "AuthError"
	default:
		return "ServerError"
	}
}

func (k Kind) Status() int {
	switch k {
	case KindInput:
		return http.StatusBadRequest
	case KindAccess:
		return http.StatusForbidden
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a client-safe message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Name(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Name(), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Input(format string, args ...any) error {
	return &Error{Kind: KindInput, Message: fmt.Sprintf(format, args...)}
}

func Access(format string, args ...any) error {
	return &Error{Kind: KindAccess, Message: fmt.Sprintf(format, args...)}
}

func Auth(format string, args ...any) error {
	return &Error{Kind: KindAuth, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps err; the message shown to clients stays generic.
func Internal(err error, format string, args ...any) error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// NotFound is an InputError naming the missing resource.
func NotFound(resource string) error {
	return &Error{Kind: KindInput, Message: resource + " not found"}
}

// KindOf returns the kind of the first *Error in err's chain. Errors that
// are not *Error count as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Envelope is the JSON body written for every failed request.
type Envelope struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ToEnvelope renders err for a client. Internal errors never expose their cause.
func ToEnvelope(err error) Envelope {
	var e *Error
	if !errors.As(err, &e) {
		return Envelope{Code: http.StatusInternalServerError, Name: KindInternal.Name(), Message: "internal server error"}
	}
	msg := e.Message
	if e.Kind == KindInternal {
		msg = "internal server error"
	}
	return Envelope{Code: e.Kind.Status(), Name: e.Kind.Name(), Message: msg}
}
