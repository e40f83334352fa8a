package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind categorizes failures across ingestion and inference.
type ErrorKind string

const (
	ErrorKindRead    ErrorKind = "read_error"
	ErrorKindNetwork ErrorKind = "network_error"
	ErrorKindService ErrorKind = "service_error"
	ErrorKindUnknown ErrorKind = "unknown"
)

// Error carries a kind alongside the underlying cause. Message is for logs,
// not for users.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewReadError(message string, cause error) *Error {
	return &Error{Kind: ErrorKindRead, Message: message, Cause: cause}
}

func NewNetworkError(message string, cause error) *Error {
	return &Error{Kind: ErrorKindNetwork, Message: message, Cause: cause}
}

func NewServiceError(message string, cause error) *Error {
	return &Error{Kind: ErrorKindService, Message: message, Cause: cause}
}

func NewUnknownError(message string, cause error) *Error {
	return &Error{Kind: ErrorKindUnknown, Message: message, Cause: cause}
}

// KindOf classifies err. A *Error anywhere in the chain wins; otherwise
// context expiry and net.Error values are network errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if IsTransport(err) {
		return ErrorKindNetwork
	}
	return ErrorKindUnknown
}

// IsTransport reports whether err came from the transport rather than from a
// response the remote service produced.
func IsTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
