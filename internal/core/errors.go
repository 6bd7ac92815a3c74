// Package core defines the fundamental types and errors for ReBin Pro.
package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across stores and services.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrPolicyNotFound      = errors.New("policy not found")
	ErrPreferencesNotFound = errors.New("preferences not found")
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrAlreadyJoined       = errors.New("already joined challenge")
	ErrEventNotFound       = errors.New("sort event not found")
)

// FaultKind classifies a failure for HTTP status mapping. The string values
// appear verbatim in error response bodies.
type FaultKind string

const (
	FaultValidation         FaultKind = "validation_error"
	FaultServiceUnavailable FaultKind = "service_unavailable"
	FaultCV                 FaultKind = "cv_error"
	FaultReasoning          FaultKind = "reasoning_error"
	FaultConfig             FaultKind = "config_error"
	FaultRateLimit          FaultKind = "rate_limit"
	FaultParse              FaultKind = "parse_error"
	FaultServer             FaultKind = "server_error"
)

// Fault is a classified failure raised at a gateway boundary. Transport and
// parsing errors are always wrapped into a Fault before they reach the API
// surface.
type Fault struct {
	Kind    FaultKind
	Message string
	Err     error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

// NewFault creates a classified failure.
func NewFault(kind FaultKind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

// WrapFault classifies an underlying error.
func WrapFault(kind FaultKind, message string, err error) *Fault {
	return &Fault{Kind: kind, Message: message, Err: err}
}

// Faultf creates a classified failure with a formatted message.
func Faultf(kind FaultKind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the fault kind from an error chain, defaulting to
// server_error for unclassified failures.
func KindOf(err error) FaultKind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return FaultServer
}

// MessageOf extracts the client-facing message from an error chain.
func MessageOf(err error) string {
	var f *Fault
	if errors.As(err, &f) {
		return f.Message
	}
	return "internal server error"
}
