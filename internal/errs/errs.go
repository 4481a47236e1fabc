// Package errs defines the small closed error taxonomy shared by saytap components.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the runtime reacts to it.
type Kind string

const (
	// KindModelLoad is fatal: the service never starts listening.
	KindModelLoad Kind = "model_load"
	// KindConfigLoad is reported as a warning; defaults stay active.
	KindConfigLoad Kind = "config_load"
	// KindRegionNotFound is a silent miss for the command that triggered it.
	KindRegionNotFound Kind = "region_not_found"
	// KindInjection is logged and swallowed; no retry.
	KindInjection Kind = "injection"
)

// Error carries a Kind plus the failing operation.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap attaches kind/op context to err. A nil err yields nil; an err that
// already carries a Kind is returned unchanged.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return err
	}

	return &Error{Kind: kind, Op: op, Message: message, Cause: err}
}

// New builds a causeless error of the given kind.
func New(kind Kind, op, message string) error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// IsKind reports whether the first typed error in err's chain has kind.
func IsKind(err error, kind Kind) bool {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first typed error in err's chain, or "".
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return ""
}
