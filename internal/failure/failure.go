// Package failure classifies errors surfaced by the client flow into the three
// kinds the session and run controllers react to.
package failure

import (
	"errors"
	"fmt"
)

// Kind is the category of a failure.
type Kind int

const (
	// Transient covers network failures, timeouts and unexpected responses.
	// It is always assumed recoverable and never clears persisted credentials.
	Transient Kind = iota
	// Unauthorized is a server-confirmed rejection of a handle or credential.
	Unauthorized
	// Validation is locally detected bad input. It never reaches the network.
	Validation
)

func (k Kind) String() string {
	switch k {
	case Unauthorized:
		return "unauthorized"
	case Validation:
		return "validation"
	default:
		return "transient"
	}
}

// GenericDetail is shown when a failure carries no server-provided text.
const GenericDetail = "request failed"

// Error is a classified failure with a human-readable detail.
type Error struct {
	Kind   Kind
	Status int // HTTP status when the failure came from a response, else 0
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidation returns a Validation failure with the given message.
func NewValidation(detail string) *Error {
	return &Error{Kind: Validation, Detail: detail}
}

// NewUnauthorized returns an Unauthorized failure carrying the server detail.
func NewUnauthorized(status int, detail string) *Error {
	if detail == "" {
		detail = "unauthorized"
	}
	return &Error{Kind: Unauthorized, Status: status, Detail: detail}
}

// NewTransient returns a Transient failure. An empty detail falls back to
// GenericDetail.
func NewTransient(status int, detail string, err error) *Error {
	if detail == "" {
		detail = GenericDetail
	}
	return &Error{Kind: Transient, Status: status, Detail: detail, Err: err}
}

// KindOf reports the kind of err. Unclassified errors are Transient.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Transient
}

// IsUnauthorized reports whether err is a confirmed Unauthorized failure.
func IsUnauthorized(err error) bool {
	return err != nil && KindOf(err) == Unauthorized
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	return err != nil && KindOf(err) == Validation
}

// Detail returns the text that should be shown to the user for err.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Detail != "" {
		return fe.Detail
	}
	return GenericDetail
}
