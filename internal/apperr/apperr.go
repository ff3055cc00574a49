// Package apperr defines the closed set of failure kinds the data-access layer
// reports. Callers switch on Kind instead of probing concrete error types.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. The zero value is KindInternal.
type Kind uint8

const (
	// KindInternal covers every error that is not one of the business kinds below.
	KindInternal Kind = iota
	// KindNotFound means a referenced entity does not exist.
	KindNotFound
	// KindInvariant means a business rule was violated on write.
	KindInvariant
	// KindAuthorization means the caller lacks permission on an existing entity.
	KindAuthorization
	// KindAuthentication means credential verification failed.
	KindAuthentication
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvariant:
		return "invariant"
	case KindAuthorization:
		return "authorization"
	case KindAuthentication:
		return "authentication"
	default:
		return "internal"
	}
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so errors.Is(err, apperr.ErrNotFound) works for any
// NotFound error regardless of its message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrInvariant      = &Error{Kind: KindInvariant}
	ErrAuthorization  = &Error{Kind: KindAuthorization}
	ErrAuthentication = &Error{Kind: KindAuthentication}
)

func NotFound(msg string) error       { return &Error{Kind: KindNotFound, Message: msg} }
func Invariant(msg string) error      { return &Error{Kind: KindInvariant, Message: msg} }
func Authorization(msg string) error  { return &Error{Kind: KindAuthorization, Message: msg} }
func Authentication(msg string) error { return &Error{Kind: KindAuthentication, Message: msg} }

// Wrap classifies err under kind, keeping it as the cause.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the client-facing message of a classified error. Internal
// errors get a generic message so driver details do not leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal server error"
}
