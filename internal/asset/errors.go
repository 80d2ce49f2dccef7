package asset

import (
	"errors"
	"fmt"
)

// Kind classifies why a retrieval or assignment produced no data.
type Kind string

const (
	ConfigurationError Kind = "CONFIGURATION"
	NotFoundError      Kind = "NOT_FOUND"
	ProviderError      Kind = "PROVIDER"
	ParseError         Kind = "PARSE"
	ValidationError    Kind = "VALIDATION"
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrConfiguration = &Error{Kind: ConfigurationError}
	ErrNotFound      = &Error{Kind: NotFoundError}
	ErrProvider      = &Error{Kind: ProviderError}
	ErrParse         = &Error{Kind: ParseError}
	ErrValidation    = &Error{Kind: ValidationError}
)

// Error is returned by Asset operations that leave the dataset untouched.
type Error struct {
	Kind    Kind
	Asset   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Kind, e.Asset, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Asset, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind carried by err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, asset, msg string, err error) *Error {
	return &Error{Kind: kind, Asset: asset, Message: msg, Err: err}
}
