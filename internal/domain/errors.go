package domain

import (
	"errors"
	"fmt"
)

// ErrKind classifies failures raised by the resource clients and forms.
type ErrKind string

const (
	KindMissingParameter ErrKind = "missing_parameter"
	KindInvalidResponse  ErrKind = "invalid_response"
	KindInvalidParameter ErrKind = "invalid_parameter"
	KindValidation       ErrKind = "validation_failed"
	KindInvalidState     ErrKind = "invalid_state"
	KindUnauthenticated  ErrKind = "unauthenticated"
)

// Error is the typed { kind, details } failure surfaced to views.
// Meta carries optional machine readable context such as the offending field.
type Error struct {
	Kind    ErrKind
	Details string
	Meta    map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Details)
}

func New(kind ErrKind, details string) *Error {
	return &Error{Kind: kind, Details: details}
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsKind(err error, kind ErrKind) bool {
	return KindOf(err) == kind
}

func ErrMissingParameter(name string) *Error {
	e := New(KindMissingParameter, "Missing "+name)
	e.Meta = map[string]string{"field": name}
	return e
}

func ErrInvalidResponse(key string) *Error {
	e := New(KindInvalidResponse, fmt.Sprintf("Failed to fetch %s. Invalid response from the server.", key))
	e.Meta = map[string]string{"envelope": key}
	return e
}

func ErrInvalidParameter(details string) *Error {
	return New(KindInvalidParameter, details)
}

// ErrValidation reports form fields that failed their rules, keyed by JSON field name.
func ErrValidation(fields map[string]string) *Error {
	e := New(KindValidation, "validation failed")
	e.Meta = fields
	return e
}

func ErrInvalidState(details string) *Error {
	return New(KindInvalidState, details)
}

var ErrNoPrincipal = New(KindUnauthenticated, "no authenticated principal")
