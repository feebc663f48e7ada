package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the reportable failure category surfaced to the boundary.
type ErrorKind string

const (
	KindUnsupportedBank ErrorKind = "unsupported_bank"
	KindWrongFileType   ErrorKind = "wrong_file_type"
	KindFormatMismatch  ErrorKind = "format_mismatch"
	KindMalformedInput  ErrorKind = "malformed_input"
	KindEmptyInput      ErrorKind = "empty_input"
	KindArtifactExpired ErrorKind = "artifact_expired"
	KindInternal        ErrorKind = "internal"
)

// Error is a processing failure of a known kind.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrFormatMismatch)
// works regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnsupportedBank = &Error{Kind: KindUnsupportedBank}
	ErrWrongFileType   = &Error{Kind: KindWrongFileType}
	ErrFormatMismatch  = &Error{Kind: KindFormatMismatch}
	ErrMalformedInput  = &Error{Kind: KindMalformedInput}
	ErrEmptyInput      = &Error{Kind: KindEmptyInput}
	ErrArtifactExpired = &Error{Kind: KindArtifactExpired}
)

// Errorf builds an *Error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to a lower-level error. A nil err stays nil and an
// error that already carries a kind keeps it.
func Wrap(kind ErrorKind, err error, msg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind carried by err, KindInternal for foreign errors
// and "" for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
