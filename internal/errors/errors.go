// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors classifies the failures of graph construction and
// initialization.  Per packet conditions never become errors; they are
// counted where they happen.
package errors

import (
	"errors"
	"fmt"
)

// Kind defines the category of error.
type Kind int

const (
	KindUnknown Kind = iota
	// Invalid or missing options, bad connections, duplicate device bindings.
	KindConfig
	// A single packet was discarded.
	KindDrop
	// A requested device does not exist (yet).
	KindAbsent
	// A required low level resource could not be obtained.
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration"
	case KindDrop:
		return "drop"
	case KindAbsent:
		return "absent"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Error is a kinded error optionally attributed to a graph element.
type Error struct {
	Kind       Kind
	Element    string
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	s := e.Message
	switch {
	case e.Underlying == nil:
	case s == "":
		s = e.Underlying.Error()
	default:
		s = fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	if e.Element != "" {
		s = e.Element + ": " + s
	}
	return s
}

func (e *Error) Unwrap() error { return e.Underlying }

// New creates a new Error of the specified kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Errorf creates a new Error of the specified kind with a formatted message.
func Errorf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error as a new Error of the specified kind.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Underlying: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Underlying: err}
}

// WithElement attributes err to the named element.  Errors that are not
// kinded are wrapped as configuration errors.
func WithElement(err error, name string) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok && e.Element == "" {
		x := *e
		x.Element = name
		return &x
	}
	return &Error{Kind: GetKind(err), Element: name, Underlying: err}
}

// GetKind returns the Kind of err, or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether any error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool { return err != nil && GetKind(err) == kind }

func Is(err, target error) bool             { return errors.Is(err, target) }
func As(err error, target interface{}) bool { return errors.As(err, target) }
