// Package errors provides error handling for GraphWalker.
//
// It re-exports github.com/cockroachdb/errors so that every package wraps,
// annotates and inspects errors the same way:
//
//	if err := st.DeleteNode(ctx, id); err != nil {
//	    return errors.Wrapf(err, "delete node %d", id)
//	}
//
//	if errors.Is(err, errors.ErrNotFound) {
//	    // render 404
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Sentinel errors shared across packages. Wrap them to add context while
// keeping errors.Is working.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = New("not found")

	// ErrInvalid indicates input failed validation (blank name, bad reference).
	ErrInvalid = New("invalid")

	// ErrConflict indicates the change would violate a uniqueness rule.
	ErrConflict = New("conflict")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...interface{}) error {
	return Wrapf(ErrNotFound, format, args...)
}

// Invalidf wraps ErrInvalid with a formatted message.
func Invalidf(format string, args ...interface{}) error {
	return Wrapf(ErrInvalid, format, args...)
}

// Conflictf wraps ErrConflict with a formatted message.
func Conflictf(format string, args ...interface{}) error {
	return Wrapf(ErrConflict, format, args...)
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalid reports whether err is or wraps ErrInvalid.
func IsInvalid(err error) bool {
	return err != nil && Is(err, ErrInvalid)
}

// IsConflict reports whether err is or wraps ErrConflict.
func IsConflict(err error) bool {
	return err != nil && Is(err, ErrConflict)
}
