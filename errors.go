package bson

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTruncated indicates that a buffer ended before all bytes declared
	// by the format were available.
	ErrTruncated = errors.New("bson: truncated data")

	// ErrInvalidLength indicates a length field that disagrees with the
	// bytes actually present (negative, too small, or past the end of the
	// buffer).
	ErrInvalidLength = errors.New("bson: length field inconsistent with buffer")

	// ErrMissingTerminator indicates a document or cstring whose trailing
	// 0x00 byte is absent.
	ErrMissingTerminator = errors.New("bson: missing null terminator")

	// ErrInvalidUTF8 indicates a key or string value whose bytes are not
	// valid UTF-8.
	ErrInvalidUTF8 = errors.New("bson: invalid UTF-8")

	// ErrInvalidType indicates an unrecognized element type tag, or a value
	// accessed as a BSON type it does not have.
	ErrInvalidType = errors.New("bson: unexpected type")

	// ErrNullByteInKey indicates an attempt to encode a key or cstring
	// containing an embedded 0x00 byte. This is caught before any bytes are
	// written; a builder never emits a malformed buffer.
	ErrNullByteInKey = errors.New("bson: key contains null byte")

	// ErrUnsupportedValue indicates a Go value that has no BSON
	// representation.
	ErrUnsupportedValue = errors.New("bson: unsupported value")

	// ErrLossyConversion indicates a numeric, date, or timestamp conversion
	// that would not be exact. Values are never silently coerced.
	ErrLossyConversion = errors.New("bson: conversion would lose precision")

	// ErrSubtypeMismatch indicates a binary value whose subtype does not
	// match the representation requested by the caller.
	ErrSubtypeMismatch = errors.New("bson: binary subtype mismatch")

	// ErrTrailingBytes indicates bytes inside a document or array not
	// covered by its declared length. Leftover bytes are a format error,
	// never ignored.
	ErrTrailingBytes = errors.New("bson: trailing bytes after value")

	// ErrTooDeep indicates a value nested beyond the fixed ceiling of
	// maxNestingDepth documents and arrays.
	ErrTooDeep = errors.New("bson: nesting exceeds maximum depth")
)

// maxNestingDepth bounds recursion on both encode and decode so that
// adversarially nested input cannot grow the stack without limit.
const maxNestingDepth = 200

// offsetError decorates a malformed-input error with the byte offset at
// which it was detected.
func offsetError(err error, off int) error {
	return fmt.Errorf("%w (at offset %d)", err, off)
}

// errTypeMismatch reports a value accessed as the wrong BSON type.
func errTypeMismatch(want, got Type) error {
	return fmt.Errorf("%w: value is %s, not %s", ErrInvalidType, got, want)
}

// DecodeError is returned by Unmarshal when a value deep inside a nested
// structure cannot be decoded. Path locates the failing field with
// dot-separated field names and bracket-indexed array elements, e.g.
// "two.value" or "items[3].id".
type DecodeError struct {
	Path []string
	Err  error
}

func (e *DecodeError) Error() string {
	if len(e.Path) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.PathString(), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// PathString renders the path in its fully-qualified form.
func (e *DecodeError) PathString() string {
	var sb strings.Builder
	for i, p := range e.Path {
		if i > 0 && !strings.HasPrefix(p, "[") {
			sb.WriteByte('.')
		}
		sb.WriteString(p)
	}
	return sb.String()
}
