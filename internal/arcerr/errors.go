// Package arcerr holds the error kinds shared by the archive decoders.
package arcerr

import "errors"

var (
	// ErrInvalidFormat is returned when a magic or structural marker does not match.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrUnsupportedVersion is returned for recognized files with an unhandled version field.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrUnresolvedReference marks a recoverable lookup miss. It is only ever
	// attached to warnings, never returned from a decode.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrMalformedPayload is returned when record contents cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrMissingCompanionFile is returned when a sibling data file cannot be found.
	ErrMissingCompanionFile = errors.New("missing companion file")
)
