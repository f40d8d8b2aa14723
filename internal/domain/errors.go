package domain

import "errors"

// Domain errors represent error conditions in the rowship domain.
// Adapters wrap them with %w so callers can check with errors.Is.
var (
	// ErrAuth is returned when the remote login is refused or cannot be performed.
	ErrAuth = errors.New("rowship: authentication failed")

	// ErrTransport is returned when a request never produced an HTTP response.
	ErrTransport = errors.New("rowship: transport failure")

	// ErrProtocol is returned for non-200 replies to writes and for bodies that
	// cannot be decoded.
	ErrProtocol = errors.New("rowship: protocol error")

	// ErrRowRejected is returned when the remote service answered a create or
	// edit with success=false.
	ErrRowRejected = errors.New("rowship: row rejected")

	// ErrBadKey is returned when a row's primary key is missing or not integer-like.
	ErrBadKey = errors.New("rowship: bad primary key")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("rowship: invalid configuration")

	// ErrInvalidIdentifier is returned for table or column names that cannot be
	// safely quoted into SQL.
	ErrInvalidIdentifier = errors.New("rowship: invalid identifier")
)
