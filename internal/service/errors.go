package service

import "errors"

var (
	// ErrValidation is returned when a prospect is missing required fields.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidStatus is returned for a status outside the five known values.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidInput is returned when an assistant request is incomplete.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidSession is returned for unknown session tokens.
	ErrInvalidSession = errors.New("invalid_session")
	// ErrSessionExpired is returned for sessions past their expiry.
	ErrSessionExpired = errors.New("session_expired")
)
