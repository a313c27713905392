package model

import "errors"

// Common errors used across the application
var (
	// Connection errors
	ErrDuplicateConnection = errors.New("socket is already registered")
	ErrUnknownSocket       = errors.New("unknown socket")
	ErrUnknownClient       = errors.New("unknown client")
	ErrUnknownUser         = errors.New("unknown user")

	// Routing errors
	ErrMalformedEnvelope     = errors.New("malformed envelope")
	ErrUnauthorizedComponent = errors.New("component requires authentication")
	ErrUnknownComponent      = errors.New("unknown component")
	ErrHandlerFailure        = errors.New("component handler failed")
	ErrUnknownAction         = errors.New("unknown action")

	// Object store errors
	ErrAccountNotFound      = errors.New("account not found")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrClientConfigNotFound = errors.New("client config not found")
)
