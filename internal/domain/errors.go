package domain

import "errors"

var (
	// ErrProfileNotFound signals a missing user preference profile.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrSessionNotFound signals a missing chat session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCatalogUnavailable signals that the restaurant collection failed to load.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrInvalidQuery signals a malformed filter query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidAction signals a malformed user action event.
	ErrInvalidAction = errors.New("invalid action")
	// ErrRateLimited signals a rate limit hit at the chat provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrChatProviderError signals a chat provider failure.
	ErrChatProviderError = errors.New("chat provider error")
)
