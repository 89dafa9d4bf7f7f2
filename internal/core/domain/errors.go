package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoContext indicates retrieval returned zero results for a
	// streaming answer. Callers map this to "no relevant material
	// found", not to a system error.
	ErrNoContext = errors.New("no relevant context found")

	// ErrProviderFailure indicates the embedding or generation provider
	// call failed. The underlying cause is carried in the wrapped message.
	ErrProviderFailure = errors.New("provider failure")

	// ErrStoreFailure indicates a chunk store write or search failed
	ErrStoreFailure = errors.New("store failure")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates the AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)
