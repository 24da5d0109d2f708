package models

import "errors"

// Error kinds shared by the pipeline. Collaborator failures are wrapped with one of these
// alongside the underlying cause, so callers can check the kind with errors.Is and still
// reach the cause with errors.As.
var (
	// ErrConfiguration reports invalid settings, e.g. chunk overlap >= chunk size.
	ErrConfiguration = errors.New("configuration error")
	// ErrExtraction reports a source document that is unreadable or unreachable.
	ErrExtraction = errors.New("extraction error")
	// ErrEmbedding reports an embedding provider failure.
	ErrEmbedding = errors.New("embedding error")
	// ErrEmptyResponse reports an agent role that produced no usable response.
	ErrEmptyResponse = errors.New("empty response")
	// ErrStore reports a persistence or search failure at the vector store boundary.
	ErrStore = errors.New("store error")
	// ErrInvalidRequest reports an API request that fails validation.
	ErrInvalidRequest = errors.New("invalid request")
)
