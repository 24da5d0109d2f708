package models

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Query request bounds.
const (
	DefaultQueryLimit = 5
	MaxQueryLimit     = 20
	MaxQueryLength    = 1000
)

// ProcessPDFRequest asks the service to ingest the document at URL.
type ProcessPDFRequest struct {
	URL string `json:"url"`
}

// Validate checks that URL is an absolute http(s) URL.
func (r *ProcessPDFRequest) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	if r.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("%w: invalid url: %v", ErrInvalidRequest, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http(s) URL", ErrInvalidRequest)
	}
	return nil
}

// QueryRequest is a natural-language question against the ingested documents.
// A nil Limit means DefaultQueryLimit.
type QueryRequest struct {
	Query string `json:"query"`
	Limit *int   `json:"limit,omitempty"`
}

// Validate checks query length and limit bounds.
func (r *QueryRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidRequest)
	}
	if n := utf8.RuneCountInString(r.Query); n > MaxQueryLength {
		return fmt.Errorf("%w: query is %d characters, max %d", ErrInvalidRequest, n, MaxQueryLength)
	}
	if r.Limit != nil && (*r.Limit < 1 || *r.Limit > MaxQueryLimit) {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidRequest, MaxQueryLimit)
	}
	return nil
}

// EffectiveLimit returns Limit, or DefaultQueryLimit when unset.
func (r *QueryRequest) EffectiveLimit() int {
	if r.Limit == nil {
		return DefaultQueryLimit
	}
	return *r.Limit
}
