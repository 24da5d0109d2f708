package models

import (
	"errors"
	"strings"
	"testing"
)

func intPtr(n int) *int { return &n }

func TestQueryRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     *QueryRequest
		wantErr bool
	}{
		{"empty query", &QueryRequest{Query: ""}, true},
		{"blank query", &QueryRequest{Query: "   "}, true},
		{"valid query", &QueryRequest{Query: "what is this about?"}, false},
		{"max length", &QueryRequest{Query: strings.Repeat("a", MaxQueryLength)}, false},
		{"too long", &QueryRequest{Query: strings.Repeat("a", MaxQueryLength+1)}, true},
		{"limit zero", &QueryRequest{Query: "x", Limit: intPtr(0)}, true},
		{"limit at max", &QueryRequest{Query: "x", Limit: intPtr(MaxQueryLimit)}, false},
		{"limit above max", &QueryRequest{Query: "x", Limit: intPtr(MaxQueryLimit + 1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestQueryRequest_EffectiveLimit(t *testing.T) {
	if got := (&QueryRequest{Query: "x"}).EffectiveLimit(); got != DefaultQueryLimit {
		t.Errorf("default limit = %d, want %d", got, DefaultQueryLimit)
	}
	if got := (&QueryRequest{Query: "x", Limit: intPtr(7)}).EffectiveLimit(); got != 7 {
		t.Errorf("limit = %d, want 7", got)
	}
}

func TestProcessPDFRequest_Validate(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com/doc.pdf", false},
		{"  http://example.com/doc.pdf  ", false},
		{"", true},
		{"ftp://example.com/doc.pdf", true},
		{"/local/doc.pdf", true},
		{"https://", true},
	}
	for _, tt := range tests {
		req := &ProcessPDFRequest{URL: tt.url}
		err := req.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}

func TestSimilarityMatch_WithAnalysis(t *testing.T) {
	orig := SimilarityMatch{
		Content:    "chunk",
		Metadata:   map[string]interface{}{MetaSourceURL: "https://example.com/a.pdf"},
		Similarity: 0.8,
	}
	got := orig.WithAnalysis("summary")
	if got.Metadata[MetaAnalysis] != "summary" {
		t.Errorf("analysis not attached: %v", got.Metadata)
	}
	if _, ok := orig.Metadata[MetaAnalysis]; ok {
		t.Error("original metadata should not be modified")
	}
	if got.Metadata[MetaSourceURL] != "https://example.com/a.pdf" {
		t.Errorf("source_url lost: %v", got.Metadata)
	}
}

func TestNewQueryResponse_emptyChunksNotNil(t *testing.T) {
	resp := NewQueryResponse(&QueryResult{Outcome: OutcomeNoMatches})
	if resp.Chunks == nil {
		t.Fatal("Chunks should be an empty slice, not nil")
	}
	if resp.TotalChunks != 0 {
		t.Errorf("TotalChunks = %d", resp.TotalChunks)
	}
}
