package models

// Outcome distinguishes an answered query from one with no relevant chunks.
// Both are successes; failures are reported as errors.
type Outcome string

const (
	// OutcomeAnswered means matches were found and analyzed.
	OutcomeAnswered Outcome = "answered"
	// OutcomeNoMatches means no chunk cleared the similarity threshold; analysis was skipped.
	OutcomeNoMatches Outcome = "no_matches"
)

// QueryResult is the output of the query flow.
type QueryResult struct {
	Outcome       Outcome           `json:"outcome"`
	Query         string            `json:"query"`
	EnhancedQuery string            `json:"enhanced_query"`
	Matches       []SimilarityMatch `json:"matches"`
	Analysis      string            `json:"analysis,omitempty"`
	QueryTime     int64             `json:"query_time_ms"`
}

// NoMatches reports whether the query found nothing above the threshold.
func (r *QueryResult) NoMatches() bool {
	return r.Outcome == OutcomeNoMatches
}

// ProcessPDFResponse is the response for a document ingestion request.
type ProcessPDFResponse struct {
	Message    string `json:"message"`
	ChunkCount int    `json:"chunk_count"`
}

// QueryResponse is the response for a query request.
type QueryResponse struct {
	Chunks      []SimilarityMatch `json:"chunks"`
	TotalChunks int               `json:"total_chunks"`
}

// NewQueryResponse converts a query result into the API response shape.
// Chunks is never nil so it encodes as [] rather than null.
func NewQueryResponse(r *QueryResult) *QueryResponse {
	chunks := r.Matches
	if chunks == nil {
		chunks = []SimilarityMatch{}
	}
	return &QueryResponse{Chunks: chunks, TotalChunks: len(chunks)}
}
