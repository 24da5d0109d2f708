// Package cli formats command output for the kotae CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
	"github.com/olekukonko/tablewriter"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

// WriteQueryResult writes a query result to w in the given format.
func WriteQueryResult(w io.Writer, result *models.QueryResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, result)
	}
	if result.NoMatches() {
		if result.EnhancedQuery == "" {
			fmt.Fprintf(w, "\nNo chunks matched %q\n", result.Query)
		} else {
			fmt.Fprintf(w, "\nNo chunks matched %q (enhanced: %q)\n", result.Query, result.EnhancedQuery)
		}
		return nil
	}
	fmt.Fprintf(w, "\nFound %d chunks in %dms\n", len(result.Matches), result.QueryTime)
	if result.EnhancedQuery != "" {
		fmt.Fprintf(w, "Enhanced query: %s\n", result.EnhancedQuery)
	}
	fmt.Fprintf(w, "\n%s\n\n", result.Analysis)

	rows := make([][]string, 0, len(result.Matches))
	for i, m := range result.Matches {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.4f", m.Similarity),
			fmt.Sprint(m.Metadata[models.MetaSourceURL]),
			fmt.Sprint(m.Metadata[models.MetaChunkIndex]),
			utils.Truncate(m.Content, 80),
		})
	}
	return renderTable(w, []string{"#", "Similarity", "Source", "Chunk", "Content"}, rows)
}

// renderTable writes rows under header, stopping at the first table error.
func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(cells(header)...)
	for _, row := range rows {
		if err := table.Append(cells(row)...); err != nil {
			return fmt.Errorf("failed to append table row: %w", err)
		}
	}
	return table.Render()
}

func cells(row []string) []any {
	out := make([]any, len(row))
	for i, c := range row {
		out[i] = c
	}
	return out
}

// Ingest result units.
const (
	UnitChunks = "chunks"
	UnitFiles  = "files"
)

// WriteIngestResult writes how many chunks (or files, for a directory) source produced.
func WriteIngestResult(w io.Writer, source string, count int, unit string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"source": source, unit: count})
	}
	fmt.Fprintf(w, "Ingested %s: %d %s\n", source, count, unit)
	return nil
}

// Status is the information shown by `kotae status`.
type Status struct {
	Chunks          int64                  `json:"chunks"`
	Store           string                 `json:"store"`
	EmbeddingModel  string                 `json:"embedding_model"`
	CompletionModel string                 `json:"completion_model"`
	DiskUsageBytes  *int64                 `json:"disk_usage_bytes,omitempty"`
	Config          map[string]interface{} `json:"config,omitempty"`
}

// WriteStatus writes status to w in the given format.
func WriteStatus(w io.Writer, status *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	rows := [][]string{
		{"chunks", humanize.Comma(status.Chunks)},
		{"store", status.Store},
		{"embedding_model", status.EmbeddingModel},
		{"completion_model", status.CompletionModel},
	}
	if status.DiskUsageBytes != nil {
		rows = append(rows, []string{"disk_usage", humanize.Bytes(uint64(*status.DiskUsageBytes))})
	}
	keys := make([]string, 0, len(status.Config))
	for k := range status.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []string{k, fmt.Sprint(status.Config[k])})
	}
	return renderTable(w, []string{"Setting", "Value"}, rows)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
