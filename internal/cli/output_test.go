package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func answered() *models.QueryResult {
	m := models.SimilarityMatch{
		Content:    "Paris is the capital of France.",
		Similarity: 0.8123,
		Metadata:   map[string]interface{}{models.MetaSourceURL: "https://example.com/f.pdf", models.MetaChunkIndex: 2},
	}.WithAnalysis("Paris.")
	return &models.QueryResult{
		Outcome:       models.OutcomeAnswered,
		Query:         "capital of france",
		EnhancedQuery: "What is the capital city of France?",
		Matches:       []models.SimilarityMatch{m},
		Analysis:      "Paris.",
		QueryTime:     12,
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "json": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
}

func TestWriteQueryResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQueryResult(&buf, answered(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.QueryResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Outcome != models.OutcomeAnswered || len(decoded.Matches) != 1 || decoded.Analysis != "Paris." {
		t.Errorf("decoded: %+v", decoded)
	}
}

func TestWriteQueryResult_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQueryResult(&buf, answered(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 chunks", "What is the capital city of France?", "Paris.", "0.8123", "https://example.com/f.pdf"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteQueryResult_noMatches(t *testing.T) {
	var buf bytes.Buffer
	res := &models.QueryResult{Outcome: models.OutcomeNoMatches, Query: "q", EnhancedQuery: "eq"}
	if err := WriteQueryResult(&buf, res, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No chunks matched") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteQueryResult_withoutEnhancedQuery(t *testing.T) {
	res := answered()
	res.EnhancedQuery = ""
	var buf bytes.Buffer
	if err := WriteQueryResult(&buf, res, OutputText); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "Enhanced query") {
		t.Errorf("empty enhanced query should be omitted:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Paris.") {
		t.Errorf("analysis missing:\n%s", buf.String())
	}

	buf.Reset()
	none := &models.QueryResult{Outcome: models.OutcomeNoMatches, Query: "q"}
	if err := WriteQueryResult(&buf, none, OutputText); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "enhanced") {
		t.Errorf("empty enhanced query should be omitted: %q", buf.String())
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	if err := renderTable(&buf, []string{"Key", "Value"}, [][]string{{"alpha", "1"}, {"beta", "2"}}); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"KEY", "alpha", "beta"} {
		if !strings.Contains(strings.ToUpper(buf.String()), strings.ToUpper(want)) {
			t.Errorf("table missing %q:\n%s", want, buf.String())
		}
	}
}

func TestWriteIngestResult(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteIngestResult(&buf, "file:///tmp/a.pdf", 7, UnitChunks, OutputText)
	if got := buf.String(); got != "Ingested file:///tmp/a.pdf: 7 chunks\n" {
		t.Errorf("text: %q", got)
	}
	buf.Reset()
	_ = WriteIngestResult(&buf, "s", 3, UnitFiles, OutputJSON)
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["files"] != float64(3) || decoded["source"] != "s" {
		t.Errorf("json: %v", decoded)
	}
}

func TestWriteStatus(t *testing.T) {
	disk := int64(2048)
	status := &Status{
		Chunks: 1234, Store: "sqlite", EmbeddingModel: "e", CompletionModel: "c",
		DiskUsageBytes: &disk, Config: map[string]interface{}{"chunk_size": 1000},
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, status, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"1,234", "sqlite", "2.0 kB", "chunk_size", "1000"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteStatus(&buf, status, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"disk_usage_bytes": 2048`) {
		t.Errorf("json: %s", buf.String())
	}
}
