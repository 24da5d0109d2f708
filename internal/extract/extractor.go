// Package extract provides document fetching and text extraction (PDF, XLSX, plain text).
package extract

import (
	"bytes"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatXLSX  Format = "xlsx"
	FormatPlain Format = "plain"
)

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// DetectFormat picks the document format from magic bytes first, then the Content-Type,
// then the file extension of name. Anything unrecognized is treated as plain text.
func DetectFormat(content []byte, contentType, name string) Format {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case bytes.HasPrefix(content, pdfMagic):
		return FormatPDF
	case bytes.HasPrefix(content, zipMagic) && ext == ".xlsx":
		return FormatXLSX
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "application/pdf":
			return FormatPDF
		case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
			return FormatXLSX
		}
	}
	switch ext {
	case ".pdf":
		return FormatPDF
	case ".xlsx":
		return FormatXLSX
	}
	if bytes.HasPrefix(content, zipMagic) {
		// An unnamed zip from a spreadsheet download still opens with excelize.
		return FormatXLSX
	}
	return FormatPlain
}

// Extractor extracts plain text from document bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read file: %w", models.ErrExtraction, err)
	}
	return e.ExtractBytes(content, DetectFormat(content, "", path))
}

// ExtractBytes extracts text from content in the given format.
// Malformed input fails with models.ErrExtraction.
func (e *Extractor) ExtractBytes(content []byte, format Format) (string, error) {
	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = extractPDF(content)
	case FormatXLSX:
		text, err = extractExcel(content)
	default:
		text, err = extractPlain(content)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", models.ErrExtraction, format, err)
	}
	return text, nil
}
