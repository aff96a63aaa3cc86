// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package loader extracts raw text from statute source files. It abstracts
// over the plain-text, Word, and PDF formats the pipeline accepts.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/tsawler/tabula/docx"

	"github.com/pdiddy/statute-engine/pkg/types"
)

// Loader failure taxonomy. All three abort the run; callers match with
// errors.Is.
var (
	// ErrEncoding reports a text file that is not valid UTF-8.
	ErrEncoding = errors.New("invalid UTF-8 encoding")

	// ErrUnsupportedDocument reports a file that is not a valid container
	// for its declared format.
	ErrUnsupportedDocument = errors.New("unsupported document")

	// ErrExtraction reports a PDF whose text could not be extracted by
	// either extraction method.
	ErrExtraction = errors.New("text extraction failed")
)

// DetectFormat infers the document format from the file extension.
// Unknown extensions are treated as plain text, matching the default
// input convention (statute dumps are .txt).
func DetectFormat(path string) types.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx", ".doc":
		return types.FormatDocx
	case ".pdf":
		return types.FormatPDF
	default:
		return types.FormatText
	}
}

// Load reads the file at path and returns its extracted text. An empty
// format means detect from the extension. The returned RawDocument is
// immutable for the rest of the run.
func Load(path string, format types.Format) (*types.RawDocument, error) {
	if format == "" {
		format = DetectFormat(path)
	}

	var (
		text string
		err  error
	)
	switch format {
	case types.FormatText:
		text, err = loadText(path)
	case types.FormatDocx:
		text, err = loadDocx(path)
	case types.FormatPDF:
		text, err = loadPDF(path)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}

	return &types.RawDocument{
		Path:   path,
		Format: format,
		Text:   text,
	}, nil
}

// loadText reads a plain-text file and validates its encoding.
func loadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: %w", path, ErrEncoding)
	}
	return string(data), nil
}

// loadDocx extracts paragraph text from a Word document in document order,
// dropping blank paragraphs.
func loadDocx(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	r, err := docx.Open(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", path, ErrUnsupportedDocument, err)
	}
	defer r.Close()

	text, err := r.Text()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", path, ErrUnsupportedDocument, err)
	}

	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}
