// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package emit serializes normalized articles to JSON files.
package emit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pdiddy/statute-engine/pkg/types"
)

// ErrWrite wraps filesystem failures while writing output. Fatal to the run.
var ErrWrite = errors.New("write failed")

// WriteArticles writes the ordered article sequence as a single JSON array
// to path, overwriting any existing file. CJK text is written literally
// (no \uXXXX escapes) and the output is deterministic for identical input.
func WriteArticles(path string, articles []types.Article) error {
	data, err := Marshal(articles)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w: %v", path, ErrWrite, err)
	}
	return nil
}

// Marshal renders the article array as indented, HTML-unescaped JSON.
// A nil slice still renders as an empty array, never null.
func Marshal(articles []types.Article) ([]byte, error) {
	if articles == nil {
		articles = []types.Article{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(articles); err != nil {
		return nil, fmt.Errorf("marshaling articles: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadArticles loads a JSON article array previously written by
// WriteArticles. Used by the process and library stages.
func ReadArticles(path string) ([]types.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var articles []types.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return articles, nil
}
