// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package process post-processes parse results: model replies occasionally
// nest several article objects inside one array element, and downstream
// consumers need one flat JSON array of article objects.
package process

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Report holds counts from a flattening run.
type Report struct {
	Kept      int
	Flattened int
	Dropped   int
}

// Total returns the number of top-level elements processed.
func (r Report) Total() int {
	return r.Kept + r.Flattened + r.Dropped
}

// Flatten normalizes a decoded JSON array: objects are kept, nested arrays
// of objects are expanded in place, anything else is dropped with a log
// line. Element order is preserved.
func Flatten(data []any, w io.Writer) ([]map[string]any, Report) {
	var out []map[string]any
	var report Report

	for i, item := range data {
		switch v := item.(type) {
		case map[string]any:
			out = append(out, v)
			report.Kept++
		case []any:
			expanded := 0
			for _, sub := range v {
				if m, ok := sub.(map[string]any); ok {
					out = append(out, m)
					expanded++
				}
			}
			fmt.Fprintf(w, "flattened element %d (%d articles)\n", i+1, expanded)
			report.Flattened++
		default:
			fmt.Fprintf(w, "dropped element %d: unexpected type %T\n", i+1, item)
			report.Dropped++
		}
	}

	return out, report
}

// Validate checks that every object carries non-empty article_number and
// content strings, returning one message per violation.
func Validate(articles []map[string]any) []string {
	var issues []string
	for i, a := range articles {
		for _, key := range []string{"article_number", "content"} {
			s, ok := a[key].(string)
			if !ok || s == "" {
				issues = append(issues, fmt.Sprintf("element %d: missing or empty %s", i+1, key))
			}
		}
	}
	return issues
}

// File reads a JSON array from inputPath, flattens it, and writes the
// result to outputPath with the same encoding conventions as the emitter.
func File(inputPath, outputPath string, w io.Writer) (Report, error) {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return Report{}, fmt.Errorf("reading %s: %w", inputPath, err)
	}

	var data []any
	if err := json.Unmarshal(raw, &data); err != nil {
		return Report{}, fmt.Errorf("parsing %s: expected a JSON array: %w", inputPath, err)
	}

	flat, report := Flatten(data, w)

	for _, issue := range Validate(flat) {
		fmt.Fprintf(w, "validation: %s\n", issue)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if flat == nil {
		flat = []map[string]any{}
	}
	if err := enc.Encode(flat); err != nil {
		return report, fmt.Errorf("marshaling result: %w", err)
	}

	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return report, fmt.Errorf("writing %s: %w", outputPath, err)
	}

	fmt.Fprintf(w, "\nprocessed %d elements: %d kept, %d flattened, %d dropped\n",
		report.Total(), report.Kept, report.Flattened, report.Dropped)
	return report, nil
}
