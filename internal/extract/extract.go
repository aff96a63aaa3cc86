// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract batch-converts Word and PDF statute files to plain-text
// siblings so the rest of the pipeline (and the knowledge-base uploader)
// can work from .txt files.
package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/statute-engine/internal/loader"
)

// convertibleExts lists the source extensions worth converting.
var convertibleExts = map[string]bool{
	".doc":  true,
	".docx": true,
	".pdf":  true,
}

// BatchResult holds the outcome of a batch extraction run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any files failed extraction.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// CollectInputs expands the given paths into a list of convertible files.
// Directory arguments are scanned one level deep; files are taken as-is
// when their extension is convertible.
func CollectInputs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			if convertibleExts[strings.ToLower(filepath.Ext(arg))] {
				files = append(files, arg)
			}
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if convertibleExts[strings.ToLower(filepath.Ext(entry.Name()))] {
				files = append(files, filepath.Join(arg, entry.Name()))
			}
		}
	}
	return files, nil
}

// OutputPath returns the .txt destination for a source file. When outDir
// is empty the output is a sibling of the source.
func OutputPath(src, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".txt"
	if outDir == "" {
		return filepath.Join(filepath.Dir(src), base)
	}
	return filepath.Join(outDir, base)
}

// ExtractFile converts one document to plain text at outPath.
func ExtractFile(src, outPath string) error {
	doc, err := loader.Load(src, "")
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, []byte(doc.Text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}

// ExtractBatch converts every file to a .txt output, printing per-file
// status to w and returning a summary. Outputs newer than their source are
// skipped. A failed file does not abort the batch.
func ExtractBatch(files []string, outDir string, w io.Writer) BatchResult {
	var result BatchResult

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			fmt.Fprintf(w, "failed: creating %s (%v)\n", outDir, err)
			result.Failed = len(files)
			return result
		}
	}

	for _, src := range files {
		outPath := OutputPath(src, outDir)

		if upToDate(src, outPath) {
			fmt.Fprintf(w, "skipped: %s (up to date)\n", filepath.Base(src))
			result.Skipped++
			continue
		}

		if err := ExtractFile(src, outPath); err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", filepath.Base(src), err)
			result.Failed++
			continue
		}

		fmt.Fprintf(w, "converted: %s\n", filepath.Base(src))
		result.Converted++
	}

	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// upToDate reports whether outPath exists and is at least as new as src.
func upToDate(src, outPath string) bool {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false
	}
	outInfo, err := os.Stat(outPath)
	if err != nil {
		return false
	}
	return !srcInfo.ModTime().After(outInfo.ModTime())
}
