// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"
)

// fieldSeparator is the token the statute vendor uses to join manifest
// fields. The export is not real CSV: each row is field-separator-joined
// and the URL column holds a stringified list.
const fieldSeparator = "xinshu"

// storagePathRe extracts the object-store path of a statute file from the
// stringified list in the URL column.
var storagePathRe = regexp.MustCompile(`b23/laws/[^',\]]+`)

// manifestExts are the download extensions the vendor ships.
var manifestExts = []string{".docx", ".pdf", ".doc"}

// Entry is one downloadable file from a vendor manifest.
type Entry struct {
	// Line is the 1-based manifest line the entry came from.
	Line int

	// URL is the fully resolved download URL.
	URL string

	// Filename is the sanitized local filename, extension included.
	Filename string
}

// ParseManifest reads a vendor manifest and returns the downloadable
// entries. Rows without a recognizable storage path or filename are
// skipped with a diagnostic on w.
func ParseManifest(path string, baseURL string, w io.Writer) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest %s: %w", path, err)
	}
	defer f.Close()

	return parseManifest(f, baseURL, w)
}

func parseManifest(r io.Reader, baseURL string, w io.Writer) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, fieldSeparator)

		var storagePath string
		for _, part := range parts {
			if !strings.Contains(part, "b23/laws") {
				continue
			}
			if m := storagePathRe.FindString(part); m != "" {
				storagePath = m
				break
			}
		}
		if storagePath == "" {
			continue
		}

		if len(parts) < 4 || strings.TrimSpace(parts[3]) == "" {
			fmt.Fprintf(w, "line %d: no filename, skipped\n", lineNum)
			continue
		}
		filename := sanitizeFilename(strings.TrimSpace(parts[3]))

		url := strings.TrimRight(baseURL, "/") + "/" + storagePath
		entries = append(entries, Entry{
			Line:     lineNum,
			URL:      url,
			Filename: ensureExt(filename, url),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	return entries, nil
}

// ensureExt appends a download extension when the manifest filename lacks
// one, inferring it from the URL and defaulting to .docx.
func ensureExt(filename, url string) string {
	for _, ext := range manifestExts {
		if strings.HasSuffix(filename, ext) {
			return filename
		}
	}
	if ext := path.Ext(url); ext != "" {
		for _, known := range manifestExts {
			if ext == known {
				return filename + ext
			}
		}
	}
	return filename + ".docx"
}

// illegalFilenameChars covers path separators and characters that are
// unsafe in filenames on common filesystems.
var illegalFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

func sanitizeFilename(name string) string {
	return illegalFilenameChars.ReplaceAllString(name, "_")
}
