// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package upload pushes statute files into an external knowledge-base
// service and tracks what has already been sent.
package upload

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Entry records one uploaded file in the upload log. Entries written
// by Sync carry API metadata instead of a local status code.
type Entry struct {
	FilePath       string `json:"file_path,omitempty"`
	FileName       string `json:"file_name"`
	UploadTime     string `json:"upload_time,omitempty"`
	StatusCode     int    `json:"status_code,omitempty"`
	Success        bool   `json:"success,omitempty"`
	APIID          string `json:"api_id,omitempty"`
	CreatedAt      int64  `json:"created_at,omitempty"`
	IndexingStatus string `json:"indexing_status,omitempty"`
	Tokens         int    `json:"tokens,omitempty"`
	Source         string `json:"source,omitempty"`
}

// FailedEntry records one failed upload so the next run retries it.
type FailedEntry struct {
	FilePath   string `json:"file_path"`
	FileName   string `json:"file_name"`
	Error      string `json:"error"`
	StatusCode int    `json:"status_code,omitempty"`
	FailTime   string `json:"fail_time"`
	RetryCount int    `json:"retry_count"`
}

// Signature identifies a file by path, size, and modification time so
// a re-extracted file is treated as new. Falls back to the path alone
// when the file cannot be stated.
func Signature(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Sprintf("%x", md5.Sum([]byte(path)))
	}
	s := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// loadLog reads a JSON log keyed by signature or file name. A missing
// or unreadable log yields an empty map so the run starts fresh.
func loadLog[E any](path string) map[string]E {
	m := map[string]E{}
	if path == "" {
		return m
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]E{}
	}
	return m
}

// persistLog saves the log and reports a failed write to w; losing the
// record must not fail the batch, but it must not be silent either.
func persistLog[E any](path string, m map[string]E, w io.Writer) {
	if err := saveLog(path, m); err != nil {
		fmt.Fprintf(w, "warning: %v\n", err)
	}
}

func saveLog[E any](path string, m map[string]E) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling log: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// isUploaded reports whether path is already recorded in the log,
// either under its signature or via a matching recorded path.
func isUploaded(path string, log map[string]Entry) bool {
	if _, ok := log[Signature(path)]; ok {
		return true
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, e := range log {
		if e.FilePath == "" {
			continue
		}
		loggedAbs, err := filepath.Abs(e.FilePath)
		if err != nil {
			loggedAbs = e.FilePath
		}
		if abs == loggedAbs {
			return true
		}
	}
	return false
}
