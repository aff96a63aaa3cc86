// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/statute-engine/internal/httputil"
	"github.com/pdiddy/statute-engine/pkg/types"
)

// uploadRules is the indexing configuration sent alongside each file.
// Statute text keeps blank lines between articles, so segmentation
// splits on double newlines.
type uploadRules struct {
	IndexingTechnique string      `json:"indexing_technique"`
	ProcessRule       processRule `json:"process_rule"`
}

type processRule struct {
	Rules ruleSet `json:"rules"`
	Mode  string  `json:"mode"`
}

type ruleSet struct {
	PreProcessingRules []preProcessingRule `json:"pre_processing_rules"`
	Segmentation       segmentation        `json:"segmentation"`
}

type preProcessingRule struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

type segmentation struct {
	Separator    string `json:"separator"`
	MaxTokens    int    `json:"max_tokens"`
	ChunkOverlap int    `json:"chunk_overlap"`
}

func defaultRules() uploadRules {
	return uploadRules{
		IndexingTechnique: "high_quality",
		ProcessRule: processRule{
			Mode: "custom",
			Rules: ruleSet{
				PreProcessingRules: []preProcessingRule{
					{ID: "remove_extra_spaces", Enabled: true},
					{ID: "remove_urls_emails", Enabled: true},
				},
				Segmentation: segmentation{
					Separator:    "\n\n",
					MaxTokens:    1024,
					ChunkOverlap: 200,
				},
			},
		},
	}
}

// BatchResult holds the outcome of a batch upload run.
type BatchResult struct {
	Uploaded int
	Skipped  int
	Failed   int
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Uploaded + r.Skipped + r.Failed
}

// HasFailures reports whether any uploads failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// CollectFiles walks dir recursively and returns all regular files.
func CollectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	return files, nil
}

// UploadAll sends each file not already recorded in the upload log to
// the knowledge-base API. Successes are appended to the log; failures
// go to the failed log with a retry count and are picked up again on
// the next run. A failed file never aborts the batch.
func UploadAll(ctx context.Context, client *http.Client, files []string, cfg types.UploadConfig, w io.Writer) (BatchResult, error) {
	uploaded := loadLog[Entry](cfg.LogPath)
	failed := loadLog[FailedEntry](cfg.FailedLogPath)

	pacer := httputil.NewPacer(cfg.UploadDelay)
	var result BatchResult

	for _, path := range files {
		if isUploaded(path, uploaded) {
			fmt.Fprintf(w, "skipped  %s (already uploaded)\n", filepath.Base(path))
			result.Skipped++
			continue
		}

		if err := pacer.Wait(ctx); err != nil {
			return result, err
		}

		status, err := uploadOne(ctx, client, path, cfg)
		sig := Signature(path)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			fmt.Fprintf(w, "failed   %s: %v\n", filepath.Base(path), err)
			result.Failed++

			prev := failed[sig]
			failed[sig] = FailedEntry{
				FilePath:   path,
				FileName:   filepath.Base(path),
				Error:      err.Error(),
				StatusCode: status,
				FailTime:   time.Now().Format("2006-01-02 15:04:05"),
				RetryCount: prev.RetryCount + 1,
			}
			persistLog(cfg.FailedLogPath, failed, w)
			continue
		}

		fmt.Fprintf(w, "uploaded %s\n", filepath.Base(path))
		result.Uploaded++

		uploaded[sig] = Entry{
			FilePath:   path,
			FileName:   filepath.Base(path),
			UploadTime: time.Now().Format("2006-01-02 15:04:05"),
			StatusCode: status,
			Success:    true,
		}
		persistLog(cfg.LogPath, uploaded, w)

		if _, ok := failed[sig]; ok {
			delete(failed, sig)
			persistLog(cfg.FailedLogPath, failed, w)
		}
	}

	fmt.Fprintf(w, "\nuploaded: %d, skipped: %d, failed: %d, total: %d\n",
		result.Uploaded, result.Skipped, result.Failed, result.Total())

	return result, nil
}

// uploadOne POSTs a single file as multipart form data. Returns the
// HTTP status code when a response was received.
func uploadOne(ctx context.Context, client *http.Client, path string, cfg types.UploadConfig) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return 0, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	rules, err := json.Marshal(defaultRules())
	if err != nil {
		return 0, fmt.Errorf("marshaling upload rules: %w", err)
	}
	if err := mw.WriteField("data", string(rules)); err != nil {
		return 0, fmt.Errorf("writing data field: %w", err)
	}

	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("finalizing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		cfg.BaseURL+"/document/create-by-file", &body)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+cfg.Token)
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("uploading %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("upload rejected: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	return resp.StatusCode, nil
}
