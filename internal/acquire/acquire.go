// Package acquire downloads statute source files listed in vendor
// manifests into the local laws directory.
package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pdiddy/statute-engine/internal/httputil"
	"github.com/pdiddy/statute-engine/pkg/types"
)

// BatchResult holds the outcome of a batch acquisition run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Total returns the total number of entries processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any downloads failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// AcquireAll downloads every manifest entry into cfg.LawsDir, pacing
// consecutive downloads by cfg.DownloadDelay and retrying rate-limited
// responses. Files already present and non-empty are skipped. A failed
// entry does not abort the batch.
func AcquireAll(ctx context.Context, client *http.Client, entries []Entry, cfg types.AcquisitionConfig, w io.Writer) (BatchResult, error) {
	if err := os.MkdirAll(cfg.LawsDir, 0o755); err != nil {
		return BatchResult{}, fmt.Errorf("creating %s: %w", cfg.LawsDir, err)
	}

	pacer := httputil.NewPacer(cfg.DownloadDelay)
	var result BatchResult

	for _, entry := range entries {
		dest := filepath.Join(cfg.LawsDir, entry.Filename)

		if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
			fmt.Fprintf(w, "skipped: %s (already exists)\n", entry.Filename)
			result.Skipped++
			continue
		}

		if err := pacer.Wait(ctx); err != nil {
			return result, err
		}

		if err := download(ctx, client, entry.URL, dest, cfg); err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", entry.Filename, err)
			result.Failed++
			continue
		}

		fmt.Fprintf(w, "downloaded: %s\n", entry.Filename)
		result.Downloaded++
	}

	fmt.Fprintf(w, "\nBatch summary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	return result, nil
}

// download fetches url into dest via a temp file renamed on success, so a
// partial download never leaves a truncated statute file behind.
func download(ctx context.Context, client *http.Client, url, dest string, cfg types.AcquisitionConfig) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	return os.Rename(tmp.Name(), dest)
}
