// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pdiddy/statute-engine/internal/httputil"
	"github.com/pdiddy/statute-engine/pkg/types"
)

// Document is one entry from the knowledge-base document listing.
type Document struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CreatedAt      int64  `json:"created_at"`
	IndexingStatus string `json:"indexing_status"`
	Tokens         int    `json:"tokens"`
	Enabled        bool   `json:"enabled"`
	Archived       bool   `json:"archived"`
	DataSourceType string `json:"data_source_type"`
}

type documentsPage struct {
	Data    []Document `json:"data"`
	HasMore bool       `json:"has_more"`
}

const syncPageLimit = 100

// FetchDocuments pages through the knowledge-base document listing and
// returns all documents.
func FetchDocuments(ctx context.Context, client *http.Client, cfg types.UploadConfig, w io.Writer) ([]Document, error) {
	var all []Document

	for page := 1; ; page++ {
		docs, hasMore, err := fetchPage(ctx, client, cfg, page)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", page, err)
		}
		if len(docs) == 0 {
			break
		}

		all = append(all, docs...)
		fmt.Fprintf(w, "page %d: %d documents (%d total)\n", page, len(docs), len(all))

		if !hasMore {
			break
		}
	}

	return all, nil
}

func fetchPage(ctx context.Context, client *http.Client, cfg types.UploadConfig, page int) ([]Document, bool, error) {
	u, err := url.Parse(cfg.BaseURL + "/documents")
	if err != nil {
		return nil, false, fmt.Errorf("parsing base URL: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(syncPageLimit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.Token)
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 3)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("listing documents: HTTP %d", resp.StatusCode)
	}

	var result documentsPage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, fmt.Errorf("parsing document listing: %w", err)
	}

	return result.Data, result.HasMore, nil
}

// Sync rebuilds the upload log from the API document listing, keyed by
// file name. Local path, size, and modification time are filled in when
// a matching file exists under localDir, and existing local entries are
// merged rather than discarded.
func Sync(ctx context.Context, client *http.Client, cfg types.UploadConfig, localDir string, w io.Writer) (int, error) {
	docs, err := FetchDocuments(ctx, client, cfg, w)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "no documents returned by the API")
		return 0, nil
	}

	existing := loadLog[Entry](cfg.LogPath)

	// Re-key existing entries by file name so API records merge onto them.
	merged := make(map[string]Entry, len(existing)+len(docs))
	for _, e := range existing {
		if e.FileName != "" {
			merged[e.FileName] = e
		}
	}

	local := indexLocalFiles(localDir)

	for _, doc := range docs {
		if doc.Name == "" {
			continue
		}

		e := Entry{
			FileName:       doc.Name,
			APIID:          doc.ID,
			CreatedAt:      doc.CreatedAt,
			IndexingStatus: doc.IndexingStatus,
			Tokens:         doc.Tokens,
			Source:         "api",
		}
		if doc.CreatedAt > 0 {
			e.UploadTime = time.Unix(doc.CreatedAt, 0).Format("2006-01-02 15:04:05")
		}

		if path, ok := local[doc.Name]; ok {
			e.FilePath = path
		} else if prev, ok := merged[doc.Name]; ok {
			e.FilePath = prev.FilePath
		}

		merged[doc.Name] = e
	}

	if err := saveLog(cfg.LogPath, merged); err != nil {
		return 0, fmt.Errorf("writing %s: %w", cfg.LogPath, err)
	}

	fmt.Fprintf(w, "\nsynced %d documents to %s\n", len(docs), cfg.LogPath)
	return len(docs), nil
}

// indexLocalFiles maps base names to paths for every file under dir.
// Returns an empty map when dir is unset or unreadable.
func indexLocalFiles(dir string) map[string]string {
	local := map[string]string{}
	if dir == "" {
		return local
	}
	if _, err := os.Stat(dir); err != nil {
		return local
	}
	files, err := CollectFiles(dir)
	if err != nil {
		return local
	}
	for _, path := range files {
		local[filepath.Base(path)] = path
	}
	return local
}
