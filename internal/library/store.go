// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library persists parsed statutes and builds a retrieval index.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/statute-engine/internal/emit"
	"github.com/pdiddy/statute-engine/pkg/types"
)

const (
	parsedDir = "parsed"
	indexDir  = "index"
	dbFile    = "statutes.db"
)

// Store manages the statute library SQLite database.
type Store struct {
	db         *sql.DB
	libraryDir string
	maxResults int
}

// NewStore opens or creates the library SQLite database at
// libraryDir/index/statutes.db, creating the schema if needed.
func NewStore(cfg types.LibraryConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.LibraryDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		libraryDir: cfg.LibraryDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS laws (
			id TEXT PRIMARY KEY,
			title TEXT,
			source_path TEXT,
			article_count INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			law_id TEXT NOT NULL REFERENCES laws(id),
			ord INTEGER NOT NULL,
			article_number TEXT NOT NULL,
			content TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_law_id ON articles(law_id)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			law_id TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='articles_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE articles_fts USING fts5(article_number, content, content=articles, content_rowid=rowid)`,
			`CREATE TRIGGER articles_ai AFTER INSERT ON articles BEGIN
				INSERT INTO articles_fts(rowid, article_number, content) VALUES (new.rowid, new.article_number, new.content);
			END`,
			`CREATE TRIGGER articles_ad AFTER DELETE ON articles BEGIN
				INSERT INTO articles_fts(articles_fts, rowid, article_number, content) VALUES('delete', old.rowid, old.article_number, old.content);
			END`,
			`CREATE TRIGGER articles_au AFTER UPDATE ON articles BEGIN
				INSERT INTO articles_fts(articles_fts, rowid, article_number, content) VALUES('delete', old.rowid, old.article_number, old.content);
				INSERT INTO articles_fts(rowid, article_number, content) VALUES (new.rowid, new.article_number, new.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from a library indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of statute files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads parsed article JSON files from libraryDir/parsed/ and
// populates the database. It detects new, changed, and unchanged files
// for incremental updates. On success it refreshes export.yaml.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	parsed := filepath.Join(s.libraryDir, parsedDir)

	entries, err := os.ReadDir(parsed)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading parsed directory %s: %w", parsed, err)
	}

	var summary IngestSummary

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		lawID := strings.TrimSuffix(entry.Name(), ".json")
		filePath := filepath.Join(parsed, entry.Name())

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", lawID, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		// Check whether the file has changed since last indexing.
		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE law_id = ?`, lawID,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", lawID)
			summary.Skipped++
			continue
		}

		isUpdate := err == nil

		articles, err := emit.ReadArticles(filePath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", lawID, err)
			summary.Failed++
			continue
		}

		if err := s.ingestLaw(ctx, lawID, filePath, articles, modTime, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", lawID, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d articles)\n", lawID, len(articles))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d articles)\n", lawID, len(articles))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	// Refresh the export after successful ingestion.
	if summary.Indexed > 0 || summary.Updated > 0 {
		if err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

func (s *Store) ingestLaw(ctx context.Context, lawID, sourcePath string, articles []types.Article, modTime string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Remove old articles if updating.
	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE law_id = ?`, lawID); err != nil {
			return fmt.Errorf("deleting old articles: %w", err)
		}
	}

	// The law title is the parsed file's base name.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO laws (id, title, source_path, article_count)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, source_path=excluded.source_path,
			article_count=excluded.article_count`,
		lawID, lawID, sourcePath, len(articles),
	)
	if err != nil {
		return fmt.Errorf("upserting law: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO articles (id, law_id, ord, article_number, content)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	// The id is keyed on position, not heading: compilations and corrupt
	// heuristic output can repeat an article number within one file.
	for i, art := range articles {
		id := fmt.Sprintf("%s#%d", lawID, i)
		_, err := stmt.ExecContext(ctx, id, lawID, i, art.ArticleNumber, art.Content)
		if err != nil {
			return fmt.Errorf("inserting article %s: %w", id, err)
		}
	}

	// Update indexing status.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (law_id, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(law_id) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		lawID, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}
