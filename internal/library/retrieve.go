// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// QueryOptions holds parameters for library queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string.
	Query string

	// LawID filters by statute.
	LawID string

	// ArticleNumber filters by article heading, e.g. 第十条.
	ArticleNumber string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.LawID == "" && q.ArticleNumber == ""
}

// QueryResult is an indexed article with its statute metadata.
type QueryResult struct {
	ID            string `json:"id" yaml:"id"`
	LawID         string `json:"law_id" yaml:"law_id"`
	LawTitle      string `json:"law_title" yaml:"law_title"`
	ArticleNumber string `json:"article_number" yaml:"article_number"`
	Content       string `json:"content" yaml:"content"`
}

// Retrieve queries the library with optional full-text search and
// structured filters. Results are ranked by relevance for full-text
// queries or sorted by law and article order otherwise.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT a.id, a.law_id, a.article_number, a.content,
				l.title, articles_fts.rank
			FROM articles_fts
			JOIN articles a ON a.rowid = articles_fts.rowid
			LEFT JOIN laws l ON a.law_id = l.id
			WHERE articles_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT a.id, a.law_id, a.article_number, a.content,
				l.title, 0 AS rank
			FROM articles a
			LEFT JOIN laws l ON a.law_id = l.id
			WHERE 1=1`)
	}

	if opts.LawID != "" {
		qb.WriteString(` AND a.law_id = ?`)
		args = append(args, opts.LawID)
	}

	if opts.ArticleNumber != "" {
		qb.WriteString(` AND a.article_number = ?`)
		args = append(args, opts.ArticleNumber)
	}

	if useFTS {
		qb.WriteString(` ORDER BY articles_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY a.law_id, a.ord`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying library: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			qr       QueryResult
			lawTitle sql.NullString
			rank     float64
		)

		if err := rows.Scan(
			&qr.ID, &qr.LawID, &qr.ArticleNumber, &qr.Content,
			&lawTitle, &rank,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if lawTitle.Valid {
			qr.LawTitle = lawTitle.String
		}

		results = append(results, qr)
	}

	return results, rows.Err()
}

// Laws returns the indexed statutes with their article counts, sorted
// by id.
func (s *Store) Laws(ctx context.Context) ([]LawRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, source_path, article_count FROM laws ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying laws: %w", err)
	}
	defer rows.Close()

	var laws []LawRecord
	for rows.Next() {
		var l LawRecord
		if err := rows.Scan(&l.ID, &l.Title, &l.SourcePath, &l.ArticleCount); err != nil {
			return nil, fmt.Errorf("scanning law: %w", err)
		}
		laws = append(laws, l)
	}
	return laws, rows.Err()
}

// LawRecord describes one indexed statute.
type LawRecord struct {
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title" yaml:"title"`
	SourcePath   string `json:"source_path" yaml:"source_path"`
	ArticleCount int    `json:"article_count" yaml:"article_count"`
}
