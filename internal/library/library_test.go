package library

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/statute-engine/internal/emit"
	"github.com/pdiddy/statute-engine/pkg/types"
)

// --- test helpers ---

func testSetup(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()

	libDir := filepath.Join(tmpDir, "library")
	if err := os.MkdirAll(filepath.Join(libDir, parsedDir), 0o755); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(types.LibraryConfig{LibraryDir: libDir, MaxResults: 20})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return store, libDir
}

func writeParsed(t *testing.T, libDir, lawID string, articles []types.Article) {
	t.Helper()
	path := filepath.Join(libDir, parsedDir, lawID+".json")
	if err := emit.WriteArticles(path, articles); err != nil {
		t.Fatal(err)
	}
}

func sampleArticles() []types.Article {
	return []types.Article{
		{ArticleNumber: "第一条", Content: "第一条 为了保护合同当事人的合法权益，维护社会经济秩序，制定本法。"},
		{ArticleNumber: "第二条", Content: "第二条 本法所称合同，是指民事主体之间设立民事法律关系的协议。"},
		{ArticleNumber: "第三条", Content: "第三条 当事人依法享有自愿订立合同的权利。"},
	}
}

func ingestHelper(t *testing.T, store *Store, libDir, lawID string) {
	t.Helper()
	writeParsed(t, libDir, lawID, sampleArticles())
	var buf strings.Builder
	if _, err := store.Ingest(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
}

// --- schema tests ---

func TestNewStoreCreatesSchema(t *testing.T) {
	store, _ := testSetup(t)

	tables := []string{"laws", "articles", "articles_fts", "indexing_status"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestNewStoreCreatesDBFile(t *testing.T) {
	tmpDir := t.TempDir()
	libDir := filepath.Join(tmpDir, "library")

	store, err := NewStore(types.LibraryConfig{LibraryDir: libDir})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	dbPath := filepath.Join(libDir, indexDir, dbFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", dbPath)
	}
}

// --- ingest tests ---

func TestIngest(t *testing.T) {
	store, libDir := testSetup(t)

	writeParsed(t, libDir, "合同编", sampleArticles())
	writeParsed(t, libDir, "公司法", sampleArticles()[:1])

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if summary.Indexed != 2 {
		t.Errorf("Indexed = %d, want 2", summary.Indexed)
	}
	if summary.Failed != 0 {
		t.Errorf("Failed = %d, want 0; output: %s", summary.Failed, buf.String())
	}
	if !strings.Contains(buf.String(), "indexed: 2") {
		t.Errorf("output should contain 'indexed: 2': %s", buf.String())
	}
}

func TestIngestPopulatesLawsTable(t *testing.T) {
	store, libDir := testSetup(t)
	ingestHelper(t, store, libDir, "合同编")

	laws, err := store.Laws(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(laws) != 1 {
		t.Fatalf("got %d laws, want 1", len(laws))
	}
	if laws[0].ID != "合同编" || laws[0].Title != "合同编" {
		t.Errorf("law = %+v", laws[0])
	}
	if laws[0].ArticleCount != 3 {
		t.Errorf("article_count = %d, want 3", laws[0].ArticleCount)
	}
}

func TestIngestIgnoresNonJSON(t *testing.T) {
	store, libDir := testSetup(t)

	path := filepath.Join(libDir, parsedDir, "notes.txt")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total() != 0 {
		t.Errorf("Total = %d, want 0", summary.Total())
	}
}

func TestIngestReportsMalformedFile(t *testing.T) {
	store, libDir := testSetup(t)

	path := filepath.Join(libDir, parsedDir, "bad.json")
	if err := os.WriteFile(path, []byte("{not an array"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
	if !strings.Contains(buf.String(), "failed  bad") {
		t.Errorf("output should report the failure: %s", buf.String())
	}
}

func TestIngestWritesExportYAML(t *testing.T) {
	store, libDir := testSetup(t)
	ingestHelper(t, store, libDir, "合同编")

	path := filepath.Join(libDir, indexDir, "export.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("export.yaml not written after ingestion")
	}
}

func TestIngestKeepsDuplicateHeadings(t *testing.T) {
	store, libDir := testSetup(t)

	// A compilation can repeat an article number across its parts.
	articles := []types.Article{
		{ArticleNumber: "第一条", Content: "第一编 第一条 总则条文。"},
		{ArticleNumber: "第二条", Content: "第一编 第二条 次条。"},
		{ArticleNumber: "第一条", Content: "第二编 第一条 分则条文。"},
	}
	writeParsed(t, libDir, "汇编", articles)

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 0 {
		t.Fatalf("Failed = %d; output: %s", summary.Failed, buf.String())
	}

	results, err := store.Retrieve(context.Background(), QueryOptions{LawID: "汇编"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d articles, want 3 (duplicate headings must not collapse)", len(results))
	}
	if results[0].ArticleNumber != "第一条" || results[2].ArticleNumber != "第一条" {
		t.Errorf("order = %q, %q, %q", results[0].ArticleNumber, results[1].ArticleNumber, results[2].ArticleNumber)
	}
	if results[0].Content == results[2].Content {
		t.Error("both 第一条 rows should keep their own content")
	}
}

// --- incremental update tests ---

func TestIngestSkipsUnchanged(t *testing.T) {
	store, libDir := testSetup(t)
	ingestHelper(t, store, libDir, "合同编")

	// Second ingestion without modifying the file.
	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", summary.Skipped)
	}
	if summary.Indexed != 0 {
		t.Errorf("Indexed = %d, want 0", summary.Indexed)
	}
	if !strings.Contains(buf.String(), "skipped") {
		t.Errorf("output should contain 'skipped': %s", buf.String())
	}
}

func TestIngestUpdatesChanged(t *testing.T) {
	store, libDir := testSetup(t)
	ingestHelper(t, store, libDir, "合同编")

	newArticles := []types.Article{
		{ArticleNumber: "第一条", Content: "第一条 修订后的条文内容。"},
	}
	writeParsed(t, libDir, "合同编", newArticles)

	// Touch the file to ensure mod time changes.
	path := filepath.Join(libDir, parsedDir, "合同编.json")
	future := time.Now().Add(time.Second)
	os.Chtimes(path, future, future)

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 {
		t.Errorf("Updated = %d, want 1", summary.Updated)
	}

	// Old articles removed, new article present.
	results, err := store.Retrieve(context.Background(), QueryOptions{LawID: "合同编"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (old articles should be removed)", len(results))
	}
	if results[0].Content != "第一条 修订后的条文内容。" {
		t.Errorf("content = %q", results[0].Content)
	}
}

// --- full-text search tests ---

func TestRetrieveFullTextSearch(t *testing.T) {
	store, libDir := testSetup(t)
	ingestHelper(t, store, libDir, "合同编")

	tests := []struct {
		name    string
		query   string
		want    int
	}{
		// FTS5 unicode61 tokenizes CJK runs between punctuation as
		// single tokens, so queries use whole clauses.
		{"matching clause", "维护社会经济秩序", 1},
		{"no match", "完全不存在的条款", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Retrieve(context.Background(), QueryOptions{Query: tt.query})
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != tt.want {
				t.Errorf("got %d results, want %d", len(results), tt.want)
			}
		})
	}
}

func TestRetrieveFullTextIncludesLawMetadata(t *testing.T) {
	store, libDir := testSetup(t)
	ingestHelper(t, store, libDir, "合同编")

	results, err := store.Retrieve(context.Background(), QueryOptions{Query: "维护社会经济秩序"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	for _, r := range results {
		if r.LawID != "合同编" {
			t.Errorf("law_id = %q", r.LawID)
		}
		if r.LawTitle == "" {
			t.Error("result missing law_title")
		}
		if r.ArticleNumber == "" {
			t.Error("result missing article_number")
		}
	}
}

// --- structured query tests ---

func TestRetrieveByLawID(t *testing.T) {
	store, libDir := testSetup(t)

	writeParsed(t, libDir, "合同编", sampleArticles())
	writeParsed(t, libDir, "公司法", sampleArticles()[:1])
	var buf strings.Builder
	store.Ingest(context.Background(), &buf)

	results, err := store.Retrieve(context.Background(), QueryOptions{LawID: "合同编"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, r := range results {
		if r.LawID != "合同编" {
			t.Errorf("law_id = %q, want 合同编", r.LawID)
		}
	}
}

func TestRetrieveByArticleNumber(t *testing.T) {
	store, libDir := testSetup(t)
	ingestHelper(t, store, libDir, "合同编")

	results, err := store.Retrieve(context.Background(), QueryOptions{
		LawID:         "合同编",
		ArticleNumber: "第二条",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !strings.Contains(results[0].Content, "本法所称合同") {
		t.Errorf("content = %q", results[0].Content)
	}
}

func TestRetrievePreservesArticleOrder(t *testing.T) {
	store, libDir := testSetup(t)
	ingestHelper(t, store, libDir, "合同编")

	results, err := store.Retrieve(context.Background(), QueryOptions{LawID: "合同编"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"第一条", "第二条", "第三条"}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, r := range results {
		if r.ArticleNumber != want[i] {
			t.Errorf("result %d = %q, want %q", i, r.ArticleNumber, want[i])
		}
	}
}

func TestRetrieveRespectsMaxResults(t *testing.T) {
	store, libDir := testSetup(t)
	ingestHelper(t, store, libDir, "合同编")

	results, err := store.Retrieve(context.Background(), QueryOptions{
		LawID:      "合同编",
		MaxResults: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestQueryOptionsIsEmpty(t *testing.T) {
	if !(QueryOptions{}).IsEmpty() {
		t.Error("empty QueryOptions should report IsEmpty() = true")
	}
	if (QueryOptions{LawID: "合同编"}).IsEmpty() {
		t.Error("QueryOptions with a filter should report IsEmpty() = false")
	}
}

// --- export tests ---

func TestExportYAML(t *testing.T) {
	store, libDir := testSetup(t)
	ingestHelper(t, store, libDir, "合同编")

	if err := store.ExportYAML(context.Background(), QueryOptions{}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(libDir, indexDir, "export.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	var entries []ExportEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
	for _, e := range entries {
		if e.LawTitle == "" {
			t.Errorf("entry %s missing law title", e.ID)
		}
	}
}

func TestExportJSON(t *testing.T) {
	store, libDir := testSetup(t)
	ingestHelper(t, store, libDir, "合同编")

	if err := store.ExportJSON(context.Background(), QueryOptions{}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(libDir, indexDir, "export.json"))
	if err != nil {
		t.Fatal(err)
	}

	var entries []ExportEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
}

func TestExportFilteredByLaw(t *testing.T) {
	store, libDir := testSetup(t)

	writeParsed(t, libDir, "合同编", sampleArticles())
	writeParsed(t, libDir, "公司法", sampleArticles()[:1])
	var buf strings.Builder
	store.Ingest(context.Background(), &buf)

	if err := store.ExportJSON(context.Background(), QueryOptions{LawID: "公司法"}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(libDir, indexDir, "export.json"))
	if err != nil {
		t.Fatal(err)
	}

	var entries []ExportEntry
	json.Unmarshal(data, &entries)
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
	for _, e := range entries {
		if e.LawID != "公司法" {
			t.Errorf("entry law_id = %q, want 公司法", e.LawID)
		}
	}
}

// --- IngestSummary ---

func TestIngestSummaryTotal(t *testing.T) {
	s := IngestSummary{Indexed: 2, Updated: 1, Skipped: 3, Failed: 1}
	if s.Total() != 7 {
		t.Errorf("Total() = %d, want 7", s.Total())
	}
}
