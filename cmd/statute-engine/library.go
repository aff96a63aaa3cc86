// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/statute-engine/internal/library"
	"github.com/pdiddy/statute-engine/pkg/types"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the statute library (store, retrieve, export)",
	Long: `Library manages a local SQLite index of parsed statutes. Use subcommands
to ingest parsed article JSON, search articles, or export the index.`,
}

// --- store subcommand ---

var libraryStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Ingest parsed article JSON into the library",
	Long: `Store reads article JSON files from library/parsed/, ingests them into
a SQLite database with FTS5 indexing, and writes an export file. Unchanged
files are skipped on subsequent runs.`,
	RunE: runLibraryStore,
}

func runLibraryStore(cmd *cobra.Command, args []string) error {
	store, err := library.NewStore(libraryConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d file(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- retrieve subcommand ---

var libraryRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Search the statute library",
	Long: `Retrieve searches indexed articles using FTS5 full-text search,
structured filters (law, article number), or a combination of both.

Use --laws to list the indexed statutes instead.`,
	RunE: runLibraryRetrieve,
}

func runLibraryRetrieve(cmd *cobra.Command, args []string) error {
	store, err := library.NewStore(libraryConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	if listLaws, _ := cmd.Flags().GetBool("laws"); listLaws {
		return printLaws(store)
	}

	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --law, or --article")
	}

	results, err := store.Retrieve(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRetrieveOutput(results, jsonOutput)
}

func printLaws(store *library.Store) error {
	laws, err := store.Laws(context.Background())
	if err != nil {
		return err
	}
	if len(laws) == 0 {
		fmt.Println("No statutes indexed.")
		return nil
	}
	for _, l := range laws {
		fmt.Fprintf(os.Stdout, "%s  (%d articles)\n", l.Title, l.ArticleCount)
	}
	fmt.Fprintf(os.Stdout, "\n%d statutes\n", len(laws))
	return nil
}

func formatRetrieveOutput(results []library.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, r := range results {
		fmt.Fprintf(os.Stdout, "%-4d  %s  %s\n", i+1, r.LawTitle, r.ArticleNumber)
		fmt.Fprintf(os.Stdout, "      %s\n", truncate(r.Content, 80))
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// truncate shortens s to at most n runes, appending an ellipsis.
// CJK text cannot be cut at byte offsets.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

// --- export subcommand ---

var libraryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the statute library to YAML or JSON",
	Long: `Export writes the full library (or a filtered subset) to
library/index/export.yaml or export.json. Supports the same filter flags
as retrieve for partial exports.`,
	RunE: runLibraryExport,
}

func runLibraryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := library.NewStore(libraryConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to library/index/export.yaml")
	case "json":
		if err := store.ExportJSON(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to library/index/export.json")
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- shared helpers ---

func libraryConfig(cmd *cobra.Command) types.LibraryConfig {
	libraryDir, _ := cmd.Flags().GetString("library-dir")
	if libraryDir == "" {
		libraryDir = "library"
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return types.LibraryConfig{
		LibraryDir: libraryDir,
		MaxResults: maxResults,
	}
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) library.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	lawID, _ := cmd.Flags().GetString("law")
	articleNumber, _ := cmd.Flags().GetString("article")
	limit, _ := cmd.Flags().GetInt("limit")

	return library.QueryOptions{
		Query:         queryText,
		LawID:         lawID,
		ArticleNumber: articleNumber,
		MaxResults:    limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	libraryCmd.PersistentFlags().String("library-dir", "library", "base directory for the library (contains parsed/, index/)")
	libraryCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")

	// Retrieve flags.
	libraryRetrieveCmd.Flags().String("query", "", "full-text search query")
	libraryRetrieveCmd.Flags().String("law", "", "filter by statute ID")
	libraryRetrieveCmd.Flags().String("article", "", "filter by article number, e.g. 第十条")
	libraryRetrieveCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	libraryRetrieveCmd.Flags().Bool("laws", false, "list indexed statutes instead of searching")
	libraryRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	libraryExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	libraryExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	libraryExportCmd.Flags().String("law", "", "filter by statute ID for partial export")
	libraryExportCmd.Flags().String("article", "", "filter by article number for partial export")
	libraryExportCmd.Flags().Int("limit", 0, "maximum articles to export (0 = all)")

	// Wire subcommands.
	libraryCmd.AddCommand(libraryStoreCmd)
	libraryCmd.AddCommand(libraryRetrieveCmd)
	libraryCmd.AddCommand(libraryExportCmd)

	rootCmd.AddCommand(libraryCmd)
}
