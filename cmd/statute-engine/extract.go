package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/statute-engine/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract [paths...]",
	Short: "Convert DOCX and PDF statute files to plain text",
	Long: `Extract converts binary statute documents (.doc, .docx, .pdf) to UTF-8
plain text files next to the input (or under --out-dir). Directories are
scanned one level deep. Files whose text output is newer than the source
are skipped, so reruns only convert what changed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("out-dir", "", "directory for .txt output (default: next to each input)")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("out-dir")

	files, err := extract.CollectInputs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no convertible files (.doc, .docx, .pdf) found")
	}

	result := extract.ExtractBatch(files, outDir, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", result.Failed)
	}
	return nil
}
