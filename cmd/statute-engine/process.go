package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/statute-engine/internal/process"
)

var processCmd = &cobra.Command{
	Use:   "process [input.json] [output.json]",
	Short: "Flatten and validate nested article JSON",
	Long: `Process repairs article JSON produced by older parser runs: nested
arrays are flattened into a single ordered list, records are validated for
non-empty article_number and content fields, and the result is rewritten
as a clean JSON array. Validation problems are reported but do not stop
the rewrite.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := processedPath(input)
	if len(args) == 2 {
		output = args[1]
	}

	report, err := process.File(input, output, os.Stdout)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "kept %d articles (%d flattened, %d dropped) -> %s\n",
		report.Kept, report.Flattened, report.Dropped, output)
	return nil
}

// processedPath derives the default output name, e.g. a.json -> a_processed.json.
func processedPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_processed" + ext
}
