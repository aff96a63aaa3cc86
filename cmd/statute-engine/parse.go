// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/statute-engine/internal/emit"
	"github.com/pdiddy/statute-engine/internal/loader"
	"github.com/pdiddy/statute-engine/internal/normalize"
	"github.com/pdiddy/statute-engine/internal/secrets"
	"github.com/pdiddy/statute-engine/internal/segment"
	"github.com/pdiddy/statute-engine/pkg/types"
)

const (
	defaultModel      = "qwen-plus-latest"
	defaultLLMBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultInputFile  = "1.中华人民共和国民法典.docx"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Segment a statute document into normalized article JSON",
	Long: `Parse loads a statute document (plain text, DOCX, or PDF), splits it
into article blocks at 第X条 headings, normalizes each block, and writes a
JSON array of {article_number, content} records.

With an API key (flag, config, or .secrets/llm-api-key) each block is
normalized by an OpenAI-compatible chat-completions service; blocks whose
service calls fail fall back to local heuristic normalization, so the
output always contains one record per detected article. Without a key the
whole document is normalized heuristically.

Without an argument, parse reads 1.中华人民共和国民法典.docx from the current
directory (override with the input config key).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringP("output", "o", "", "output JSON path (default: library/parsed/[name].json)")
	parseCmd.Flags().String("format", "", "input format: text, docx, or pdf (default: by extension)")
	parseCmd.Flags().String("model", "", "chat-completions model identifier")
	parseCmd.Flags().String("base-url", "", "chat-completions endpoint base URL")
	parseCmd.Flags().String("api-key", "", "chat-completions API key")
	parseCmd.Flags().Bool("heuristic", false, "skip the service and normalize locally")
	parseCmd.Flags().Int("max-retries", 0, "retry attempts per service call (default 3)")
	parseCmd.Flags().Duration("request-delay", 0, "minimum delay between service calls (default 500ms)")
	parseCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	inputPath := defaultInputFile
	if v := viper.GetString("input"); v != "" {
		inputPath = v
	}
	if len(args) == 1 {
		inputPath = args[0]
	}

	cfg, err := parseConfigFromFlags(cmd, inputPath)
	if err != nil {
		return err
	}

	doc, err := loader.Load(inputPath, cfg.Format)
	if err != nil {
		return err
	}

	blocks := segment.Split(doc.Text)
	fmt.Fprintf(os.Stdout, "%s: %d articles detected\n", filepath.Base(inputPath), len(blocks))

	backend, mode := selectBackend(cmd, cfg, doc.Text)
	fmt.Fprintf(os.Stdout, "normalization: %s\n", mode)

	articles, summary, err := normalize.Normalize(context.Background(), backend, blocks, cfg.LLMConfig, os.Stdout)
	if err != nil {
		return err
	}

	if err := emit.WriteArticles(cfg.OutputPath, articles); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "wrote %d articles to %s", summary.Total(), cfg.OutputPath)
	if summary.FellBack > 0 {
		fmt.Fprintf(os.Stdout, " (%d via fallback)", summary.FellBack)
	}
	fmt.Fprintln(os.Stdout)
	return nil
}

func parseConfigFromFlags(cmd *cobra.Command, inputPath string) (types.ParseConfig, error) {
	format, _ := cmd.Flags().GetString("format")
	var f types.Format
	switch strings.ToLower(format) {
	case "":
		f = loader.DetectFormat(inputPath)
	case "text", "txt":
		f = types.FormatText
	case "docx", "doc":
		f = types.FormatDocx
	case "pdf":
		f = types.FormatPDF
	default:
		return types.ParseConfig{}, fmt.Errorf("unknown format %q: use text, docx, or pdf", format)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		output = filepath.Join("library", "parsed", base+".json")
	}

	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("model")
	}
	if model == "" {
		model = defaultModel
	}

	baseURL, _ := cmd.Flags().GetString("base-url")
	if baseURL == "" {
		baseURL = viper.GetString("base_url")
	}
	if baseURL == "" {
		baseURL = defaultLLMBaseURL
	}

	apiKey, _ := cmd.Flags().GetString("api-key")
	apiKey = secretDefault(secrets.KeyLLM, apiKey)

	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	requestDelay, _ := cmd.Flags().GetDuration("request-delay")

	return types.ParseConfig{
		LLMConfig: types.LLMConfig{
			Model:        model,
			APIKey:       apiKey,
			BaseURL:      baseURL,
			MaxRetries:   maxRetries,
			RequestDelay: requestDelay,
		},
		Format:     f,
		OutputPath: output,
	}, nil
}

// selectBackend picks the chat backend when a key is available and the
// heuristic wasn't forced, the heuristic otherwise.
func selectBackend(cmd *cobra.Command, cfg types.ParseConfig, text string) (normalize.Backend, string) {
	forced, _ := cmd.Flags().GetBool("heuristic")
	if forced || cfg.APIKey == "" {
		return normalize.Heuristic{}, "local heuristic"
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &normalize.ChatBackend{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Context: segment.Context(text),
		Client:  &http.Client{Timeout: timeout},
	}, cfg.Model
}
