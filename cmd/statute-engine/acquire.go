// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/statute-engine/internal/acquire"
	"github.com/pdiddy/statute-engine/pkg/types"
)

const defaultDownloadDelay = 1 * time.Second

var acquireCmd = &cobra.Command{
	Use:   "acquire [manifest]",
	Short: "Download statute files listed in a manifest",
	Long: `Acquire reads a database-dump manifest of statute records, resolves each
row's object-store path against the download base URL, and downloads the
files into the laws directory. Files already present are skipped, and a
failed download never aborts the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: runAcquire,
}

func init() {
	acquireCmd.Flags().String("base-url", "", "object-store base URL prepended to manifest paths")
	acquireCmd.Flags().String("laws-dir", "laws", "directory for downloaded statute files")
	acquireCmd.Flags().Duration("delay", 0, "delay between consecutive downloads (default 1s)")
	acquireCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")

	rootCmd.AddCommand(acquireCmd)
}

func runAcquire(cmd *cobra.Command, args []string) error {
	baseURL, _ := cmd.Flags().GetString("base-url")
	if baseURL == "" {
		baseURL = viper.GetString("download_base_url")
	}
	if baseURL == "" {
		return fmt.Errorf("download base URL required: set --base-url or download_base_url in the config")
	}

	lawsDir, _ := cmd.Flags().GetString("laws-dir")
	delay, _ := cmd.Flags().GetDuration("delay")
	if delay == 0 {
		delay = defaultDownloadDelay
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}

	cfg := types.AcquisitionConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		BaseURL:       baseURL,
		DownloadDelay: delay,
		LawsDir:       lawsDir,
	}

	entries, err := acquire.ParseManifest(args[0], baseURL, os.Stdout)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no downloadable entries in %s", args[0])
	}

	client := &http.Client{Timeout: cfg.Timeout}

	result, err := acquire.AcquireAll(context.Background(), client, entries, cfg, os.Stdout)
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed to download", result.Failed)
	}
	return nil
}
