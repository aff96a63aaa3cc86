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

	"github.com/pdiddy/statute-engine/internal/secrets"
	"github.com/pdiddy/statute-engine/internal/upload"
	"github.com/pdiddy/statute-engine/pkg/types"
)

const (
	defaultUploadDelay = 5 * time.Second

	// Uploads can carry large documents.
	defaultUploadTimeout = 5 * time.Minute
)

var uploadCmd = &cobra.Command{
	Use:   "upload [dir]",
	Short: "Upload statute files to the knowledge-base API",
	Long: `Upload sends every file under a directory to the knowledge-base
dataset API as multipart form data with custom indexing rules. Files
recorded in the upload log are skipped; failures land in the failed log
with a retry count and are retried on the next run.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

var uploadSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the upload log from the knowledge-base API",
	Long: `Sync pages through the knowledge-base document listing and rewrites
the upload log keyed by file name, so uploads from other machines are not
re-sent. Local file paths are filled in when --local-dir contains a
matching file.`,
	RunE: runUploadSync,
}

func init() {
	uploadCmd.PersistentFlags().String("base-url", "", "knowledge-base dataset endpoint (…/v1/datasets/[id])")
	uploadCmd.PersistentFlags().String("token", "", "knowledge-base API token (default: .secrets/kb-api-token)")
	uploadCmd.PersistentFlags().String("log", "uploaded_files_log.json", "upload log path")
	uploadCmd.PersistentFlags().String("failed-log", "failed_files_log.json", "failed upload log path")
	uploadCmd.Flags().Duration("delay", 0, "delay between consecutive uploads (default 5s)")
	uploadCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 5m)")

	uploadSyncCmd.Flags().String("local-dir", "", "local directory to match document names against")

	uploadCmd.AddCommand(uploadSyncCmd)
	rootCmd.AddCommand(uploadCmd)
}

func uploadConfigFromFlags(cmd *cobra.Command) (types.UploadConfig, error) {
	baseURL, _ := cmd.Flags().GetString("base-url")
	if baseURL == "" {
		baseURL = viper.GetString("kb_base_url")
	}
	if baseURL == "" {
		return types.UploadConfig{}, fmt.Errorf("knowledge-base endpoint required: set --base-url or kb_base_url in the config")
	}

	token, _ := cmd.Flags().GetString("token")
	token = secretDefault(secrets.KeyKB, token)
	if token == "" {
		return types.UploadConfig{}, fmt.Errorf("knowledge-base token required: set --token or .secrets/%s", secrets.KeyKB)
	}

	logPath, _ := cmd.Flags().GetString("log")
	failedLogPath, _ := cmd.Flags().GetString("failed-log")
	delay, _ := cmd.Flags().GetDuration("delay")
	if delay == 0 {
		delay = defaultUploadDelay
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultUploadTimeout
	}

	return types.UploadConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		BaseURL:       baseURL,
		Token:         token,
		UploadDelay:   delay,
		LogPath:       logPath,
		FailedLogPath: failedLogPath,
	}, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := uploadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	files, err := upload.CollectFiles(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found under %s", args[0])
	}

	client := &http.Client{Timeout: cfg.Timeout}

	result, err := upload.UploadAll(context.Background(), client, files, cfg, os.Stdout)
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed to upload (recorded in %s)", result.Failed, cfg.FailedLogPath)
	}
	return nil
}

func runUploadSync(cmd *cobra.Command, args []string) error {
	cfg, err := uploadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	localDir, _ := cmd.Flags().GetString("local-dir")

	client := &http.Client{Timeout: cfg.Timeout}

	_, err = upload.Sync(context.Background(), client, cfg, localDir, os.Stdout)
	return err
}
