package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "statute-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LLMConfig holds shared settings for stages that call an OpenAI-compatible
// chat-completions service.
type LLMConfig struct {
	// Model is the model identifier (e.g. "qwen-plus-latest").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the service. An empty key
	// selects the local heuristic normalization path for the whole run.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL is the service endpoint base (e.g.
	// "https://dashscope.aliyuncs.com/compatible-mode/v1").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RequestDelay is the minimum delay between consecutive service
	// calls (default 500ms).
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay"`
}

// ParseConfig holds settings for the parse pipeline.
type ParseConfig struct {
	LLMConfig `yaml:",inline"`

	// Format forces the input format; empty means detect by extension.
	Format Format `json:"format,omitempty" yaml:"format,omitempty"`

	// OutputPath is where the article JSON array is written.
	OutputPath string `json:"output_path" yaml:"output_path"`
}

// AcquisitionConfig holds settings for the acquisition stage.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the object-store prefix prepended to manifest paths.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// DownloadDelay is the delay between consecutive downloads (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`

	// LawsDir is the directory downloaded statute files are written to.
	LawsDir string `json:"laws_dir" yaml:"laws_dir"`
}

// LibraryConfig holds settings for the article library.
type LibraryConfig struct {
	// LibraryDir is the base directory for the library (contains parsed/, index/).
	LibraryDir string `json:"library_dir" yaml:"library_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// UploadConfig holds settings for the knowledge-base upload stage.
type UploadConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the dataset endpoint of the knowledge-base API
	// (e.g. "http://kb.example.com/v1/datasets/<id>").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Token is the bearer token for the knowledge-base API.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// UploadDelay is the delay between consecutive uploads (default 1s).
	UploadDelay time.Duration `json:"upload_delay" yaml:"upload_delay"`

	// LogPath is the JSON file recording successfully uploaded files.
	LogPath string `json:"log_path" yaml:"log_path"`

	// FailedLogPath is the JSON file recording failed uploads.
	FailedLogPath string `json:"failed_log_path" yaml:"failed_log_path"`
}
