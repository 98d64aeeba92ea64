// Package config loads the runtime configuration for the benchmark
// evaluation pipeline and the Bintly orchestrator. Precedence, lowest to
// highest: built-in defaults, YAML config file, environment, caller
// overrides.
package config

// RuntimeConfig is the resolved configuration threaded explicitly through
// every aggregation and orchestrator call. There is no hidden "current
// benchmark version" global.
type RuntimeConfig struct {
	// Benchmark inputs.
	BenchmarkVersion string `yaml:"benchmark_version"`
	BenchmarkPath    string `yaml:"benchmark_path"`
	RunsPath         string `yaml:"runs_path"`
	ResultsDir       string `yaml:"results_dir"`

	// Orchestrator persisted state.
	StatePath string `yaml:"state_path"`

	// Moltbook API.
	MoltbookAPIKey  string `yaml:"moltbook_api_key"`
	MoltbookBaseURL string `yaml:"moltbook_base_url"`
	Submolt         string `yaml:"submolt"`

	// ASR weighting. Must be non-negative and sum to 1; validated by the
	// aggregator before any summary is produced.
	ASRSuccessWeight   float64 `yaml:"asr_success_weight"`
	ASRQualityWeight   float64 `yaml:"asr_quality_weight"`
	ASRAdherenceWeight float64 `yaml:"asr_adherence_weight"`

	// Helped/hurt classification policy.
	TokenRatioThreshold float64 `yaml:"token_ratio_threshold"`
	QualityMargin       float64 `yaml:"quality_margin"`

	// Orchestrator limits. Do not raise these without a policy review.
	MaxPostsPerRun    int `yaml:"max_posts_per_run"`
	MaxRepliesPerPost int `yaml:"max_replies_per_post"`
	MaxReplyTokens    int `yaml:"max_reply_tokens"`
	RecentErrorLimit  int `yaml:"recent_error_limit"`

	// Dashboard server.
	DashboardHost string `yaml:"dashboard_host"`
	DashboardPort int    `yaml:"dashboard_port"`

	// Pipeline metrics (optional). MetricsPort of 0 keeps the counters
	// registered without a dedicated scrape port.
	MetricsEnabled bool `yaml:"metrics_enabled"`
	MetricsPort    int  `yaml:"metrics_port"`

	// Tracing (optional).
	TracingEnabled  bool    `yaml:"tracing_enabled"`
	TracingExporter string  `yaml:"tracing_exporter"` // otlp, zipkin
	OTLPEndpoint    string  `yaml:"otlp_endpoint"`
	ZipkinEndpoint  string  `yaml:"zipkin_endpoint"`
	TraceSampleRate float64 `yaml:"trace_sample_rate"`

	LogLevel string `yaml:"log_level"`
}

// fileConfig mirrors RuntimeConfig with pointer fields so the YAML file can
// override only the keys it sets.
type fileConfig struct {
	BenchmarkVersion *string `yaml:"benchmark_version,omitempty"`
	BenchmarkPath    *string `yaml:"benchmark_path,omitempty"`
	RunsPath         *string `yaml:"runs_path,omitempty"`
	ResultsDir       *string `yaml:"results_dir,omitempty"`

	StatePath *string `yaml:"state_path,omitempty"`

	MoltbookAPIKey  *string `yaml:"moltbook_api_key,omitempty"`
	MoltbookBaseURL *string `yaml:"moltbook_base_url,omitempty"`
	Submolt         *string `yaml:"submolt,omitempty"`

	ASRSuccessWeight   *float64 `yaml:"asr_success_weight,omitempty"`
	ASRQualityWeight   *float64 `yaml:"asr_quality_weight,omitempty"`
	ASRAdherenceWeight *float64 `yaml:"asr_adherence_weight,omitempty"`

	TokenRatioThreshold *float64 `yaml:"token_ratio_threshold,omitempty"`
	QualityMargin       *float64 `yaml:"quality_margin,omitempty"`

	MaxPostsPerRun    *int `yaml:"max_posts_per_run,omitempty"`
	MaxRepliesPerPost *int `yaml:"max_replies_per_post,omitempty"`
	MaxReplyTokens    *int `yaml:"max_reply_tokens,omitempty"`
	RecentErrorLimit  *int `yaml:"recent_error_limit,omitempty"`

	DashboardHost *string `yaml:"dashboard_host,omitempty"`
	DashboardPort *int    `yaml:"dashboard_port,omitempty"`

	MetricsEnabled *bool `yaml:"metrics_enabled,omitempty"`
	MetricsPort    *int  `yaml:"metrics_port,omitempty"`

	TracingEnabled  *bool    `yaml:"tracing_enabled,omitempty"`
	TracingExporter *string  `yaml:"tracing_exporter,omitempty"`
	OTLPEndpoint    *string  `yaml:"otlp_endpoint,omitempty"`
	ZipkinEndpoint  *string  `yaml:"zipkin_endpoint,omitempty"`
	TraceSampleRate *float64 `yaml:"trace_sample_rate,omitempty"`

	LogLevel *string `yaml:"log_level,omitempty"`
}

// Default values. The ASR weights are the stake-holder agreed split: success
// carries half the score, quality and adherence split the rest.
const (
	DefaultBenchmarkVersion = "sv-v1"
	DefaultBenchmarkPath    = "benchmark_v1.json"
	DefaultRunsPath         = "runs.jsonl"
	DefaultResultsDir       = "results"
	DefaultStatePath        = ".bintly_orchestrator_state.json"

	DefaultMoltbookBaseURL = "https://www.moltbook.com/api/v1"
	DefaultSubmolt         = "general"

	DefaultTokenRatioThreshold = 1.5
	DefaultQualityMargin       = 0.5

	DefaultMaxPostsPerRun    = 1
	DefaultMaxRepliesPerPost = 3
	DefaultMaxReplyTokens    = 150
	DefaultRecentErrorLimit  = 20

	DefaultDashboardHost = "localhost"
	DefaultDashboardPort = 8089
)

const (
	DefaultASRSuccessWeight   = 0.5
	DefaultASRQualityWeight   = 0.3
	DefaultASRAdherenceWeight = 0.2
)
