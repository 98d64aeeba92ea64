package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	berrors "bintly/internal/errors"
)

type loadOptions struct {
	envLookup  func(string) (string, bool)
	readFile   func(string) ([]byte, error)
	homeDir    func() (string, error)
	configPath string
	overrides  []func(*RuntimeConfig)
}

// Option customizes Load, mainly for tests.
type Option func(*loadOptions)

// WithEnv replaces the environment lookup.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(o *loadOptions) { o.envLookup = lookup }
}

// WithFileReader replaces the config file reader.
func WithFileReader(read func(string) ([]byte, error)) Option {
	return func(o *loadOptions) { o.readFile = read }
}

// WithHomeDir replaces home directory resolution.
func WithHomeDir(home func() (string, error)) Option {
	return func(o *loadOptions) { o.homeDir = home }
}

// WithConfigPath points Load at an explicit config file.
func WithConfigPath(path string) Option {
	return func(o *loadOptions) { o.configPath = path }
}

// WithOverride applies a caller override after file and env are resolved.
func WithOverride(fn func(*RuntimeConfig)) Option {
	return func(o *loadOptions) { o.overrides = append(o.overrides, fn) }
}

// Load resolves the runtime configuration.
func Load(opts ...Option) (RuntimeConfig, error) {
	options := loadOptions{
		envLookup: os.LookupEnv,
		readFile:  os.ReadFile,
		homeDir:   os.UserHomeDir,
	}
	for _, opt := range opts {
		opt(&options)
	}

	cfg := RuntimeConfig{
		BenchmarkVersion:    DefaultBenchmarkVersion,
		BenchmarkPath:       DefaultBenchmarkPath,
		RunsPath:            DefaultRunsPath,
		ResultsDir:          DefaultResultsDir,
		StatePath:           DefaultStatePath,
		MoltbookBaseURL:     DefaultMoltbookBaseURL,
		Submolt:             DefaultSubmolt,
		ASRSuccessWeight:    DefaultASRSuccessWeight,
		ASRQualityWeight:    DefaultASRQualityWeight,
		ASRAdherenceWeight:  DefaultASRAdherenceWeight,
		TokenRatioThreshold: DefaultTokenRatioThreshold,
		QualityMargin:       DefaultQualityMargin,
		MaxPostsPerRun:      DefaultMaxPostsPerRun,
		MaxRepliesPerPost:   DefaultMaxRepliesPerPost,
		MaxReplyTokens:      DefaultMaxReplyTokens,
		RecentErrorLimit:    DefaultRecentErrorLimit,
		DashboardHost:       DefaultDashboardHost,
		DashboardPort:       DefaultDashboardPort,
		TraceSampleRate:     1.0,
		LogLevel:            "info",
	}

	if err := applyFile(&cfg, options); err != nil {
		return RuntimeConfig{}, err
	}
	applyEnv(&cfg, options.envLookup)
	for _, override := range options.overrides {
		override(&cfg)
	}

	if err := validate(&cfg); err != nil {
		return RuntimeConfig{}, err
	}
	return cfg, nil
}

func applyFile(cfg *RuntimeConfig, options loadOptions) error {
	path := options.configPath
	if path == "" {
		if v, ok := options.envLookup("BINTLY_CONFIG"); ok && v != "" {
			path = v
		}
	}
	explicit := path != ""
	if path == "" {
		home, err := options.homeDir()
		if err != nil {
			return nil // no home dir, no default config file
		}
		path = filepath.Join(home, ".bintly", "config.yaml")
	}

	data, err := options.readFile(path)
	if err != nil {
		if explicit {
			return berrors.NewConfigurationError("config_file", "read %s: %v", path, err)
		}
		return nil // default location is optional
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return berrors.NewConfigurationError("config_file", "parse %s: %v", path, err)
	}
	mergeFile(cfg, fc)
	return nil
}

func mergeFile(cfg *RuntimeConfig, fc fileConfig) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}

	setString(&cfg.BenchmarkVersion, fc.BenchmarkVersion)
	setString(&cfg.BenchmarkPath, fc.BenchmarkPath)
	setString(&cfg.RunsPath, fc.RunsPath)
	setString(&cfg.ResultsDir, fc.ResultsDir)
	setString(&cfg.StatePath, fc.StatePath)
	setString(&cfg.MoltbookAPIKey, fc.MoltbookAPIKey)
	setString(&cfg.MoltbookBaseURL, fc.MoltbookBaseURL)
	setString(&cfg.Submolt, fc.Submolt)
	setFloat(&cfg.ASRSuccessWeight, fc.ASRSuccessWeight)
	setFloat(&cfg.ASRQualityWeight, fc.ASRQualityWeight)
	setFloat(&cfg.ASRAdherenceWeight, fc.ASRAdherenceWeight)
	setFloat(&cfg.TokenRatioThreshold, fc.TokenRatioThreshold)
	setFloat(&cfg.QualityMargin, fc.QualityMargin)
	setInt(&cfg.MaxPostsPerRun, fc.MaxPostsPerRun)
	setInt(&cfg.MaxRepliesPerPost, fc.MaxRepliesPerPost)
	setInt(&cfg.MaxReplyTokens, fc.MaxReplyTokens)
	setInt(&cfg.RecentErrorLimit, fc.RecentErrorLimit)
	setString(&cfg.DashboardHost, fc.DashboardHost)
	setInt(&cfg.DashboardPort, fc.DashboardPort)
	if fc.MetricsEnabled != nil {
		cfg.MetricsEnabled = *fc.MetricsEnabled
	}
	setInt(&cfg.MetricsPort, fc.MetricsPort)
	if fc.TracingEnabled != nil {
		cfg.TracingEnabled = *fc.TracingEnabled
	}
	setString(&cfg.TracingExporter, fc.TracingExporter)
	setString(&cfg.OTLPEndpoint, fc.OTLPEndpoint)
	setString(&cfg.ZipkinEndpoint, fc.ZipkinEndpoint)
	setFloat(&cfg.TraceSampleRate, fc.TraceSampleRate)
	setString(&cfg.LogLevel, fc.LogLevel)
}

func applyEnv(cfg *RuntimeConfig, lookup func(string) (string, bool)) {
	envString := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}
	envFloat := func(dst *float64, key string) {
		if v, ok := lookup(key); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				*dst = f
			}
		}
	}
	envInt := func(dst *int, key string) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}

	envString(&cfg.BenchmarkVersion, "BINTLY_BENCHMARK_VERSION")
	envString(&cfg.BenchmarkPath, "BINTLY_BENCHMARK_PATH")
	envString(&cfg.RunsPath, "BINTLY_RUNS_PATH", "SWARM_RUNS_PATH")
	envString(&cfg.ResultsDir, "BINTLY_RESULTS_DIR")
	envString(&cfg.StatePath, "BINTLY_STATE_PATH")
	// MOLTBOOK_API_KEY is canonical; BINTLY_API_KEY is a legacy alias.
	envString(&cfg.MoltbookAPIKey, "MOLTBOOK_API_KEY", "BINTLY_API_KEY")
	envString(&cfg.MoltbookBaseURL, "MOLTBOOK_API_URL")
	envString(&cfg.Submolt, "BINTLY_SUBMOLT")
	envFloat(&cfg.ASRSuccessWeight, "BINTLY_ASR_SUCCESS_WEIGHT")
	envFloat(&cfg.ASRQualityWeight, "BINTLY_ASR_QUALITY_WEIGHT")
	envFloat(&cfg.ASRAdherenceWeight, "BINTLY_ASR_ADHERENCE_WEIGHT")
	envFloat(&cfg.TokenRatioThreshold, "BINTLY_TOKEN_RATIO_THRESHOLD")
	envFloat(&cfg.QualityMargin, "BINTLY_QUALITY_MARGIN")
	envInt(&cfg.MaxRepliesPerPost, "BINTLY_MAX_REPLIES_PER_POST")
	envInt(&cfg.MaxReplyTokens, "BINTLY_MAX_REPLY_TOKENS")
	envString(&cfg.DashboardHost, "BINTLY_DASHBOARD_HOST")
	envInt(&cfg.DashboardPort, "BINTLY_DASHBOARD_PORT")
	if v, ok := lookup("BINTLY_METRICS_ENABLED"); ok {
		cfg.MetricsEnabled = strings.EqualFold(strings.TrimSpace(v), "true") || strings.TrimSpace(v) == "1"
	}
	envInt(&cfg.MetricsPort, "BINTLY_METRICS_PORT")
	envString(&cfg.LogLevel, "BINTLY_LOG_LEVEL")
}

func validate(cfg *RuntimeConfig) error {
	if cfg.BenchmarkVersion == "" {
		return berrors.NewConfigurationError("benchmark_version", "must not be empty")
	}
	if cfg.TokenRatioThreshold <= 0 {
		return berrors.NewConfigurationError("token_ratio_threshold", "must be positive, got %v", cfg.TokenRatioThreshold)
	}
	if cfg.QualityMargin < 0 {
		return berrors.NewConfigurationError("quality_margin", "must not be negative, got %v", cfg.QualityMargin)
	}
	if cfg.MaxPostsPerRun != 1 {
		return berrors.NewConfigurationError("max_posts_per_run", "fixed at 1 by policy, got %d", cfg.MaxPostsPerRun)
	}
	if cfg.MaxRepliesPerPost < 0 {
		return berrors.NewConfigurationError("max_replies_per_post", "must not be negative, got %d", cfg.MaxRepliesPerPost)
	}
	if cfg.MaxReplyTokens <= 0 {
		return berrors.NewConfigurationError("max_reply_tokens", "must be positive, got %d", cfg.MaxReplyTokens)
	}
	if cfg.RecentErrorLimit <= 0 {
		return berrors.NewConfigurationError("recent_error_limit", "must be positive, got %d", cfg.RecentErrorLimit)
	}
	return nil
}

// SummaryPath returns the path of the aggregated summary document.
func (c RuntimeConfig) SummaryPath() string {
	return filepath.Join(c.ResultsDir, "summary_v1.json")
}

// ArtifactPath returns the path of the latest internal evaluation artifact.
func (c RuntimeConfig) ArtifactPath() string {
	return filepath.Join(c.ResultsDir, "internal_evaluation.json")
}

// ArtifactNarrativePath returns the path of the narrative rendering.
func (c RuntimeConfig) ArtifactNarrativePath() string {
	return filepath.Join(c.ResultsDir, "internal_evaluation.txt")
}

// ArchivedArtifactPath returns a timestamped artifact path so a new
// aggregation pass never patches an old artifact.
func (c RuntimeConfig) ArchivedArtifactPath(stamp string) string {
	return filepath.Join(c.ResultsDir, fmt.Sprintf("internal_evaluation_%s.json", stamp))
}
