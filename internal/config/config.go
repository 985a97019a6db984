// Package config provides configuration loading for repopackd.
//
// Values come from hardcoded defaults, an optional YAML file and
// REPOPACKD_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete repopackd configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Job       JobConfig       `koanf:"job"`
	Fetch     FetchConfig     `koanf:"fetch"`
	Pack      PackConfig      `koanf:"pack"`
	Tokens    TokensConfig    `koanf:"tokens"`
	Artifacts ArtifactsConfig `koanf:"artifacts"`
	NATS      NATSConfig      `koanf:"nats"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// RatePerMinute limits job creation per client IP. Zero disables limiting.
	RatePerMinute int `koanf:"rate_per_minute"`
	RateBurst     int `koanf:"rate_burst"`
}

// JobConfig holds orchestrator defaults. Request fields override the
// size values per job.
type JobConfig struct {
	TempRoot         string        `koanf:"temp_root"`
	SizeThresholdMB  float64       `koanf:"size_threshold_mb"`
	MaxSourceSizeMB  float64       `koanf:"max_source_size_mb"`
	CloneTimeout     time.Duration `koanf:"clone_timeout"`
	SelectionTimeout time.Duration `koanf:"selection_timeout"`
	TopN             int           `koanf:"top_n"`
}

// FetchConfig controls source metadata queries and cloning.
type FetchConfig struct {
	GitBinary    string   `koanf:"git_binary"`
	CloneDepth   int      `koanf:"clone_depth"`
	AllowedHosts []string `koanf:"allowed_hosts"`
	// APIBaseURL overrides the GitHub REST endpoint (tests, GitHub Enterprise).
	APIBaseURL  string `koanf:"api_base_url"`
	GitHubToken Secret `koanf:"github_token"`
}

// PackConfig holds packing engine defaults.
type PackConfig struct {
	OutputStyle        string `koanf:"output_style"`
	SecurityCheck      bool   `koanf:"security_check"`
	UseGitignore       bool   `koanf:"use_gitignore"`
	UseDefaultPatterns bool   `koanf:"use_default_patterns"`
	ShowLineNumbers    bool   `koanf:"show_line_numbers"`
	RemoveEmptyLines   bool   `koanf:"remove_empty_lines"`
	TopFiles           int    `koanf:"top_files"`
}

// TokensConfig selects the token estimator.
type TokensConfig struct {
	Estimator string `koanf:"estimator"`
	MaxBytes  int64  `koanf:"max_bytes"`
}

// ArtifactsConfig controls where completed artifacts are persisted.
type ArtifactsConfig struct {
	Backend       string        `koanf:"backend"`
	Dir           string        `koanf:"dir"`
	Bucket        string        `koanf:"bucket"`
	Retention     time.Duration `koanf:"retention"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// NATSConfig holds the NATS connection used by the artifact store and the
// job event mirror.
type NATSConfig struct {
	URL           string `koanf:"url"`
	PublishEvents bool   `koanf:"publish_events"`
}

// LoggingConfig mirrors the subset of logging options exposed to operators.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Output string `koanf:"output"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	Protocol    string  `koanf:"protocol"`
	Insecure    bool    `koanf:"insecure"`
	Logs        bool    `koanf:"logs"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Pack.SecurityCheck = true
	cfg.Pack.UseGitignore = true
	cfg.Pack.UseDefaultPatterns = true
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RatePerMinute < 0 || c.Server.RateBurst < 0 {
		return errors.New("rate limit values cannot be negative")
	}

	if c.Job.SizeThresholdMB <= 0 {
		return fmt.Errorf("job.size_threshold_mb must be positive, got %v", c.Job.SizeThresholdMB)
	}
	if c.Job.MaxSourceSizeMB <= 0 {
		return fmt.Errorf("job.max_source_size_mb must be positive, got %v", c.Job.MaxSourceSizeMB)
	}
	if c.Job.CloneTimeout <= 0 || c.Job.SelectionTimeout <= 0 {
		return errors.New("job timeouts must be positive")
	}
	if c.Job.TopN < 1 {
		return fmt.Errorf("job.top_n must be at least 1, got %d", c.Job.TopN)
	}

	if c.Fetch.CloneDepth < 1 {
		return fmt.Errorf("fetch.clone_depth must be at least 1, got %d", c.Fetch.CloneDepth)
	}
	if len(c.Fetch.AllowedHosts) == 0 {
		return errors.New("fetch.allowed_hosts cannot be empty")
	}

	switch c.Pack.OutputStyle {
	case "markdown", "xml":
	default:
		return fmt.Errorf("pack.output_style must be 'markdown' or 'xml', got %q", c.Pack.OutputStyle)
	}

	switch c.Tokens.Estimator {
	case "none", "heuristic":
	default:
		return fmt.Errorf("tokens.estimator must be 'none' or 'heuristic', got %q", c.Tokens.Estimator)
	}

	switch c.Artifacts.Backend {
	case "none":
	case "file":
		if c.Artifacts.Dir == "" {
			return errors.New("artifacts.dir is required for the file backend")
		}
	case "nats":
		if c.NATS.URL == "" {
			return errors.New("nats.url is required for the nats backend")
		}
	default:
		return fmt.Errorf("artifacts.backend must be none, file or nats, got %q", c.Artifacts.Backend)
	}
	if c.Artifacts.Retention <= 0 || c.Artifacts.SweepInterval <= 0 {
		return errors.New("artifact retention and sweep interval must be positive")
	}

	if c.NATS.PublishEvents && c.NATS.URL == "" {
		return errors.New("nats.url is required when nats.publish_events is set")
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry.endpoint is required when telemetry is enabled")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %f", c.Telemetry.SampleRate)
	}

	return nil
}
