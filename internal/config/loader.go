package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix is stripped from environment variables before mapping.
	EnvPrefix = "REPOPACKD_"
)

// LoadWithFile loads configuration from a YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (REPOPACKD_SERVER_HTTP_PORT, REPOPACKD_JOB_TOP_N, etc.)
//  2. YAML config file (~/.config/repopackd/config.yaml)
//  3. Hardcoded defaults
//
// An empty configPath selects the default path. A missing file is not an
// error.
//
// # Security Considerations
//
// The file must live under ~/.config/repopackd/ or /etc/repopackd/, carry
// 0600 or 0400 permissions and be at most 1MB.
//
// # Environment Variable Mapping
//
// After the prefix is removed the name is lowercased and split on the first
// underscore into section and field:
//
//	REPOPACKD_SERVER_HTTP_PORT       -> server.http_port
//	REPOPACKD_JOB_SIZE_THRESHOLD_MB  -> job.size_threshold_mb
//	REPOPACKD_FETCH_ALLOWED_HOSTS    -> fetch.allowed_hosts (comma separated)
//
// GITHUB_TOKEN is honored when REPOPACKD_FETCH_GITHUB_TOKEN is unset.
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "repopackd", "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}
	if _, err := os.Stat(configPath); err == nil {
		// Validate through the open descriptor to avoid a TOCTOU race.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Unmarshal over the defaults so booleans that default to true survive
	// when the key is absent.
	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(cfg)

	if !cfg.Fetch.GitHubToken.IsSet() {
		cfg.Fetch.GitHubToken = Secret(os.Getenv("GITHUB_TOKEN"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// envKey maps REPOPACKD_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// EnsureConfigDir creates ~/.config/repopackd with 0700 permissions.
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".config", "repopackd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	return nil
}

// validateConfigPath checks that path is inside an allowed directory. It
// runs even if the file does not exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Follow symlinks so a link cannot escape the allowed directories.
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	allowedDirs := []string{
		filepath.Join(home, ".config", "repopackd"),
		"/etc/repopackd",
	}
	for _, dir := range allowedDirs {
		if resolvedPath == dir || strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/repopackd/ or /etc/repopackd/")
}

// validateConfigFileProperties checks file permissions and size using
// FileInfo from an already-opened descriptor.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	// Job defaults
	if cfg.Job.TempRoot == "" {
		cfg.Job.TempRoot = filepath.Join(os.TempDir(), "repopackd")
	}
	if cfg.Job.SizeThresholdMB == 0 {
		cfg.Job.SizeThresholdMB = 1
	}
	if cfg.Job.MaxSourceSizeMB == 0 {
		cfg.Job.MaxSourceSizeMB = 100
	}
	if cfg.Job.CloneTimeout == 0 {
		cfg.Job.CloneTimeout = 60 * time.Second
	}
	if cfg.Job.SelectionTimeout == 0 {
		cfg.Job.SelectionTimeout = 100 * time.Second
	}
	if cfg.Job.TopN == 0 {
		cfg.Job.TopN = 10
	}

	// Fetch defaults
	if cfg.Fetch.GitBinary == "" {
		cfg.Fetch.GitBinary = "git"
	}
	if cfg.Fetch.CloneDepth == 0 {
		cfg.Fetch.CloneDepth = 1
	}
	if len(cfg.Fetch.AllowedHosts) == 0 {
		cfg.Fetch.AllowedHosts = []string{"github.com"}
	}

	// Pack defaults
	if cfg.Pack.OutputStyle == "" {
		cfg.Pack.OutputStyle = "markdown"
	}
	if cfg.Pack.TopFiles == 0 {
		cfg.Pack.TopFiles = 10
	}

	// Token estimator defaults
	if cfg.Tokens.Estimator == "" {
		cfg.Tokens.Estimator = "none"
	}
	if cfg.Tokens.MaxBytes == 0 {
		cfg.Tokens.MaxBytes = 1 << 20
	}

	// Artifact defaults
	if cfg.Artifacts.Backend == "" {
		cfg.Artifacts.Backend = "none"
	}
	if cfg.Artifacts.Bucket == "" {
		cfg.Artifacts.Bucket = "repopack-artifacts"
	}
	if cfg.Artifacts.Retention == 0 {
		cfg.Artifacts.Retention = 30 * 24 * time.Hour
	}
	if cfg.Artifacts.SweepInterval == 0 {
		cfg.Artifacts.SweepInterval = 24 * time.Hour
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	// Telemetry defaults
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "repopackd"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
}
