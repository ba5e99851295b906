// Package config holds the application configuration for regressoor:
// GitHub API access, artifact upload, and result publishing.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultGitHubAPIBaseURL is the public GitHub API endpoint.
	DefaultGitHubAPIBaseURL = "https://api.github.com"

	// DefaultReportMaxChars caps comment bodies under GitHub's 65536
	// character limit with headroom for the history section.
	DefaultReportMaxChars = 60000

	// githubTokenEnv overrides the configured token, matching how CI
	// workflows inject credentials.
	githubTokenEnv = "GITHUB_TOKEN"

	// pubsubTokenEnv carries the OAuth2 access token for Pub/Sub.
	pubsubTokenEnv = "PUBSUB_ACCESS_TOKEN"
)

// Config is the root configuration for regressoor.
type Config struct {
	Global    GlobalConfig    `yaml:"global"`
	GitHub    GitHubConfig    `yaml:"github"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	PubSub    PubSubConfig    `yaml:"pubsub"`
	Report    ReportConfig    `yaml:"report"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"`
}

// GitHubConfig contains GitHub API access settings. Token may be left
// empty and supplied via GITHUB_TOKEN.
type GitHubConfig struct {
	APIBaseURL string `yaml:"api_base_url"`
	Token      string `yaml:"token,omitempty"`
	Repo       string `yaml:"repo"`
	RepoURL    string `yaml:"repo_url,omitempty"`
}

// ArtifactsConfig contains artifact collection settings.
type ArtifactsConfig struct {
	S3 *S3UploadConfig `yaml:"s3,omitempty"`
}

// S3UploadConfig contains S3-compatible storage settings for artifact
// upload.
type S3UploadConfig struct {
	Enabled         bool   `yaml:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
	StorageClass    string `yaml:"storage_class,omitempty"`
	ACL             string `yaml:"acl,omitempty"`
}

// PubSubConfig contains result publishing settings. AccessToken may be
// left empty and supplied via PUBSUB_ACCESS_TOKEN.
type PubSubConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	ProjectID   string `yaml:"project_id"`
	TopicID     string `yaml:"topic_id"`
	AccessToken string `yaml:"access_token,omitempty"`
}

// ReportConfig contains report rendering settings.
type ReportConfig struct {
	MaxChars int `yaml:"max_chars"`
}

// Load reads and parses a configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Default returns a configuration with defaults applied, for runs
// without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()

	return cfg
}

// applyDefaults sets default values for unspecified configuration
// options and pulls credentials from the environment.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.GitHub.APIBaseURL == "" {
		c.GitHub.APIBaseURL = DefaultGitHubAPIBaseURL
	}

	if c.GitHub.Token == "" {
		c.GitHub.Token = os.Getenv(githubTokenEnv)
	}

	if c.GitHub.RepoURL == "" && c.GitHub.Repo != "" {
		c.GitHub.RepoURL = "https://github.com/" + c.GitHub.Repo
	}

	if c.PubSub.AccessToken == "" {
		c.PubSub.AccessToken = os.Getenv(pubsubTokenEnv)
	}

	if c.Report.MaxChars == 0 {
		c.Report.MaxChars = DefaultReportMaxChars
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Artifacts.S3 != nil && c.Artifacts.S3.Enabled && c.Artifacts.S3.Bucket == "" {
		return fmt.Errorf("artifacts.s3: bucket is required when enabled")
	}

	if c.PubSub.Enabled {
		if c.PubSub.ProjectID == "" {
			return fmt.Errorf("pubsub: project_id is required when enabled")
		}

		if c.PubSub.TopicID == "" {
			return fmt.Errorf("pubsub: topic_id is required when enabled")
		}
	}

	if c.Report.MaxChars < 0 {
		return fmt.Errorf("report: max_chars must not be negative")
	}

	return nil
}
