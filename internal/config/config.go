package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	CoreDatabaseURL string
	// CoreDatabaseMaxConns caps the pool per process; zero keeps the pgxpool default.
	CoreDatabaseMaxConns int32
	TemporalAddress      string
	// TemporalNamespace also bounds how long finished jobs stay inspectable:
	// closed executions are kept for the namespace retention period.
	TemporalNamespace string
	TaskQueue         string
	HTTPListenAddr    string
	MetricsListenAddr string
	LogLevel          string
	ServiceName       string
	NodeID            string

	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string

	// EncryptionSecret is the master secret secret env var values are sealed with.
	EncryptionSecret string
	// PublicDomain is the zone public service URLs are issued under.
	PublicDomain string

	GitHubAppID          int64
	GitHubPrivateKeyPath string
	GitHubAPIURL         string
	RedisURL             string

	ExecutorURL   string
	ExecutorToken string

	NotifyWebhookURL      string
	NotifyWebhookTemplate string
}

func Load() (*Config, error) {
	cfg := &Config{
		CoreDatabaseURL:       getEnv("CORE_DATABASE_URL", ""),
		TemporalAddress:       getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace:     getEnv("TEMPORAL_NAMESPACE", "default"),
		TaskQueue:             getEnv("TASK_QUEUE", "kubidu-tasks"),
		HTTPListenAddr:        getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsListenAddr:     getEnv("METRICS_LISTEN_ADDR", ":9090"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		ServiceName:           getEnv("SERVICE_NAME", ""),
		NodeID:                getEnv("NODE_ID", ""),
		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),
		EncryptionSecret:      getEnv("ENCRYPTION_SECRET", ""),
		PublicDomain:          getEnv("PUBLIC_DOMAIN", "kubidu.app"),
		GitHubPrivateKeyPath:  getEnv("GITHUB_PRIVATE_KEY_PATH", ""),
		GitHubAPIURL:          getEnv("GITHUB_API_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		ExecutorURL:           getEnv("EXECUTOR_URL", ""),
		ExecutorToken:         getEnv("EXECUTOR_TOKEN", ""),
		NotifyWebhookURL:      getEnv("NOTIFY_WEBHOOK_URL", ""),
		NotifyWebhookTemplate: getEnv("NOTIFY_WEBHOOK_TEMPLATE", "generic"),
	}

	if v := getEnv("CORE_DATABASE_MAX_CONNS", ""); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("parse CORE_DATABASE_MAX_CONNS: invalid value %q", v)
		}
		cfg.CoreDatabaseMaxConns = int32(n)
	}

	if v := getEnv("GITHUB_APP_ID", ""); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse GITHUB_APP_ID: %w", err)
		}
		cfg.GitHubAppID = id
	}

	return cfg, nil
}

// GitHubEnabled reports whether a GitHub App is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubAppID != 0 && c.GitHubPrivateKeyPath != ""
}

// Validate checks that the variables the named binary needs are present.
func (c *Config) Validate(binary string) error {
	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch binary {
	case "core-api":
		require("CORE_DATABASE_URL", c.CoreDatabaseURL)
		require("TEMPORAL_ADDRESS", c.TemporalAddress)
		require("HTTP_LISTEN_ADDR", c.HTTPListenAddr)
		require("ENCRYPTION_SECRET", c.EncryptionSecret)
		require("PUBLIC_DOMAIN", c.PublicDomain)
		require("EXECUTOR_TOKEN", c.ExecutorToken)
	case "worker":
		require("CORE_DATABASE_URL", c.CoreDatabaseURL)
		require("TEMPORAL_ADDRESS", c.TemporalAddress)
		require("EXECUTOR_URL", c.ExecutorURL)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if err := c.validateTemporalTLS(binary); err != nil {
		return err
	}
	if (c.GitHubAppID == 0) != (c.GitHubPrivateKeyPath == "") {
		return fmt.Errorf("GITHUB_APP_ID and GITHUB_PRIVATE_KEY_PATH must both be set")
	}
	switch c.NotifyWebhookTemplate {
	case "", "generic", "slack":
	default:
		return fmt.Errorf("NOTIFY_WEBHOOK_TEMPLATE must be generic or slack, got %q", c.NotifyWebhookTemplate)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
