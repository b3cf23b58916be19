package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// yamlConfig mirrors the mentor.yaml file structure. Sections are pointers
// so an absent section leaves the defaults untouched. Sections carrying
// durations have YAML-side shadow structs whose duration fields are
// strings ("30s", "5m"), parsed during resolution; yaml.v3 cannot decode
// duration strings into time.Duration directly.
type yamlConfig struct {
	Breaker   *BreakerConfig   `yaml:"breaker"`
	Router    *RouterConfig    `yaml:"router"`
	Workflows *WorkflowsConfig `yaml:"workflows"`
	Server    *ServerConfig    `yaml:"server"`
	Database  *databaseYAML    `yaml:"database"`
	Queue     *queueYAML       `yaml:"queue"`
	Retention *retentionYAML   `yaml:"retention"`
	Progress  *ProgressConfig  `yaml:"progress"`
	Sandbox   *sandboxYAML     `yaml:"sandbox"`
	Docs      *docsYAML        `yaml:"docs"`
	LLM       *llmYAML         `yaml:"llm"`
	Masking   *maskingYAML     `yaml:"masking"`
}

type databaseYAML struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Name            string `yaml:"name"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime string `yaml:"conn_max_idle_time"`
}

type queueYAML struct {
	WorkerCount         int    `yaml:"worker_count"`
	SessionTimeout      string `yaml:"session_timeout"`
	OrphanCheckInterval string `yaml:"orphan_check_interval"`
}

type retentionYAML struct {
	SessionRetentionDays int    `yaml:"session_retention_days"`
	EventTTL             string `yaml:"event_ttl"`
	CleanupInterval      string `yaml:"cleanup_interval"`
}

type docsYAML struct {
	CacheTTL     string `yaml:"cache_ttl"`
	FetchTimeout string `yaml:"fetch_timeout"`
}

type sandboxYAML struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

type llmYAML struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
	Enabled bool   `yaml:"enabled"`
}

type maskingYAML struct {
	Enabled        *bool            `yaml:"enabled"`
	PatternGroup   string           `yaml:"pattern_group"`
	CustomPatterns []MaskingPattern `yaml:"custom_patterns"`
}

// Load reads, expands, parses, merges, and validates the configuration
// file at path. The file must exist; callers that want defaults when the
// file is absent check existence first (main does this for mentor.yaml).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewLoadError(path, ErrConfigNotFound)
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	cfg := DefaultConfig()
	if err := cfg.merge(&raw); err != nil {
		return nil, NewLoadError(path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	slog.Info("Configuration loaded", "path", path)
	return cfg, nil
}

// merge layers the parsed file over the built-in defaults, section by
// section. Non-zero fields override; absent sections and empty fields keep
// their defaults.
func (c *Config) merge(raw *yamlConfig) error {
	if err := mergeSection("breaker", &c.Breaker, raw.Breaker); err != nil {
		return err
	}
	if err := mergeSection("router", &c.Router, raw.Router); err != nil {
		return err
	}
	if err := mergeSection("workflows", &c.Workflows, raw.Workflows); err != nil {
		return err
	}
	if err := mergeSection("server", &c.Server, raw.Server); err != nil {
		return err
	}
	if err := mergeSection("progress", &c.Progress, raw.Progress); err != nil {
		return err
	}

	database, err := resolveDatabase(raw.Database)
	if err != nil {
		return err
	}
	if err := mergeSection("database", &c.Database, database); err != nil {
		return err
	}

	queue, err := resolveQueue(raw.Queue)
	if err != nil {
		return err
	}
	if err := mergeSection("queue", &c.Queue, queue); err != nil {
		return err
	}

	retention, err := resolveRetention(raw.Retention)
	if err != nil {
		return err
	}
	if err := mergeSection("retention", &c.Retention, retention); err != nil {
		return err
	}

	docs, err := resolveDocs(raw.Docs)
	if err != nil {
		return err
	}
	if err := mergeSection("docs", &c.Docs, docs); err != nil {
		return err
	}

	sandbox, err := resolveSandbox(raw.Sandbox)
	if err != nil {
		return err
	}
	if err := mergeSection("sandbox", &c.Sandbox, sandbox); err != nil {
		return err
	}

	llm, err := resolveLLM(raw.LLM)
	if err != nil {
		return err
	}
	if err := mergeSection("llm", &c.LLM, llm); err != nil {
		return err
	}

	c.Masking = resolveMasking(c.Masking, raw.Masking)
	return nil
}

// mergeSection deep-merges a parsed section over its defaults. Non-zero
// fields in src override dst; a nil src is an absent section.
func mergeSection[T any](name string, dst *T, src *T) error {
	if src == nil {
		return nil
	}
	if err := mergo.Merge(dst, *src, mergo.WithOverride); err != nil {
		return fmt.Errorf("merge %s section: %w", name, err)
	}
	return nil
}

func resolveDatabase(d *databaseYAML) (*DatabaseConfig, error) {
	if d == nil {
		return nil, nil
	}
	lifetime, err := parseDuration("database", "conn_max_lifetime", d.ConnMaxLifetime)
	if err != nil {
		return nil, err
	}
	idleTime, err := parseDuration("database", "conn_max_idle_time", d.ConnMaxIdleTime)
	if err != nil {
		return nil, err
	}
	return &DatabaseConfig{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Name:            d.Name,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: lifetime,
		ConnMaxIdleTime: idleTime,
	}, nil
}

func resolveQueue(q *queueYAML) (*QueueConfig, error) {
	if q == nil {
		return nil, nil
	}
	timeout, err := parseDuration("queue", "session_timeout", q.SessionTimeout)
	if err != nil {
		return nil, err
	}
	orphan, err := parseDuration("queue", "orphan_check_interval", q.OrphanCheckInterval)
	if err != nil {
		return nil, err
	}
	return &QueueConfig{
		WorkerCount:         q.WorkerCount,
		SessionTimeout:      timeout,
		OrphanCheckInterval: orphan,
	}, nil
}

func resolveRetention(r *retentionYAML) (*RetentionConfig, error) {
	if r == nil {
		return nil, nil
	}
	ttl, err := parseDuration("retention", "event_ttl", r.EventTTL)
	if err != nil {
		return nil, err
	}
	interval, err := parseDuration("retention", "cleanup_interval", r.CleanupInterval)
	if err != nil {
		return nil, err
	}
	return &RetentionConfig{
		SessionRetentionDays: r.SessionRetentionDays,
		EventTTL:             ttl,
		CleanupInterval:      interval,
	}, nil
}

func resolveDocs(d *docsYAML) (*DocsConfig, error) {
	if d == nil {
		return nil, nil
	}
	ttl, err := parseDuration("docs", "cache_ttl", d.CacheTTL)
	if err != nil {
		return nil, err
	}
	timeout, err := parseDuration("docs", "fetch_timeout", d.FetchTimeout)
	if err != nil {
		return nil, err
	}
	return &DocsConfig{CacheTTL: ttl, FetchTimeout: timeout}, nil
}

func resolveSandbox(s *sandboxYAML) (*SandboxConfig, error) {
	if s == nil {
		return nil, nil
	}
	timeout, err := parseDuration("sandbox", "timeout", s.Timeout)
	if err != nil {
		return nil, err
	}
	return &SandboxConfig{URL: s.URL, Timeout: timeout}, nil
}

func resolveLLM(l *llmYAML) (*LLMConfig, error) {
	if l == nil {
		return nil, nil
	}
	timeout, err := parseDuration("llm", "timeout", l.Timeout)
	if err != nil {
		return nil, err
	}
	return &LLMConfig{URL: l.URL, Timeout: timeout, Enabled: l.Enabled}, nil
}

// resolveMasking applies the masking section over defaults. Enabled is a
// presence-checked bool: omitting it keeps masking on.
func resolveMasking(cur MaskingConfig, m *maskingYAML) MaskingConfig {
	if m == nil {
		return cur
	}
	if m.Enabled != nil {
		cur.Enabled = *m.Enabled
	}
	if m.PatternGroup != "" {
		cur.PatternGroup = m.PatternGroup
	}
	if len(m.CustomPatterns) > 0 {
		cur.CustomPatterns = m.CustomPatterns
	}
	return cur
}

// parseDuration parses a YAML duration string. Empty means unset (zero),
// which lets the default survive the merge.
func parseDuration(section, field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, NewValidationError(section, field, fmt.Errorf("%w: invalid duration %q", ErrInvalidValue, value))
	}
	return d, nil
}
