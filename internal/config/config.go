// Package config handles YAML configuration parsing and validation.
package config

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"reqdiff/internal/compare"
	"reqdiff/internal/dispatch"
	"reqdiff/internal/idgen"
)

// Config is the root configuration structure.
type Config struct {
	Run         RunConfig      `yaml:"run"`
	Template    TemplateConfig `yaml:"template"`
	Identifiers idgen.Spec     `yaml:"identifiers"`
	Compare     CompareConfig  `yaml:"compare"`
	Output      OutputConfig   `yaml:"output"`
	Log         LogConfig      `yaml:"log"`
}

// RunConfig controls dispatch behavior for one test run.
type RunConfig struct {
	URL                string            `yaml:"url"`
	Method             string            `yaml:"method"`
	Headers            map[string]string `yaml:"headers"`
	Count              int               `yaml:"count"`
	ParallelCount      int               `yaml:"parallel_count"`
	ThinkTime          time.Duration     `yaml:"think_time"`
	MaxRetries         int               `yaml:"max_retries"`
	RetryDelay         time.Duration     `yaml:"retry_delay"`
	BackoffMultiplier  float64           `yaml:"backoff_multiplier"`
	RetryStatuses      []int             `yaml:"retry_statuses"`
	RetryTimeouts      bool              `yaml:"retry_timeouts"`
	RequestTimeout     time.Duration     `yaml:"request_timeout"`
	FailureThreshold   int               `yaml:"circuit_failure_threshold"`
	CircuitCooldown    time.Duration     `yaml:"circuit_cooldown"`
	RPS                int               `yaml:"rps"`
	InsecureSkipVerify bool              `yaml:"insecure_skip_verify"`
}

// TemplateConfig locates the request payload template.
type TemplateConfig struct {
	Path        string   `yaml:"path"`
	InjectPaths []string `yaml:"inject_paths"`
}

// CompareConfig controls the JSON comparator.
type CompareConfig struct {
	IgnoreKeys []string `yaml:"ignore_keys"`
	Tolerance  float64  `yaml:"tolerance"`
	Relative   bool     `yaml:"relative"`
	MaxDepth   int      `yaml:"max_depth"`
}

// OutputConfig controls where responses and reports land.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// LoadConfig reads and parses a YAML configuration file, applying defaults
// and validating.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Run.Method == "" {
		c.Run.Method = http.MethodPost
	}
	if c.Run.ParallelCount == 0 {
		c.Run.ParallelCount = 10
	}
	if c.Run.Count == 0 {
		c.Run.Count = 1
	}
	if c.Run.BackoffMultiplier == 0 {
		c.Run.BackoffMultiplier = 2
	}
	if c.Run.RequestTimeout == 0 {
		c.Run.RequestTimeout = 30 * time.Second
	}
	if c.Run.FailureThreshold == 0 {
		c.Run.FailureThreshold = 5
	}
	if c.Run.CircuitCooldown == 0 {
		c.Run.CircuitCooldown = 10 * time.Second
	}
	if c.Compare.MaxDepth == 0 {
		c.Compare.MaxDepth = compare.DefaultMaxDepth
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "responses"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects configuration a run cannot proceed with.
func (c *Config) Validate() error {
	if err := c.DispatchConfig().Validate(); err != nil {
		return err
	}
	if c.Run.Count < 1 {
		return fmt.Errorf("run.count must be >= 1, got %d", c.Run.Count)
	}
	if c.Run.RPS < 0 {
		return fmt.Errorf("run.rps must be >= 0, got %d", c.Run.RPS)
	}
	if c.Template.Path == "" {
		return fmt.Errorf("template.path is required")
	}
	if c.Identifiers.Start == "" || c.Identifiers.End == "" {
		return fmt.Errorf("identifiers.start and identifiers.end are required")
	}
	if c.Compare.Tolerance < 0 {
		return fmt.Errorf("compare.tolerance must be >= 0")
	}
	return nil
}

// DispatchConfig maps the run section onto the dispatcher's knobs.
func (c *Config) DispatchConfig() dispatch.Config {
	return dispatch.Config{
		URL:               c.Run.URL,
		Method:            c.Run.Method,
		Headers:           c.Run.Headers,
		Parallel:          c.Run.ParallelCount,
		ThinkTime:         c.Run.ThinkTime,
		MaxRetries:        c.Run.MaxRetries,
		RetryDelay:        c.Run.RetryDelay,
		BackoffMultiplier: c.Run.BackoffMultiplier,
		RetryStatuses:     c.Run.RetryStatuses,
		RetryTimeouts:     c.Run.RetryTimeouts,
		RequestTimeout:    c.Run.RequestTimeout,
		FailureThreshold:  c.Run.FailureThreshold,
		Cooldown:          c.Run.CircuitCooldown,
	}
}

// CompareOptions maps the compare section onto the comparator's config.
func (c *Config) CompareOptions() compare.Config {
	return compare.Config{
		IgnoreKeys: c.Compare.IgnoreKeys,
		Tolerance:  c.Compare.Tolerance,
		Relative:   c.Compare.Relative,
		MaxDepth:   c.Compare.MaxDepth,
	}
}

// HTTPClient builds the shared client for a run: pooled connections, TLS
// verification toggle. Per-attempt timeouts are the dispatcher's job, so no
// client-level timeout is set.
func (c *Config) HTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        c.Run.ParallelCount * 2,
		MaxIdleConnsPerHost: c.Run.ParallelCount,
		IdleConnTimeout:     90 * time.Second,
	}
	if c.Run.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{Transport: transport}
}
