package recovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the on-disk recovery configuration. Pointer fields preserve
// explicit-zero versus unset.
type ConfigFile struct {
	Version int `json:"version" yaml:"version"`

	Retry struct {
		BaseDelayMS *int  `json:"base_delay_ms,omitempty" yaml:"base_delay_ms,omitempty"`
		MaxDelayMS  *int  `json:"max_delay_ms,omitempty" yaml:"max_delay_ms,omitempty"`
		Jitter      *bool `json:"jitter,omitempty" yaml:"jitter,omitempty"`
	} `json:"retry" yaml:"retry"`

	Breaker struct {
		FailureThreshold *int `json:"failure_threshold,omitempty" yaml:"failure_threshold,omitempty"`
		SuccessThreshold *int `json:"success_threshold,omitempty" yaml:"success_threshold,omitempty"`
		OpenTimeoutMS    *int `json:"open_timeout_ms,omitempty" yaml:"open_timeout_ms,omitempty"`
	} `json:"breaker" yaml:"breaker"`

	HistoryWindow *int `json:"history_window,omitempty" yaml:"history_window,omitempty"`

	Checkpoint struct {
		Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	} `json:"checkpoint" yaml:"checkpoint"`

	LLM struct {
		Provider  string `json:"provider,omitempty" yaml:"provider,omitempty"`
		Model     string `json:"model,omitempty" yaml:"model,omitempty"`
		BaseURL   string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
		APIKeyEnv string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	} `json:"llm" yaml:"llm"`
}

// LoadConfigFile reads a yaml (or json, by extension) recovery config.
func LoadConfigFile(path string) (ConfigFile, error) {
	var cfg ConfigFile
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if cfg.Version != 0 && cfg.Version != 1 {
		return cfg, fmt.Errorf("%s: unsupported config version %d", path, cfg.Version)
	}
	return cfg, nil
}

// EngineConfig converts the file form to runtime config, applying defaults
// for unset fields. Threshold validation still happens in NewEngine.
func (c ConfigFile) EngineConfig() EngineConfig {
	retry := DefaultRetryPolicy()
	if c.Retry.BaseDelayMS != nil {
		retry.BaseDelay = time.Duration(*c.Retry.BaseDelayMS) * time.Millisecond
	}
	if c.Retry.MaxDelayMS != nil {
		retry.MaxDelay = time.Duration(*c.Retry.MaxDelayMS) * time.Millisecond
	}
	if c.Retry.Jitter != nil {
		retry.Jitter = *c.Retry.Jitter
	}

	breaker := DefaultBreakerConfig()
	if c.Breaker.FailureThreshold != nil {
		breaker.FailureThreshold = *c.Breaker.FailureThreshold
	}
	if c.Breaker.SuccessThreshold != nil {
		breaker.SuccessThreshold = *c.Breaker.SuccessThreshold
	}
	if c.Breaker.OpenTimeoutMS != nil {
		breaker.OpenTimeout = time.Duration(*c.Breaker.OpenTimeoutMS) * time.Millisecond
	}

	out := EngineConfig{Retry: retry, Breaker: breaker}
	if c.HistoryWindow != nil {
		out.HistoryWindow = *c.HistoryWindow
	}
	return out
}
