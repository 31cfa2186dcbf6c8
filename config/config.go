// Package config loads the ambient configuration for the orchestrator:
// Plan/Act loop limits, fallback/text policy toggles, provider timeouts and
// retry policy, the workspace root for search_files, and provider priority
// (spec.md §6.5). It follows the pack's viper-layered load pattern (defaults
// → optional YAML file → environment overrides), as seen in the other
// viper-based config packages in this corpus, trimmed to this orchestrator's
// much smaller, flat key set.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every value named in spec.md §6.5.
type Config struct {
	// MaxTurns caps Plan/Act iterations per request.
	MaxTurns int `mapstructure:"max_turns" yaml:"max_turns"`

	// DisableFallbacks, when true, refuses to synthesize fallback proposals
	// and instead surfaces a terminal error when the loop exits empty-handed.
	DisableFallbacks bool `mapstructure:"disable_fallbacks" yaml:"disable_fallbacks"`

	// AllowTextBeforeTool permits assistant prose preceding the single tool tag.
	AllowTextBeforeTool bool `mapstructure:"allow_text_before_tool" yaml:"allow_text_before_tool"`

	// EnforceToolAtEnd warns (via the event sink) if prose follows the tag.
	EnforceToolAtEnd bool `mapstructure:"enforce_tool_at_end" yaml:"enforce_tool_at_end"`

	// ProviderTimeout bounds a single provider call.
	ProviderTimeout time.Duration `mapstructure:"-" yaml:"-"`
	// ProviderTimeoutMS is the wire/config form of ProviderTimeout.
	ProviderTimeoutMS int `mapstructure:"provider_timeout_ms" yaml:"provider_timeout_ms"`

	// MaxRetries, RetryDelay and RetryMax govern the transient-error backoff
	// schedule (spec.md §5: base 1s, cap 10s, up to 3 retries by default).
	MaxRetries   int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay   time.Duration `mapstructure:"-" yaml:"-"`
	RetryDelayMS int           `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"`
	RetryMax     time.Duration `mapstructure:"-" yaml:"-"`
	RetryMaxMS   int           `mapstructure:"retry_max_ms" yaml:"retry_max_ms"`

	// WorkspaceRoot is loaded and made absolute, but nothing reads it:
	// search_files and list_code_definition_names answer only from the chat
	// context's code-definition snapshot.
	WorkspaceRoot string `mapstructure:"workspace_root" yaml:"workspace_root"`

	// DefaultProvider overrides the gateway's provider priority chooser.
	DefaultProvider string `mapstructure:"default_provider" yaml:"default_provider"`

	// CatalogEnabled toggles whether search_assets queries a real asset
	// catalog or always signals a manual-fallback to the mapper.
	CatalogEnabled bool `mapstructure:"catalog_enabled" yaml:"catalog_enabled"`
}

// defaults matches spec.md §6.5's stated defaults.
func defaults() Config {
	return Config{
		MaxTurns:            4,
		DisableFallbacks:    false,
		AllowTextBeforeTool: true,
		EnforceToolAtEnd:    true,
		ProviderTimeoutMS:   30000,
		MaxRetries:          3,
		RetryDelayMS:        1000,
		RetryMaxMS:          10000,
		WorkspaceRoot:       ".",
		DefaultProvider:     "",
		CatalogEnabled:      false,
	}
}

// Load builds a Config from defaults, an optional YAML file, then
// environment variables, in that precedence order (later wins). configPath
// may be empty, in which case no file is read and a missing file is not an
// error.
func Load(configPath string) (Config, error) {
	v := viper.New()

	d := defaults()
	v.SetDefault("max_turns", d.MaxTurns)
	v.SetDefault("disable_fallbacks", d.DisableFallbacks)
	v.SetDefault("allow_text_before_tool", d.AllowTextBeforeTool)
	v.SetDefault("enforce_tool_at_end", d.EnforceToolAtEnd)
	v.SetDefault("provider_timeout_ms", d.ProviderTimeoutMS)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("retry_delay_ms", d.RetryDelayMS)
	v.SetDefault("retry_max_ms", d.RetryMaxMS)
	v.SetDefault("workspace_root", d.WorkspaceRoot)
	v.SetDefault("default_provider", d.DefaultProvider)
	v.SetDefault("catalog_enabled", d.CatalogEnabled)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: reading %s: %w", configPath, err)
			}
		}
	}

	v.AutomaticEnv()
	for _, key := range []string{
		"max_turns", "disable_fallbacks", "allow_text_before_tool",
		"enforce_tool_at_end", "provider_timeout_ms", "max_retries",
		"retry_delay_ms", "retry_max_ms", "workspace_root", "default_provider",
		"catalog_enabled",
	} {
		_ = v.BindEnv(key, strings.ToUpper(key))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.ProviderTimeout = time.Duration(cfg.ProviderTimeoutMS) * time.Millisecond
	cfg.RetryDelay = time.Duration(cfg.RetryDelayMS) * time.Millisecond
	cfg.RetryMax = time.Duration(cfg.RetryMaxMS) * time.Millisecond

	if cfg.WorkspaceRoot != "" {
		if abs, err := filepath.Abs(cfg.WorkspaceRoot); err == nil {
			cfg.WorkspaceRoot = abs
		}
	}

	return cfg, nil
}
