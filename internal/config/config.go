// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/terminal-agent/internal/util"
)

// Provider keys known to the configuration layer.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderGrok   = "grok"

	// EnvKeyName is the name reported for a key supplied by the environment.
	EnvKeyName = "env"

	// CurrentVersion is written into new and migrated files.
	CurrentVersion = "2"
)

// KnownProviders lists provider keys in display order.
var KnownProviders = []string{ProviderOpenAI, ProviderGemini, ProviderGrok}

// envKeyVars maps providers to the environment variables holding their keys.
var envKeyVars = map[string]string{
	ProviderOpenAI: "OPENAI_API_KEY",
	ProviderGemini: "GEMINI_API_KEY",
	ProviderGrok:   "GROK_API_KEY",
}

// Error variables for configuration operations.
var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrKeyNotFound     = errors.New("API key not found")
	ErrNoDefaultKey    = errors.New("no API key configured")
	ErrDuplicateKey    = errors.New("API key name already exists")
	ErrAgentNotFound   = errors.New("agent not found")
	ErrDuplicateAgent  = errors.New("agent id already exists")
	ErrInvalidImport   = errors.New("invalid import file")
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete terminal-agent configuration.
type Config struct {
	Version         string `toml:"version" json:"version" yaml:"version"`
	DefaultProvider string `toml:"default_provider" json:"default_provider" yaml:"default_provider" validate:"required,oneof=openai gemini grok"`
	FirstRun        bool   `toml:"first_run" json:"first_run" yaml:"first_run"`
	Debug           bool   `toml:"debug" json:"debug" yaml:"debug"`

	// Models holds the selected model per provider.
	Models map[string]string `toml:"models" json:"models" yaml:"models" validate:"dive,keys,oneof=openai gemini grok,endkeys,required"`

	// APIKeys holds any number of named keys per provider.
	APIKeys map[string][]APIKey `toml:"api_keys" json:"api_keys" yaml:"api_keys" validate:"dive,keys,oneof=openai gemini grok,endkeys,dive"`

	// Agents are persona presets; CurrentAgent selects one by ID.
	Agents       []Agent `toml:"agents" json:"agents" yaml:"agents" validate:"dive"`
	CurrentAgent string  `toml:"current_agent" json:"current_agent" yaml:"current_agent"`

	Retry RetryConfig `toml:"retry" json:"retry" yaml:"retry"`
	UI    UIConfig    `toml:"ui" json:"ui" yaml:"ui"`

	// Environment overrides. Never persisted.
	envKeys     map[string]string
	envProvider string
}

// APIKey is one named credential for a provider.
type APIKey struct {
	Name      string `toml:"name" json:"name" yaml:"name" validate:"required,max=64"`
	Key       string `toml:"key" json:"key" yaml:"key" validate:"required"`
	IsDefault bool   `toml:"is_default" json:"is_default" yaml:"is_default"`
}

// Agent is a persona preset whose instructions lead a new conversation.
type Agent struct {
	ID           string `toml:"id" json:"id" yaml:"id" validate:"required,max=64"`
	Name         string `toml:"name" json:"name" yaml:"name" validate:"required"`
	Instructions string `toml:"instructions" json:"instructions" yaml:"instructions"`
}

// RetryConfig mirrors the retry policy in milliseconds.
type RetryConfig struct {
	MaxAttempts   int `toml:"max_attempts" json:"max_attempts" yaml:"max_attempts" validate:"min=1,max=20"`
	BaseDelayMs   int `toml:"base_delay_ms" json:"base_delay_ms" yaml:"base_delay_ms" validate:"min=0,max=60000"`
	CallTimeoutMs int `toml:"call_timeout_ms" json:"call_timeout_ms" yaml:"call_timeout_ms" validate:"min=0,max=600000"`
}

// UIConfig contains terminal rendering preferences.
type UIConfig struct {
	Markdown bool `toml:"markdown" json:"markdown" yaml:"markdown"`
	WordWrap int  `toml:"word_wrap" json:"word_wrap" yaml:"word_wrap" validate:"min=0,max=400"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Version:         CurrentVersion,
		DefaultProvider: ProviderGemini,
		FirstRun:        true,
		Models: map[string]string{
			ProviderOpenAI: "gpt-3.5-turbo",
			ProviderGemini: "gemini-2.0-flash",
			ProviderGrok:   "grok-3",
		},
		APIKeys: map[string][]APIKey{},
		Agents:  []Agent{},
		Retry: RetryConfig{
			MaxAttempts:   5,
			BaseDelayMs:   1000,
			CallTimeoutMs: 30000,
		},
		UI: UIConfig{
			Markdown: true,
			WordWrap: 80,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the terminal-agent configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".terminal-agent"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files must be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default path.
// A missing file yields defaults with FirstRun set.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from path and applies migration,
// environment overrides, defaults and validation, in that order.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		cfg = &Config{}
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}

	if err := cfg.Migrate(); err != nil {
		return nil, fmt.Errorf("config migration failed: %w", err)
	}
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
//
// Files written by older versions stored a single string per provider under
// api_keys. Those are rewritten into one default key named "default" before
// decoding.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return decodeTOML(cfg, data)
}

func decodeTOML(cfg *Config, data []byte) error {
	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if migrateLegacyKeys(raw) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
			return fmt.Errorf("failed to migrate legacy keys: %w", err)
		}
		data = buf.Bytes()
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// migrateLegacyKeys converts api_keys.<provider> = "key" into the list form.
func migrateLegacyKeys(raw map[string]any) bool {
	keys, ok := raw["api_keys"].(map[string]any)
	if !ok {
		return false
	}
	changed := false
	for provider, v := range keys {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s == "" {
			delete(keys, provider)
		} else {
			keys[provider] = []map[string]any{{"name": "default", "key": s, "is_default": true}}
		}
		changed = true
	}
	return changed
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path. Environment overrides are not written.
// SECURITY: Config files are written with 0600 permissions.
// RELIABILITY: Atomic write with fsync prevents a torn file on crash.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# terminal-agent configuration file")
	fmt.Fprintln(&buf, "# Generated by terminal-agent - edit with care")
	fmt.Fprintln(&buf, "# API keys are stored in plain text; keep this file private.")
	fmt.Fprintln(&buf, "")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// DEFAULTS AND MIGRATION
// =============================================================================

// SetDefaults fills in missing values. Zero retry values are treated as
// unset, except that a zero base delay is a legitimate choice only when the
// file sets max_attempts as well.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.DefaultProvider == "" {
		c.DefaultProvider = d.DefaultProvider
	}
	if c.Models == nil {
		c.Models = map[string]string{}
	}
	for p, m := range d.Models {
		if c.Models[p] == "" {
			c.Models[p] = m
		}
	}
	if c.APIKeys == nil {
		c.APIKeys = map[string][]APIKey{}
	}
	if c.Agents == nil {
		c.Agents = []Agent{}
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = d.Retry.MaxAttempts
		if c.Retry.BaseDelayMs == 0 {
			c.Retry.BaseDelayMs = d.Retry.BaseDelayMs
		}
	}
	if c.Retry.CallTimeoutMs == 0 {
		c.Retry.CallTimeoutMs = d.Retry.CallTimeoutMs
	}
	if c.UI.WordWrap == 0 {
		c.UI.WordWrap = d.UI.WordWrap
	}
}

// Migrate normalizes values written by hand or by older versions.
func (c *Config) Migrate() error {
	c.DefaultProvider = strings.ToLower(strings.TrimSpace(c.DefaultProvider))

	if len(c.APIKeys) > 0 {
		normalized := make(map[string][]APIKey, len(c.APIKeys))
		for p, keys := range c.APIKeys {
			p = strings.ToLower(strings.TrimSpace(p))
			normalized[p] = append(normalized[p], keys...)
		}
		for p, keys := range normalized {
			normalized[p] = ensureSingleDefault(keys)
		}
		c.APIKeys = normalized
	}
	if len(c.Models) > 0 {
		normalized := make(map[string]string, len(c.Models))
		for p, m := range c.Models {
			normalized[strings.ToLower(strings.TrimSpace(p))] = strings.TrimSpace(m)
		}
		c.Models = normalized
	}
	if c.Version != CurrentVersion {
		c.Version = CurrentVersion
	}
	return nil
}

// ensureSingleDefault keeps exactly one default in a non-empty key list.
func ensureSingleDefault(keys []APIKey) []APIKey {
	if len(keys) == 0 {
		return keys
	}
	found := false
	for i := range keys {
		if keys[i].IsDefault && !found {
			found = true
			continue
		}
		keys[i].IsDefault = false
	}
	if !found {
		keys[0].IsDefault = true
	}
	return keys
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - OPENAI_API_KEY, GEMINI_API_KEY, GROK_API_KEY: key used ahead of stored keys
//   - TERMINAL_AGENT_PROVIDER: overrides default_provider for this process
//   - TERMINAL_AGENT_DEBUG: set to "1" or "true" to enable debug logging
//
// Overrides live only in memory and are never written back.
func (c *Config) ApplyEnvOverrides() {
	c.envKeys = map[string]string{}
	for provider, name := range envKeyVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			c.envKeys[provider] = v
		}
	}

	if p := strings.ToLower(strings.TrimSpace(os.Getenv("TERMINAL_AGENT_PROVIDER"))); p != "" {
		if isKnownProvider(p) {
			c.envProvider = p
		} else {
			fmt.Fprintf(os.Stderr, "Warning: ignoring TERMINAL_AGENT_PROVIDER=%q (unknown provider)\n", p)
		}
	}

	if debug := os.Getenv("TERMINAL_AGENT_DEBUG"); debug != "" {
		c.Debug = debug == "1" || strings.ToLower(debug) == "true"
	}
}

// EffectiveDefaultProvider returns the default provider after overrides.
func (c *Config) EffectiveDefaultProvider() string {
	if c.envProvider != "" {
		return c.envProvider
	}
	return c.DefaultProvider
}

// HasEnvKey reports whether provider's key came from the environment.
func (c *Config) HasEnvKey(provider string) bool {
	_, ok := c.envKeys[provider]
	return ok
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks struct rules plus the cross-field rules the tags cannot
// express.
func (c *Config) Validate() error {
	errs := validateStruct(c)

	for provider, keys := range c.APIKeys {
		seen := map[string]bool{}
		for _, k := range keys {
			if seen[k.Name] {
				errs = append(errs, ValidationError{
					Field:   "api_keys." + provider,
					Message: fmt.Sprintf("duplicate key name %q", k.Name),
				})
			}
			seen[k.Name] = true
		}
	}

	ids := map[string]bool{}
	for _, a := range c.Agents {
		if ids[a.ID] {
			errs = append(errs, ValidationError{Field: "agents", Message: fmt.Sprintf("duplicate agent id %q", a.ID)})
		}
		ids[a.ID] = true
	}
	if c.CurrentAgent != "" && !ids[c.CurrentAgent] {
		errs = append(errs, ValidationError{
			Field:   "current_agent",
			Message: fmt.Sprintf("no agent with id %q", c.CurrentAgent),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func isKnownProvider(p string) bool {
	for _, k := range KnownProviders {
		if k == p {
			return true
		}
	}
	return false
}

func checkProvider(p string) error {
	if !isKnownProvider(p) {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, p)
	}
	return nil
}

// Clone returns a deep copy, including environment overrides.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Models = make(map[string]string, len(c.Models))
	for k, v := range c.Models {
		clone.Models[k] = v
	}
	clone.APIKeys = make(map[string][]APIKey, len(c.APIKeys))
	for k, v := range c.APIKeys {
		clone.APIKeys[k] = append([]APIKey(nil), v...)
	}
	if c.Agents != nil {
		clone.Agents = append(make([]Agent, 0, len(c.Agents)), c.Agents...)
	}
	if c.envKeys != nil {
		clone.envKeys = make(map[string]string, len(c.envKeys))
		for k, v := range c.envKeys {
			clone.envKeys[k] = v
		}
	}
	return &clone
}

// Equal reports whether c and o hold the same settings and overrides.
// Empty and nil collections compare equal, since a file round trip does
// not keep the difference.
func (c *Config) Equal(o *Config) bool {
	return reflect.DeepEqual(c.normalized(), o.normalized())
}

func (c *Config) normalized() *Config {
	n := c.Clone()
	if len(n.Agents) == 0 {
		n.Agents = nil
	}
	for p, keys := range n.APIKeys {
		if len(keys) == 0 {
			delete(n.APIKeys, p)
		}
	}
	if len(n.envKeys) == 0 {
		n.envKeys = nil
	}
	return n
}

// String returns a JSON rendering for debugging.
// SECURITY: API keys are redacted.
func (c *Config) String() string {
	safe := c.Clone()
	for p, keys := range safe.APIKeys {
		for i := range keys {
			keys[i].Key = "[REDACTED]"
		}
		safe.APIKeys[p] = keys
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// sortedProviders returns the keys of m in KnownProviders order, followed by
// anything unknown in lexical order.
func sortedProviders[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for _, p := range KnownProviders {
		if _, ok := m[p]; ok {
			out = append(out, p)
		}
	}
	var extra []string
	for p := range m {
		if !isKnownProvider(p) {
			extra = append(extra, p)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
