// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/terminal-agent/internal/util"
)

// ExportVersion identifies the export envelope layout.
const ExportVersion = "1.0"

// Format selects the encoding of an export file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks a format from the file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Envelope wraps an exported config.
type Envelope struct {
	Version    string    `json:"version" yaml:"version"`
	ExportedAt time.Time `json:"exported_at" yaml:"exported_at"`
	Config     *Config   `json:"config" yaml:"config"`
}

// requiredImportFields must be present in an imported config.
var requiredImportFields = []string{"api_keys", "models", "default_provider"}

// Export encodes cfg into w. Environment overrides are not included.
func Export(w io.Writer, cfg *Config, format Format) error {
	env := Envelope{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Config:     cfg.Clone(),
	}
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(env); err != nil {
			return fmt.Errorf("failed to encode export: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(env); err != nil {
			return fmt.Errorf("failed to encode export: %w", err)
		}
		return nil
	}
}

// ExportFile writes an export to path with 0600 permissions, since the
// export carries API keys.
func ExportFile(path string, cfg *Config) error {
	var buf bytes.Buffer
	if err := Export(&buf, cfg, FormatForPath(path)); err != nil {
		return err
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// Import decodes an export. It fails with ErrInvalidImport unless the
// envelope has a config that names api_keys, models and default_provider
// and that config validates.
func Import(r io.Reader, format Format) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}

	var probe struct {
		Config map[string]any `json:"config" yaml:"config"`
	}
	if err := unmarshal(data, format, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if probe.Config == nil {
		return nil, fmt.Errorf("%w: missing config object", ErrInvalidImport)
	}
	for _, field := range requiredImportFields {
		v, ok := probe.Config[field]
		if !ok || v == nil || v == "" {
			return nil, fmt.Errorf("%w: missing required field %s", ErrInvalidImport, field)
		}
	}
	if keys, ok := probe.Config["api_keys"].(map[string]any); ok {
		for p, v := range keys {
			if _, isList := v.([]any); !isList {
				return nil, fmt.Errorf("%w: invalid API keys format for %s", ErrInvalidImport, p)
			}
		}
	}

	var env Envelope
	if err := unmarshal(data, format, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	cfg := env.Config
	if err := cfg.Migrate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	return cfg, nil
}

// ImportFile reads an export from path.
func ImportFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()
	return Import(f, FormatForPath(path))
}

func unmarshal(data []byte, format Format, v any) error {
	if format == FormatYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}
