// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/terminal-agent/internal/diag"
	"github.com/jeranaias/terminal-agent/internal/model"
)

// =============================================================================
// PROVIDER KEYS
// =============================================================================

// Key identifies a provider.
type Key string

const (
	OpenAI Key = "openai"
	Gemini Key = "gemini"
	Grok   Key = "grok"
)

// AllKeys lists every known provider in display order.
var AllKeys = []Key{OpenAI, Gemini, Grok}

// String returns the key.
func (k Key) String() string {
	return string(k)
}

// ParseKey maps user input to a Key. Matching ignores case and surrounding
// whitespace.
func ParseKey(s string) (Key, error) {
	k := Key(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKeys {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotInitialized means no usable provider is selected. It is a local
	// precondition failure, never a classified transport error.
	ErrNotInitialized = errors.New("no provider initialized")

	// ErrUnknownProvider is returned for keys outside the known set.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrEmptyMessage is returned when there is nothing to send.
	ErrEmptyMessage = errors.New("no message provided")

	// ErrMissingAPIKey is returned by Initialize for a blank credential.
	ErrMissingAPIKey = errors.New("API key is required")
)

// DispatchError names the provider a failed send was addressed to.
// The wrapped error keeps its retry.Kind, so retry.KindOf still works.
type DispatchError struct {
	Provider Key
	Err      error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("Error sending message to %s: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ADAPTER CONTRACT
// =============================================================================

// Adapter translates a message plus history into one provider call.
//
// RawSend returns failures unclassified; HTTP failures should carry a
// *retry.HTTPError so the governor can classify them. History never
// contains the message being sent and must not be modified.
type Adapter interface {
	Key() Key
	DisplayName() string

	Initialize(apiKey string) error
	IsInitialized() bool
	// Reset discards client state and returns the adapter to uninitialized.
	Reset()

	AvailableModels() []string
	DefaultModel() string
	Model() string
	UpdateModel(model string)

	RawSend(ctx context.Context, text string, history []model.Turn) (string, error)
}

// Options are shared construction parameters for adapters.
type Options struct {
	// Model overrides the adapter's default model.
	Model string

	// BaseURL points the adapter at a different endpoint, mostly for tests.
	BaseURL string

	// HTTPClient replaces the pooled client built by NewHTTPClient.
	HTTPClient *http.Client

	// Diag receives request and response events.
	Diag diag.Diagnostics
}

// Factory builds an adapter.
type Factory func(Options) Adapter

// Factories is the static registration table, keyed by provider.
type Factories map[Key]Factory

// Descriptor is a read-only snapshot of one adapter.
type Descriptor struct {
	Key             Key
	DisplayName     string
	Model           string
	Initialized     bool
	AvailableModels []string
	DefaultModel    string
}

// Describe snapshots an adapter.
func Describe(a Adapter) Descriptor {
	return Descriptor{
		Key:             a.Key(),
		DisplayName:     a.DisplayName(),
		Model:           a.Model(),
		Initialized:     a.IsInitialized(),
		AvailableModels: append([]string(nil), a.AvailableModels()...),
		DefaultModel:    a.DefaultModel(),
	}
}

// =============================================================================
// CONFIG COLLABORATOR
// =============================================================================

// CredentialSource supplies API keys.
type CredentialSource interface {
	// DefaultAPIKey returns the key to use for provider, if one is set.
	DefaultAPIKey(provider string) (string, bool)
}

// ConfigSource is the narrow view of configuration the registry and
// dispatcher depend on.
type ConfigSource interface {
	CredentialSource
	Model(provider string) string
	SetModel(provider, model string) error
	CurrentAgentInstructions() string
	AvailableProviders() []string
}

// DefaultSource is implemented by config sources that name a default
// provider. The registry falls back to it before any other initialized
// provider.
type DefaultSource interface {
	DefaultProvider() string
}
