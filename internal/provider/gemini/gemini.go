// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini adapts the Google Gemini generateContent API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/jeranaias/terminal-agent/internal/model"
	"github.com/jeranaias/terminal-agent/internal/provider"
	"github.com/jeranaias/terminal-agent/internal/retry"
)

const (
	DisplayName  = "Gemini (Google)"
	DefaultModel = "gemini-2.0-flash"

	// APIVersion is the stable REST surface; beta models are out of reach.
	APIVersion = "v1"

	roleUser  = "user"
	roleModel = "model"
)

// Models lists the models offered in the model picker.
var Models = []string{
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"gemini-1.0-pro",
	"gemini-2.0-flash",
	"gemini-2.0-pro",
	"gemini-2.5-flash",
	"gemini-2.5-pro",
}

var (
	// ErrEmptyResponse is returned when no candidate carries text.
	ErrEmptyResponse = errors.New("gemini returned no content")

	// ErrBlocked is returned when the prompt was rejected by safety filters.
	ErrBlocked = errors.New("gemini blocked the prompt")
)

// Adapter talks to Gemini through the genai SDK.
type Adapter struct {
	*provider.Base
	opts provider.Options

	mu     sync.RWMutex
	client *genai.Client
}

// New creates an uninitialized adapter.
func New(opts provider.Options) provider.Adapter {
	return &Adapter{
		Base: provider.NewBase(provider.Gemini, DisplayName, Models, DefaultModel, opts.Model),
		opts: opts,
	}
}

// Initialize builds a genai client for apiKey. The key travels in the
// x-goog-api-key header, never in the URL.
func (a *Adapter) Initialize(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return provider.ErrMissingAPIKey
	}
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: provider.ClientFor(string(provider.Gemini), a.opts),
		HTTPOptions: genai.HTTPOptions{
			APIVersion: APIVersion,
			BaseURL:    a.opts.BaseURL,
		},
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return fmt.Errorf("failed to create gemini client: %w", err)
	}

	a.mu.Lock()
	a.client = client
	a.mu.Unlock()
	return nil
}

// IsInitialized reports whether a client is ready.
func (a *Adapter) IsInitialized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.client != nil
}

// Reset drops the client.
func (a *Adapter) Reset() {
	a.mu.Lock()
	a.client = nil
	a.mu.Unlock()
}

// RawSend sends one generateContent request.
func (a *Adapter) RawSend(ctx context.Context, text string, history []model.Turn) (string, error) {
	a.mu.RLock()
	client := a.client
	a.mu.RUnlock()
	if client == nil {
		return "", provider.ErrNotInitialized
	}

	resp, err := client.Models.GenerateContent(ctx, a.Model(), buildContents(text, history), nil)
	if err != nil {
		return "", translateError(err)
	}
	return extractText(resp)
}

// buildContents maps turns one to one onto role-tagged contents.
func buildContents(text string, history []model.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		role := roleModel
		if t.IsUser() {
			role = roleUser
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: t.Content}},
		})
	}
	return append(contents, &genai.Content{
		Role:  roleUser,
		Parts: []*genai.Part{{Text: text}},
	})
}

// extractText joins the text parts of the first candidate. Thought parts
// are skipped.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

func translateError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &retry.HTTPError{Status: apiErr.Code, Message: apiErr.Message, Err: err}
	}
	return fmt.Errorf("gemini request failed: %w", err)
}
