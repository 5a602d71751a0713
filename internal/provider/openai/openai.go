// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai adapts the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/jeranaias/terminal-agent/internal/model"
	"github.com/jeranaias/terminal-agent/internal/provider"
	"github.com/jeranaias/terminal-agent/internal/retry"
)

const (
	DisplayName  = "ChatGPT (OpenAI)"
	DefaultModel = "gpt-3.5-turbo"

	maxTokens   = 1000
	temperature = 0.7
)

// Models lists the chat models offered in the model picker.
var Models = []string{
	"gpt-3.5-turbo",
	"gpt-3.5-turbo-16k",
	"gpt-4",
	"gpt-4-turbo",
	"gpt-4o",
	"gpt-4o-mini",
}

// ErrNoChoices is returned when a completion comes back empty.
var ErrNoChoices = errors.New("openai returned no choices")

// Adapter talks to OpenAI through the official SDK.
type Adapter struct {
	*provider.Base
	opts provider.Options

	mu     sync.RWMutex
	client *sdk.Client
}

// New creates an uninitialized adapter.
func New(opts provider.Options) provider.Adapter {
	return &Adapter{
		Base: provider.NewBase(provider.OpenAI, DisplayName, Models, DefaultModel, opts.Model),
		opts: opts,
	}
}

// Initialize builds an SDK client for apiKey.
// SDK retries are disabled; the retry governor owns that decision.
func (a *Adapter) Initialize(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return provider.ErrMissingAPIKey
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(provider.ClientFor(string(provider.OpenAI), a.opts)),
		option.WithMaxRetries(0),
	}
	if a.opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(a.opts.BaseURL))
	}
	client := sdk.NewClient(reqOpts...)

	a.mu.Lock()
	a.client = &client
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

// RawSend sends one chat completion request.
func (a *Adapter) RawSend(ctx context.Context, text string, history []model.Turn) (string, error) {
	a.mu.RLock()
	client := a.client
	a.mu.RUnlock()
	if client == nil {
		return "", provider.ErrNotInitialized
	}

	params := sdk.ChatCompletionNewParams{
		Model:       shared.ChatModel(a.Model()),
		Messages:    buildMessages(text, history),
		MaxTokens:   sdk.Int(maxTokens),
		Temperature: sdk.Float(temperature),
	}
	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", translateError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

func buildMessages(text string, history []model.Turn) []sdk.ChatCompletionMessageParamUnion {
	msgs := make([]sdk.ChatCompletionMessageParamUnion, 0, len(history)+1)
	for _, t := range history {
		if t.IsUser() {
			msgs = append(msgs, sdk.UserMessage(t.Content))
		} else {
			msgs = append(msgs, sdk.AssistantMessage(t.Content))
		}
	}
	return append(msgs, sdk.UserMessage(text))
}

// translateError turns SDK API errors into *retry.HTTPError. Transport
// errors pass through unchanged and classify as connection failures.
func translateError(err error) error {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("openai request failed: %w", err)
	}
	msg := apiErr.Message
	if msg == "" {
		msg = err.Error()
	}
	return &retry.HTTPError{Status: apiErr.StatusCode, Message: msg, Err: err}
}
