// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package grok adapts the xAI chat completions API.
//
// xAI speaks an OpenAI-compatible JSON dialect over HTTPS with a bearer
// token. The client is plain net/http so error bodies in either of xAI's
// two shapes can be decoded.
//
// CLOUD: Secure logging, size-limited reads
package grok

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/jeranaias/terminal-agent/internal/model"
	"github.com/jeranaias/terminal-agent/internal/provider"
	"github.com/jeranaias/terminal-agent/internal/retry"
)

// Configuration constants for the xAI API.
const (
	DisplayName  = "Grok AI (xAI)"
	DefaultModel = "grok-3"

	// DefaultBaseURL is the base URL for the xAI API.
	DefaultBaseURL = "https://api.x.ai/v1"

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	maxTokens   = 1000
	temperature = 0.7
)

// Models lists the models offered in the model picker.
var Models = []string{
	"grok-4-0709",
	"grok-4",
	"grok-4-latest",
	"grok-4-heavy",
	"grok-3",
	"grok-3-mini",
	"grok-3-fast",
	"grok-3-mini-fast",
	"grok-2-vision-1212",
	"grok-2-image-1212",
}

// ErrNoChoices is returned when a completion comes back empty.
var ErrNoChoices = errors.New("grok returned no choices")

// chatMessage is a single message in a chat conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// apiErrorResponse covers both shapes xAI uses:
// {"error":{"message":..}} and {"code":..,"error":".."}.
type apiErrorResponse struct {
	Code  string          `json:"code"`
	Error json.RawMessage `json:"error"`
}

func (r apiErrorResponse) message() string {
	if len(r.Error) == 0 {
		return r.Code
	}
	var s string
	if err := json.Unmarshal(r.Error, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return r.Code
}

// Adapter talks to xAI over HTTPS.
type Adapter struct {
	*provider.Base
	baseURL    string
	httpClient *http.Client

	mu     sync.RWMutex
	apiKey string
}

// New creates an uninitialized adapter.
func New(opts provider.Options) provider.Adapter {
	baseURL := DefaultBaseURL
	if opts.BaseURL != "" {
		baseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}
	return &Adapter{
		Base:       provider.NewBase(provider.Grok, DisplayName, Models, DefaultModel, opts.Model),
		baseURL:    baseURL,
		httpClient: provider.ClientFor(string(provider.Grok), opts),
	}
}

// Initialize stores the bearer token.
func (a *Adapter) Initialize(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return provider.ErrMissingAPIKey
	}
	a.mu.Lock()
	a.apiKey = apiKey
	a.mu.Unlock()
	return nil
}

// IsInitialized reports whether a token is set.
func (a *Adapter) IsInitialized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.apiKey != ""
}

// Reset forgets the token.
func (a *Adapter) Reset() {
	a.mu.Lock()
	a.apiKey = ""
	a.mu.Unlock()
}

// RawSend performs a single chat completion request.
func (a *Adapter) RawSend(ctx context.Context, text string, history []model.Turn) (string, error) {
	a.mu.RLock()
	apiKey := a.apiKey
	a.mu.RUnlock()
	if apiKey == "" {
		return "", provider.ErrNotInitialized
	}

	reqBody := chatRequest{
		Model:       a.Model(),
		Messages:    buildMessages(text, history),
		Stream:      false,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", provider.UserAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// SECURITY: Read response with size limit to prevent memory exhaustion
	body, err := readResponse(resp)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", handleErrorResponse(resp.StatusCode, body)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return chatResp.Choices[0].Message.Content, nil
}

func buildMessages(text string, history []model.Turn) []chatMessage {
	msgs := make([]chatMessage, 0, len(history)+1)
	for _, t := range history {
		role := "assistant"
		if t.IsUser() {
			role = "user"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: t.Content})
	}
	return append(msgs, chatMessage{Role: "user", Content: text})
}

// readResponse reads the response body with size limits to prevent memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	// One byte past the limit tells a body of exactly MaxResponseSize from a
	// larger one.
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts an HTTP error response into *retry.HTTPError.
func handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if msg := apiErr.message(); msg != "" {
			return &retry.HTTPError{Status: statusCode, Message: msg}
		}
	}
	// Fallback for unparseable error responses
	return &retry.HTTPError{Status: statusCode, Message: strings.TrimSpace(string(body))}
}
