// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package grok

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/terminal-agent/internal/model"
	"github.com/jeranaias/terminal-agent/internal/provider"
	"github.com/jeranaias/terminal-agent/internal/retry"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	a := New(provider.Options{BaseURL: server.URL + "/v1/", HTTPClient: server.Client()}).(*Adapter)
	require.NoError(t, a.Initialize("xai-test-key"))
	return a
}

// =============================================================================
// REQUEST TESTS
// =============================================================================

func TestRawSend_RequestShape(t *testing.T) {
	var got chatRequest
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer xai-test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"1","model":"grok-3","choices":[{"message":{"role":"assistant","content":"4"},"finish_reason":"stop"}]}`))
	})

	history := []model.Turn{model.UserTurn("hello"), model.AssistantTurn("hey")}
	reply, err := a.RawSend(context.Background(), "2+2?", history)

	require.NoError(t, err)
	assert.Equal(t, "4", reply)
	assert.Equal(t, "grok-3", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, 1000, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	assert.Equal(t, []chatMessage{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hey"},
		{Role: "user", Content: "2+2?"},
	}, got.Messages)
}

func TestAdapter_Defaults(t *testing.T) {
	a := New(provider.Options{}).(*Adapter)

	assert.Equal(t, DefaultBaseURL, a.baseURL)
	assert.Equal(t, "Grok AI (xAI)", a.DisplayName())
	assert.Equal(t, "grok-3", a.Model())
	assert.True(t, a.SupportsModel("grok-4-heavy"))
	assert.False(t, a.SupportsModel("gpt-4"))

	_, err := a.RawSend(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, provider.ErrNotInitialized)
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestRawSend_ErrorShapes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		want    retry.Kind
	}{
		{
			name:    "string error",
			status:  http.StatusBadRequest,
			body:    `{"code":"Client specified an invalid argument","error":"Incorrect API key provided: xa***. You can obtain an API key from https://console.x.ai."}`,
			wantMsg: "Incorrect API key provided: xa***. You can obtain an API key from https://console.x.ai.",
			want:    retry.KindConnection,
		},
		{
			name:    "object error",
			status:  http.StatusForbidden,
			body:    `{"error":{"message":"Your team has run out of credits: billing required"}}`,
			wantMsg: "Your team has run out of credits: billing required",
			want:    retry.KindQuota,
		},
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"error":"unauthorized"}`,
			wantMsg: "unauthorized",
			want:    retry.KindAuth,
		},
		{
			name:    "plain text",
			status:  http.StatusBadGateway,
			body:    "upstream connect error\n",
			wantMsg: "upstream connect error",
			want:    retry.KindServer,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			_, err := a.RawSend(context.Background(), "hi", nil)

			var he *retry.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, tc.status, he.Status)
			assert.Equal(t, tc.wantMsg, he.Message)
			assert.Equal(t, tc.want, retry.Classify(err))
		})
	}
}

func TestRawSend_NoChoices(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"1","choices":[]}`))
	})

	_, err := a.RawSend(context.Background(), "hi", nil)

	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestRawSend_HonorsContext(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := a.RawSend(ctx, "hi", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// =============================================================================
// GOVERNED TESTS
// =============================================================================

func TestRawSend_UnderGovernorRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	})
	g := retry.NewGovernor(retry.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, CallTimeout: time.Second})

	got, err := retry.Do(context.Background(), g, func(ctx context.Context) (string, error) {
		return a.RawSend(ctx, "hi", nil)
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestReadResponse_SizeLimit(t *testing.T) {
	respond := func(n int) *http.Response {
		return &http.Response{Body: io.NopCloser(bytes.NewReader(make([]byte, n)))}
	}

	body, err := readResponse(respond(MaxResponseSize))
	require.NoError(t, err)
	assert.Len(t, body, MaxResponseSize)

	_, err = readResponse(respond(MaxResponseSize + 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded maximum size")
}
