// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/jeranaias/terminal-agent/internal/model"
	"github.com/jeranaias/terminal-agent/internal/provider"
	"github.com/jeranaias/terminal-agent/internal/retry"
)

type capturedContents struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	a := New(provider.Options{BaseURL: server.URL + "/", HTTPClient: server.Client()}).(*Adapter)
	require.NoError(t, a.Initialize("AIza-test-key"))
	return a
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestAdapter_Metadata(t *testing.T) {
	a := New(provider.Options{})

	assert.Equal(t, provider.Gemini, a.Key())
	assert.Equal(t, "Gemini (Google)", a.DisplayName())
	assert.Equal(t, "gemini-2.0-flash", a.Model())
	assert.Len(t, a.AvailableModels(), 7)
}

func TestRawSend_RequestShape(t *testing.T) {
	var got capturedContents
	var path, apiKey string
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		apiKey = r.Header.Get("X-Goog-Api-Key")
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"4"}]}}]}`)
	})

	history := []model.Turn{model.UserTurn("hello"), model.AssistantTurn("hi")}
	reply, err := a.RawSend(context.Background(), "2+2?", history)

	require.NoError(t, err)
	assert.Equal(t, "4", reply)
	assert.Equal(t, "AIza-test-key", apiKey)
	assert.True(t, strings.HasSuffix(path, "/v1/models/gemini-2.0-flash:generateContent"), path)
	require.Len(t, got.Contents, 3)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, "user", got.Contents[2].Role)
	assert.Equal(t, "2+2?", got.Contents[2].Parts[0].Text)
}

func TestRawSend_JoinsPartsAndSkipsThoughts(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[
			{"text":"thinking...","thought":true},{"text":"Hello, "},{"text":"world"}]}}]}`)
	})

	reply, err := a.RawSend(context.Background(), "hi", nil)

	require.NoError(t, err)
	assert.Equal(t, "Hello, world", reply)
}

func TestRawSend_ErrorsCarryStatus(t *testing.T) {
	tests := []struct {
		name string
		code int
		msg  string
		want retry.Kind
	}{
		{"bad payload", 400, "Invalid JSON payload received.", retry.KindOther},
		{"bad key wording", 400, "API key not valid. Please pass a valid API key.", retry.KindConnection},
		{"billing", 403, "Billing account quota exceeded", retry.KindQuota},
		{"exhausted", 429, "Resource has been exhausted", retry.KindQuota},
		{"overloaded", 503, "The model is overloaded", retry.KindServer},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				body, _ := json.Marshal(map[string]any{
					"error": map[string]any{"code": tc.code, "message": tc.msg, "status": "X"},
				})
				writeJSON(w, tc.code, string(body))
			})

			_, err := a.RawSend(context.Background(), "hi", nil)

			var he *retry.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, tc.code, he.Status)
			assert.Equal(t, tc.want, retry.Classify(err))
		})
	}
}

func TestExtractText(t *testing.T) {
	_, err := extractText(nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = extractText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = extractText(&genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	})
	assert.ErrorIs(t, err, ErrBlocked)

	_, err = extractText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: ""}}}}},
	})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestBuildContents_KeepsOrder(t *testing.T) {
	history := []model.Turn{
		model.UserTurn("1"), model.AssistantTurn("2"), model.UserTurn("3"), model.AssistantTurn("4"),
	}

	contents := buildContents("5", history)

	require.Len(t, contents, 5)
	for i, c := range contents {
		assert.Equal(t, string(rune('1'+i)), c.Parts[0].Text)
	}
}
