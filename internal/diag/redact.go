// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diag

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

const (
	// PreviewLimit caps how many characters of a body end up in a log line.
	PreviewLimit = 200

	// keyPrefixLen is how much of a provider key is kept when shortened.
	keyPrefixLen = 10

	hiddenValue = "[HIDDEN]"
	maskedValue = "***"
)

// sensitiveFieldMarkers are substrings that mark a JSON field or query
// parameter as secret. Matching is case-insensitive.
var sensitiveFieldMarkers = []string{"key", "token", "password", "secret", "api_key"}

// ShortenKey keeps the first few characters of a credential.
func ShortenKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= keyPrefixLen {
		return maskedValue
	}
	return key[:keyPrefixLen] + "..."
}

// MaskKey renders a credential for display in listings.
// Short keys are fully masked; longer ones keep four characters on each end.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return maskedValue
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// SanitizeHeaders flattens headers into a map safe for logging.
func SanitizeHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		value := strings.Join(values, ", ")
		switch strings.ToLower(name) {
		case "authorization", "proxy-authorization":
			value = hiddenValue
		case "x-goog-api-key", "x-api-key", "api-key":
			value = ShortenKey(value)
		}
		out[name] = value
	}
	return out
}

// SanitizeURL masks any secret-looking query parameter.
func SanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clean := *u
	clean.User = nil
	q := clean.Query()
	changed := false
	for name := range q {
		if isSensitive(name) {
			q.Set(name, maskedValue)
			changed = true
		}
	}
	if changed {
		clean.RawQuery = q.Encode()
	}
	return clean.String()
}

// SanitizeValue walks decoded JSON and masks secret-looking fields in place.
func SanitizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			if isSensitive(k) {
				t[k] = maskedValue
				continue
			}
			t[k] = SanitizeValue(inner)
		}
		return t
	case []any:
		for i := range t {
			t[i] = SanitizeValue(t[i])
		}
		return t
	default:
		return v
	}
}

// Preview returns a redacted, length-capped rendering of a body.
// JSON bodies are decoded, masked and re-encoded; anything else is cut.
func Preview(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	text := string(body)
	var decoded any
	if err := json.Unmarshal(body, &decoded); err == nil {
		if clean, err := json.Marshal(SanitizeValue(decoded)); err == nil {
			text = string(clean)
		}
	}
	return truncate(text, PreviewLimit)
}

// sortedKeys is used to keep log output stable.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range sensitiveFieldMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
