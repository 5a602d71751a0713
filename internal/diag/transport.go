// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diag

import (
	"bytes"
	"io"
	"net/http"
	"time"
)

// maxCapture bounds how much of a body is buffered for previewing.
const maxCapture = 64 * 1024

// Transport reports each HTTP exchange to a Diagnostics sink.
// Bodies are only buffered when the sink is enabled.
type Transport struct {
	Source string
	Base   http.RoundTripper
	Diag   Diagnostics
}

// NewTransport wraps base. A nil base uses http.DefaultTransport.
func NewTransport(source string, base http.RoundTripper, d Diagnostics) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if d == nil {
		d = Nop()
	}
	return &Transport{Source: source, Base: base, Diag: d}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.Diag.Enabled() {
		return t.Base.RoundTrip(req)
	}

	var reqBody []byte
	if req.GetBody != nil {
		if rc, err := req.GetBody(); err == nil {
			reqBody, _ = io.ReadAll(io.LimitReader(rc, maxCapture))
			rc.Close()
		}
	}
	t.Diag.LogRequest(t.Source, req.Method, req.URL, req.Header, reqBody)

	start := time.Now()
	resp, err := t.Base.RoundTrip(req)
	elapsed := time.Since(start)
	if err != nil {
		t.Diag.LogError(t.Source, err)
		return nil, err
	}

	// Read the head of the body for the preview and stitch it back so the
	// caller still sees the complete stream.
	head, readErr := io.ReadAll(io.LimitReader(resp.Body, maxCapture))
	resp.Body = &rejoinedBody{
		Reader: io.MultiReader(bytes.NewReader(head), resp.Body),
		closer: resp.Body,
	}
	if readErr != nil {
		t.Diag.LogError(t.Source, readErr)
	}
	t.Diag.LogResponse(t.Source, resp.StatusCode, elapsed, head)
	return resp, nil
}

type rejoinedBody struct {
	io.Reader
	closer io.Closer
}

func (b *rejoinedBody) Close() error {
	return b.closer.Close()
}
