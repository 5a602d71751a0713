// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/jeranaias/terminal-agent/internal/diag"
)

// UserAgent is sent by adapters that build their own requests.
const UserAgent = "terminal-agent/1.0"

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// SECURITY: TLS verification required, TLS 1.2 minimum.
var pooledTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
}

// NewHTTPClient returns a client sharing the pooled transport, reporting to d.
//
// The client sets no overall timeout. Each attempt is bounded by the retry
// governor through the request context.
func NewHTTPClient(source string, d diag.Diagnostics) *http.Client {
	return &http.Client{
		Transport: diag.NewTransport(source, pooledTransport, d),
	}
}

// ClientFor returns opts.HTTPClient, or a pooled client when it is nil.
func ClientFor(source string, opts Options) *http.Client {
	if opts.HTTPClient != nil {
		if opts.Diag == nil {
			return opts.HTTPClient
		}
		wrapped := *opts.HTTPClient
		wrapped.Transport = diag.NewTransport(source, opts.HTTPClient.Transport, opts.Diag)
		return &wrapped
	}
	return NewHTTPClient(source, opts.Diag)
}
