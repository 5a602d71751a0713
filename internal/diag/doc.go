// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package diag provides the diagnostics collaborator used by the retry
// governor and the provider adapters.
//
// Diagnostics are injected at construction time. Nothing here is a package
// level singleton, so tests can pass Nop() or a logger backed by an
// observed zap core.
//
// # Key Types
//
//   - Diagnostics: LogRequest, LogResponse and LogError hooks
//   - Logger: zap-backed Diagnostics that redacts credentials
//   - Transport: http.RoundTripper that reports every exchange
//
// # Security
//
// Credentials never reach a log line. Authorization headers are hidden,
// provider key headers and key query parameters are shortened, and JSON
// fields that look like secrets are masked before a body preview is taken.
package diag
