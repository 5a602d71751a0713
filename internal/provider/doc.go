// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider holds the adapter contract, the registry of adapters and
// the dispatcher every caller sends messages through.
//
// # Key Types
//
//   - Key: closed set of provider identifiers (openai, gemini, grok)
//   - Adapter: per-provider translation between a turn and a vendor API
//   - Registry: one adapter per key plus the current selection
//   - Dispatcher: the single send path; injects agent instructions on the
//     first turn and runs the adapter under the retry governor
//
// # Usage
//
//	reg := provider.NewRegistry(cfg, builtin.Factories(), provider.Options{}, log)
//	reg.InitializeAll(cfg)
//	d := provider.NewDispatcher(reg, cfg, retry.NewGovernor(policy))
//	reply, err := d.Send(ctx, "hello", conv.History(), observer)
//
// Adapters live in subpackages and are wired through a static factory table
// in package builtin.
package provider
