// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat view of terminal-agent.

It is a Bubble Tea program built from a viewport for the transcript, a text
input and a spinner. Messages are sent through a provider.Dispatcher, so
retries and agent instructions behave exactly as in line mode.

# Key Components

## Model (model.go)

The Model holds the conversation, the transcript shown on screen and the
state of the request in flight. At most one request is in flight; its
reply is matched to the request by sequence number so a cancelled request
never lands in the conversation.

## Update (update.go)

  - Enter sends the input or runs a slash command
  - Tab completes commands, providers, models and agents
  - Ctrl+C cancels the request in flight, clears the input, or quits
  - Retry notices from the governor are shown in the status bar

## View Rendering (view.go)

Header with the current provider and agent, the transcript, the
completion popup, the input and a status bar. Assistant replies are
rendered as Markdown with glamour.

## Run (run.go)

Run starts the program and reinitializes providers when the config file
changes on disk.
*/
package chat
