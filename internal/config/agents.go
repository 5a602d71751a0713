// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// AddAgent appends a preset and returns its ID. An empty id is derived from
// the name, falling back to a random one.
func (c *Config) AddAgent(id, name, instructions string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("agent name is required")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
		if id == "" {
			id = uuid.NewString()[:8]
		}
	}
	if _, ok := c.FindAgent(id); ok {
		return "", fmt.Errorf("%w: %s", ErrDuplicateAgent, id)
	}
	c.Agents = append(c.Agents, Agent{ID: id, Name: name, Instructions: instructions})
	return id, nil
}

// RemoveAgent deletes a preset, clearing the selection if it was current.
func (c *Config) RemoveAgent(id string) error {
	for i, a := range c.Agents {
		if a.ID == id {
			c.Agents = append(c.Agents[:i:i], c.Agents[i+1:]...)
			if c.CurrentAgent == id {
				c.CurrentAgent = ""
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
}

// SelectAgent makes the preset named by id (or name) current. An empty id
// clears the selection.
func (c *Config) SelectAgent(id string) error {
	if id == "" {
		c.CurrentAgent = ""
		return nil
	}
	a, ok := c.FindAgent(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	c.CurrentAgent = a.ID
	return nil
}

// FindAgent looks a preset up by ID, or by case-insensitive name.
func (c *Config) FindAgent(idOrName string) (Agent, bool) {
	for _, a := range c.Agents {
		if a.ID == idOrName {
			return a, true
		}
	}
	for _, a := range c.Agents {
		if strings.EqualFold(a.Name, idOrName) {
			return a, true
		}
	}
	return Agent{}, false
}

// CurrentAgentPreset returns the selected preset, if any.
func (c *Config) CurrentAgentPreset() (Agent, bool) {
	if c.CurrentAgent == "" {
		return Agent{}, false
	}
	for _, a := range c.Agents {
		if a.ID == c.CurrentAgent {
			return a, true
		}
	}
	return Agent{}, false
}

// CurrentAgentInstructions returns the instructions of the selected preset,
// or "" when none is selected.
func (c *Config) CurrentAgentInstructions() string {
	a, _ := c.CurrentAgentPreset()
	return a.Instructions
}
