// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockClient is a scripted LLMClient for tests.
//
// Responses are matched in order: each Generate call consumes the next
// queued response. RespondWith registers substring-triggered responses
// that take precedence over the queue, which lets one mock serve a whole
// pipeline (router prompt, worker prompt, repair prompt) in a single run.
type MockClient struct {
	mu        sync.Mutex
	queue     []string
	triggers  []mockTrigger
	prompts   []string
	resets    int
	err       error
	resetErr  error
	generated int
}

type mockTrigger struct {
	substr   string
	response string
}

// NewMockClient creates a mock that returns the given responses in order.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{queue: responses}
}

// RespondWith makes the mock return response whenever the prompt contains
// substr, regardless of the queue.
func (m *MockClient) RespondWith(substr, response string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers = append(m.triggers, mockTrigger{substr: substr, response: response})
	return m
}

// FailWith makes every subsequent Generate return err.
func (m *MockClient) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FailResetWith makes every subsequent Reset return err.
func (m *MockClient) FailResetWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetErr = err
}

// Name implements the LLMClient interface.
func (m *MockClient) Name() string { return "mock" }

// Generate implements the LLMClient interface.
func (m *MockClient) Generate(ctx context.Context, prompt string, _ GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	for _, trigger := range m.triggers {
		if strings.Contains(prompt, trigger.substr) {
			return trigger.response, nil
		}
	}
	if m.generated >= len(m.queue) {
		return "", fmt.Errorf("mock: no response queued for call %d", m.generated+1)
	}
	response := m.queue[m.generated]
	m.generated++
	return response, nil
}

// Reset implements the LLMClient interface.
func (m *MockClient) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	return m.resetErr
}

// Prompts returns a copy of every prompt Generate has seen.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Resets returns how many times Reset has been called.
func (m *MockClient) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

var _ LLMClient = (*MockClient)(nil)
