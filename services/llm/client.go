// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import "context"

// GenerationParams carries per-call sampling settings. Nil fields mean
// "use the backend default".
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend.
//
// # Description
//
// Generate runs a single stateless completion. Reset clears any
// server-side state (KV cache, slot context) so the next Generate starts
// from a clean context; backends without server-side state implement it
// as a no-op. Name identifies the backend for logging.
//
// Small local models leak context between unrelated prompts when the KV
// cache is reused, so callers are expected to Reset before every
// Generate. Gateway enforces that pairing.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
	Reset(ctx context.Context) error
	Name() string
}

// Float32Ptr returns a pointer to v, for building GenerationParams literals.
func Float32Ptr(v float32) *float32 { return &v }

// IntPtr returns a pointer to v, for building GenerationParams literals.
func IntPtr(v int) *int { return &v }
