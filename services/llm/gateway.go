// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("aleutian.moa.llm")

// =============================================================================
// Gateway
// =============================================================================

// Gateway serializes access to the loaded models.
//
// # Description
//
// Local single-model servers cannot run concurrent completions without
// interleaving their KV caches, so every inference in the process must go
// through one lock. Gateway wraps an LLMClient with that lock and pairs
// each Generate with a preceding Reset, giving every caller a clean
// context; a failed reset aborts the call rather than completing against
// stale state. An optional second client serves reasoning work (code and
// math) on a specialized model; it shares the same lock because both
// models contend for the same local compute. Callers throughout the
// system hold a *Gateway, never a raw backend client.
//
// # Thread Safety
//
// Gateway is safe for concurrent use; that is its purpose. Calls block
// until the model is free.
//
// # Example
//
//	client, _ := llm.NewLlamaCppClient("http://localhost:8080")
//	gw := llm.NewGateway(client, logger)
//	out, err := gw.Generate(ctx, prompt, llm.GenerationParams{})
type Gateway struct {
	client   LLMClient
	reasoner LLMClient
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewGateway wraps client in a serializing gateway. A nil logger falls
// back to slog.Default.
func NewGateway(client LLMClient, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{client: client, logger: logger}
}

// WithReasoner routes GenerateReasoner calls to a dedicated code/math
// client. Returns the gateway for chaining.
func (g *Gateway) WithReasoner(client LLMClient) *Gateway {
	g.reasoner = client
	return g
}

// Name implements the LLMClient interface.
func (g *Gateway) Name() string { return g.client.Name() }

// Generate implements the LLMClient interface.
//
// # Description
//
// Acquires the model lock, resets the backend's state, then runs the
// completion. A failed reset fails the call: completing against a dirty
// cache would silently contaminate the answer with a previous caller's
// context.
//
// # Inputs
//
//   - ctx: Context for cancellation/timeout. Checked before the backend
//     call so a caller whose deadline expired while waiting on the lock
//     fails fast.
//   - prompt: Full prompt text.
//   - params: Sampling settings; nil fields use backend defaults.
//
// # Outputs
//
//   - string: The completion text.
//   - error: Non-nil on reset failure, backend failure, or context expiry.
func (g *Gateway) Generate(ctx context.Context, prompt string,
	params GenerationParams) (string, error) {
	return g.generate(ctx, g.client, prompt, params)
}

// GenerateReasoner runs the completion on the reasoning client when one
// is configured, falling back to the primary client otherwise. The same
// lock applies either way.
func (g *Gateway) GenerateReasoner(ctx context.Context, prompt string,
	params GenerationParams) (string, error) {
	client := g.reasoner
	if client == nil {
		client = g.client
	}
	return g.generate(ctx, client, prompt, params)
}

func (g *Gateway) generate(ctx context.Context, client LLMClient,
	prompt string, params GenerationParams) (string, error) {

	ctx, span := tracer.Start(ctx, "Gateway.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.backend", client.Name()),
		attribute.Int("llm.prompt_len", len(prompt)),
	)

	waitStart := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	waited := time.Since(waitStart)
	if waited > time.Second {
		g.logger.Debug("Waited for model lock", "wait", waited)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := client.Reset(ctx); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("model reset failed on %s: %w", client.Name(), err)
	}

	start := time.Now()
	out, err := client.Generate(ctx, prompt, params)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	g.logger.Debug("Generation complete",
		"backend", client.Name(),
		"duration", time.Since(start),
		"response_len", len(out),
	)
	return out, nil
}

// Reset implements the LLMClient interface. It takes the model lock so a
// reset never races an in-flight completion.
func (g *Gateway) Reset(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.Reset(ctx)
}
