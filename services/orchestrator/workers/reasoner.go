// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianMoA/services/llm"
)

// Terse on purpose: the reasoner model drifts into chat when prompted
// conversationally.
const reasonerSystemPrompt = `You are a precise coding and math specialist. Solve the task. Output code or the worked answer only. No pleasantries.`

// ReasonerWorker dispatches coding and math tasks to the specialist
// model.
type ReasonerWorker struct {
	gateway *llm.Gateway
	logger  *slog.Logger
}

func NewReasonerWorker(gateway *llm.Gateway, logger *slog.Logger) *ReasonerWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReasonerWorker{gateway: gateway, logger: logger}
}

func (w *ReasonerWorker) Name() string { return "reasoner" }

func (w *ReasonerWorker) Execute(ctx context.Context, description string, opts Options) (string, error) {
	prompt := reasonerSystemPrompt + "\n\nTask: " + description
	if opts.Context != "" {
		prompt += "\n\nContext:\n" + opts.Context
	}

	maxTokens := 2048
	temp := float32(0.1)
	out, err := w.gateway.GenerateReasoner(ctx, prompt, llm.GenerationParams{
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return "", fmt.Errorf("reasoner generation: %w", err)
	}
	return out, nil
}
