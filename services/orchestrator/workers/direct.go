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

const historyPreamble = `Previous Task Results:
%s

Current Task: %s

IMPORTANT: Perform the current task using the provided context above.`

// DirectWorker answers from the general model, optionally grounded in
// the results of earlier tasks.
type DirectWorker struct {
	gateway *llm.Gateway
	logger  *slog.Logger
}

func NewDirectWorker(gateway *llm.Gateway, logger *slog.Logger) *DirectWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectWorker{gateway: gateway, logger: logger}
}

func (w *DirectWorker) Name() string { return "direct" }

func (w *DirectWorker) Execute(ctx context.Context, description string, opts Options) (string, error) {
	prompt := description
	if opts.History != "" {
		prompt = fmt.Sprintf(historyPreamble, opts.History, description)
	} else if opts.Context != "" {
		prompt = fmt.Sprintf(historyPreamble, opts.Context, description)
	}

	w.logger.Debug("Direct task", "description_len", len(description),
		"has_history", opts.History != "")

	maxTokens := 1024
	out, err := w.gateway.Generate(ctx, prompt, llm.GenerationParams{MaxTokens: &maxTokens})
	if err != nil {
		return "", fmt.Errorf("direct generation: %w", err)
	}
	return out, nil
}
