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

	"github.com/AleutianAI/AleutianMoA/pkg/workspace"
	"github.com/AleutianAI/AleutianMoA/services/llm"
)

// DefaultReportPath is where writing tasks land when the description
// names no file.
const DefaultReportPath = "docs/cowork_result.md"

const writerPromptTemplate = `You are a professional writer.
Goal: %s

Previous Context/Results:
%s

Current Task: %s

Write a high-quality, comprehensive final report or content based on the above.
Return ONLY the content to be saved.`

// WriterWorker produces the final polished document from the shared
// history and saves it into the workspace.
type WriterWorker struct {
	gateway   *llm.Gateway
	workspace *workspace.Workspace
	logger    *slog.Logger
}

func NewWriterWorker(gateway *llm.Gateway, ws *workspace.Workspace, logger *slog.Logger) *WriterWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &WriterWorker{gateway: gateway, workspace: ws, logger: logger}
}

func (w *WriterWorker) Name() string { return "writer" }

func (w *WriterWorker) Execute(ctx context.Context, description string, opts Options) (string, error) {
	prompt := fmt.Sprintf(writerPromptTemplate, opts.UserGoal, opts.History, description)

	maxTokens := 2048
	content, err := w.gateway.Generate(ctx, prompt, llm.GenerationParams{MaxTokens: &maxTokens})
	if err != nil {
		return "", fmt.Errorf("writer generation: %w", err)
	}

	target := DefaultReportPath
	if names := filePattern.FindAllString(description, 1); len(names) > 0 {
		target = names[0]
	}

	if err := w.workspace.Write(target, content); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	w.logger.Info("Report saved", "path", target, "bytes", len(content))
	return fmt.Sprintf("Saved to %s", target), nil
}
