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
	"regexp"
	"strings"

	"github.com/AleutianAI/AleutianMoA/pkg/workspace"
	"github.com/AleutianAI/AleutianMoA/services/rag"
)

// filePattern finds workspace-relative document paths mentioned in free
// text, so "summarize notes.md" works without explicit @[...] syntax.
var filePattern = regexp.MustCompile(`([a-zA-Z0-9_\-\./]+\.(?:md|txt|pdf|csv))`)

var fileRefPattern = regexp.MustCompile(`@\[([^\]]+)\]`)

// ResearchWorker answers questions from the user's own documents:
// ingest every referenced file, then query the retrieval layer with the
// cleaned description.
type ResearchWorker struct {
	engine    rag.Engine
	workspace *workspace.Workspace
	logger    *slog.Logger
}

func NewResearchWorker(engine rag.Engine, ws *workspace.Workspace, logger *slog.Logger) *ResearchWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResearchWorker{engine: engine, workspace: ws, logger: logger}
}

func (w *ResearchWorker) Name() string { return "research" }

func (w *ResearchWorker) Execute(ctx context.Context, description string, opts Options) (string, error) {
	enhanced := enhanceFileRefs(description)

	refs := fileRefPattern.FindAllStringSubmatch(enhanced, -1)
	query := fileRefPattern.ReplaceAllString(enhanced, "")
	query = strings.TrimSpace(strings.Join(strings.Fields(query), " "))

	ingested := 0
	for _, m := range refs {
		name := strings.TrimSpace(m[1])
		target, err := w.workspace.ValidatePath(name)
		if err != nil {
			w.logger.Warn("Skipping file reference outside workspace", "file", name)
			continue
		}
		n, err := w.engine.IngestFile(ctx, target)
		if err != nil {
			// A broken reference drops out; the query still runs.
			w.logger.Warn("Could not ingest referenced file", "file", name, "error", err)
			continue
		}
		ingested += n
	}
	w.logger.Debug("Research ingestion done", "refs", len(refs), "chunks", ingested)

	if query == "" {
		query = description
	}
	retrieved, err := w.engine.Query(ctx, query, 5)
	if err != nil {
		return "", fmt.Errorf("retrieval query: %w", err)
	}
	if retrieved == "" {
		return "No relevant material found in the referenced documents.", nil
	}
	return retrieved, nil
}

// enhanceFileRefs wraps bare filenames in @[...] so one syntax reaches
// the retrieval layer. Descriptions that already carry a reference are
// left alone.
func enhanceFileRefs(description string) string {
	if strings.Contains(description, "@[") {
		return description
	}
	enhanced := description
	for _, m := range filePattern.FindAllString(description, -1) {
		enhanced = strings.Replace(enhanced, m, "@["+m+"]", 1)
	}
	return enhanced
}
