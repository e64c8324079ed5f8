// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"context"
	"regexp"
	"strings"
)

// referenceFence separates the user's request from retrieved document
// context in an augmented prompt.
const referenceFence = "--- Reference Material ---"

var fileRefPattern = regexp.MustCompile(`@\[([^\]]+)\]`)

// resolvedInput is a goal with its @[file] references resolved: the
// tokens stripped from the text, the retrieved context held separately.
type resolvedInput struct {
	Text      string
	Reference string
	Refs      []string
}

// Augmented returns the routed text plus the reference fence, the form
// handed to a DIRECT worker.
func (r resolvedInput) Augmented() string {
	if r.Reference == "" {
		return r.Text
	}
	return r.Text + "\n\n" + referenceFence + "\n" + r.Reference
}

// resolveFileRefs strips @[file] tokens from the input, ingests each
// referenced file, and retrieves context for the remaining text. A
// reference that cannot be validated or ingested is logged and dropped;
// the call continues without that context.
func (o *Orchestrator) resolveFileRefs(ctx context.Context, input string) resolvedInput {
	matches := fileRefPattern.FindAllStringSubmatch(input, -1)
	text := strings.TrimSpace(strings.Join(strings.Fields(fileRefPattern.ReplaceAllString(input, "")), " "))
	if len(matches) == 0 {
		return resolvedInput{Text: text}
	}

	resolved := resolvedInput{Text: text}
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		target, err := o.workspace.ValidatePath(name)
		if err != nil {
			o.logger.Warn("Dropping file reference outside workspace", "file", name)
			continue
		}
		chunks, err := o.engine.IngestFile(ctx, target)
		if err != nil {
			o.logger.Warn("Dropping unreadable file reference", "file", name, "error", err)
			continue
		}
		o.logger.Info("Ingested referenced file", "file", name, "chunks", chunks)
		resolved.Refs = append(resolved.Refs, name)
	}
	if len(resolved.Refs) == 0 {
		return resolved
	}

	query := text
	if query == "" {
		query = "summary of the referenced documents"
	}
	retrieved, err := o.engine.Query(ctx, query, 5)
	if err != nil {
		o.logger.Warn("Retrieval failed, continuing without reference context", "error", err)
		return resolved
	}
	resolved.Reference = retrieved
	return resolved
}
