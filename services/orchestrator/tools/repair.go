// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianMoA/services/llm"
)

const repairPromptTemplate = `A tool call failed. Produce corrected arguments.

Tool: %s
Parameters:
%s
Failed arguments: %s
Error: %s
Original user request: %s

Respond with ONLY a JSON object of corrected arguments, e.g. {"%s": "..."}
JSON:`

// Repairer asks the model for corrected tool arguments after a failed
// invocation. One round only; the dispatcher enforces that.
type Repairer struct {
	model  llm.LLMClient
	logger *slog.Logger
}

func NewRepairer(model llm.LLMClient, logger *slog.Logger) *Repairer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repairer{model: model, logger: logger}
}

// Repair prompts for corrected arguments and parses the completion's
// first JSON object. For execute_command a bare quoted or unquoted
// string is accepted as the command itself.
func (r *Repairer) Repair(ctx context.Context, schema Schema, failed map[string]any, errText, userText string) (map[string]any, error) {
	failedJSON, _ := json.Marshal(failed)

	var params strings.Builder
	for _, p := range schema.Params {
		mark := ""
		if p.Required {
			mark = " (required)"
		}
		fmt.Fprintf(&params, "  - %s: %s%s\n", p.Name, p.Description, mark)
	}

	prompt := fmt.Sprintf(repairPromptTemplate,
		schema.Name, params.String(), failedJSON, errText, userText, schema.CanonicalArg)

	maxTokens := 200
	temp := float32(0.1)
	out, err := r.model.Generate(ctx, prompt, llm.GenerationParams{
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return nil, fmt.Errorf("repair generation: %w", err)
	}

	arguments, ok := parseArgumentJSON(out)
	if ok {
		return arguments, nil
	}

	if schema.Name == "execute_command" {
		if command := bareCommand(out); command != "" {
			return map[string]any{"command": command}, nil
		}
	}
	return nil, fmt.Errorf("repair completion is not a JSON object")
}

func parseArgumentJSON(completion string) (map[string]any, bool) {
	start := strings.Index(completion, "{")
	end := strings.LastIndex(completion, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var arguments map[string]any
	if err := json.Unmarshal([]byte(completion[start:end+1]), &arguments); err != nil {
		return nil, false
	}
	return arguments, true
}

// bareCommand salvages a plain-text completion as a shell command. Only
// the first line counts, and prose-length output is discarded.
func bareCommand(completion string) string {
	line := strings.TrimSpace(completion)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	line = strings.Trim(line, "`'\"")
	if line == "" || len(strings.Fields(line)) > 6 {
		return ""
	}
	return line
}
