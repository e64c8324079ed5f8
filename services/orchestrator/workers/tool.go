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
	"strings"

	"github.com/AleutianAI/AleutianMoA/services/orchestrator/format"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/tools"
)

// knownCities resolves weather locations mentioned in task
// descriptions. Descriptions reach this worker in English, but city
// names survive translation in either script.
var knownCities = map[string]string{
	"seoul": "Seoul", "서울": "Seoul",
	"tokyo": "Tokyo", "도쿄": "Tokyo",
	"busan": "Busan", "부산": "Busan",
	"incheon": "Incheon", "인천": "Incheon",
	"paris": "Paris", "london": "London", "berlin": "Berlin",
	"new york": "New York", "뉴욕": "New York",
	"beijing": "Beijing", "shanghai": "Shanghai",
	"san francisco": "San Francisco",
}

// ToolWorker resolves a tool and its argument from a task description
// and dispatches in raw-result mode: the structured payload is framed
// for the integrator untouched, so URLs and values survive verbatim.
type ToolWorker struct {
	dispatcher *tools.Dispatcher
	logger     *slog.Logger
}

func NewToolWorker(dispatcher *tools.Dispatcher, logger *slog.Logger) *ToolWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolWorker{dispatcher: dispatcher, logger: logger}
}

func (w *ToolWorker) Name() string { return "tool" }

func (w *ToolWorker) Execute(ctx context.Context, description string, opts Options) (string, error) {
	toolName, argHint := resolveToolCall(description)
	w.logger.Debug("Tool task", "tool", toolName, "arg", argHint)

	result := w.dispatcher.Dispatch(ctx, toolName, argHint, description)
	if !result.Success {
		return "", fmt.Errorf("tool %s failed: %s", result.Tool, result.Error)
	}
	return format.WrapSection(description, result.Payload), nil
}

// resolveToolCall maps a task description onto a (tool, argument) pair.
// Planner-emitted descriptions carry an explicit "tool_name:" prefix;
// free-form descriptions go through keyword inference.
func resolveToolCall(description string) (string, string) {
	trimmed := strings.TrimSpace(description)

	for _, schema := range tools.Registry {
		prefix := schema.Name + ":"
		if strings.HasPrefix(strings.ToLower(trimmed), prefix) {
			return schema.Name, strings.TrimSpace(trimmed[len(prefix):])
		}
	}

	lower := strings.ToLower(trimmed)
	switch {
	case strings.Contains(lower, "version") || strings.Contains(lower, "installed"):
		// The dispatcher synthesizes the actual command from the text.
		return "execute_command", ""
	case strings.Contains(lower, "weather") || strings.Contains(lower, "temperature"):
		return "get_weather", extractCity(lower)
	case strings.Contains(lower, "news") || strings.Contains(lower, "headline"):
		return "search_news", stripToolNoise(trimmed, "news", "headline", "headlines", "about", "latest", "search", "find", "the", "for")
	case strings.Contains(lower, "wikipedia"):
		return "search_wikipedia", stripToolNoise(trimmed, "wikipedia", "on", "search", "look", "up", "the", "for")
	case strings.Contains(lower, "time") && !strings.Contains(lower, "times"):
		return "get_current_time", ""
	case strings.Contains(lower, "calculate") || strings.Contains(lower, "compute"):
		return "calculate", ""
	default:
		return "search_web", trimmed
	}
}

// extractCity scans for a known city; an unknown location falls back to
// the word preceding "weather".
func extractCity(lower string) string {
	for key, city := range knownCities {
		if strings.Contains(lower, key) {
			return city
		}
	}
	fields := strings.Fields(lower)
	for i, f := range fields {
		if strings.HasPrefix(f, "weather") && i > 0 {
			candidate := strings.Trim(fields[i-1], ",.?!")
			switch candidate {
			case "the", "current", "todays", "today's", "in", "of":
				return ""
			}
			return capitalize(candidate)
		}
	}
	return ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// stripToolNoise removes routing words so the remaining text works as a
// search query.
func stripToolNoise(text string, noise ...string) string {
	noiseSet := map[string]bool{}
	for _, n := range noise {
		noiseSet[n] = true
	}
	var kept []string
	for _, field := range strings.Fields(text) {
		if noiseSet[strings.ToLower(strings.Trim(field, ",.?!:"))] {
			continue
		}
		kept = append(kept, field)
	}
	if len(kept) == 0 {
		return strings.TrimSpace(text)
	}
	return strings.Join(kept, " ")
}
