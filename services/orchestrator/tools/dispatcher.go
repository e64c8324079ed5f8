// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianMoA/services/orchestrator/datatypes"
)

var tracer = otel.Tracer("aleutian.moa.tools")

// semanticErrorMarkers reclassify a nominally successful payload as a
// failure. Tools that wrap flaky APIs often report success around an
// error body; the markers catch that.
var semanticErrorMarkers = []string{
	"timeout", "rate limit", "api error", "access denied",
	"404", "500", "traceback",
}

// instructionVerbs open natural-language descriptions, not shell
// commands. A hint starting with one of these and running past two
// words is prose that leaked through the router.
var instructionVerbs = []string{
	"check", "verify", "confirm", "see", "look", "find", "tell",
	"show", "make", "ensure", "determine", "please",
}

// Dispatcher resolves arguments, validates them against the registry,
// invokes the executor, and retries once through the repairer when the
// result is a failure.
type Dispatcher struct {
	executor *Executor
	repairer *Repairer
	logger   *slog.Logger
}

func NewDispatcher(executor *Executor, repairer *Repairer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{executor: executor, repairer: repairer, logger: logger}
}

// Dispatch runs one tool call end to end. argHint is the router's
// extracted argument (may be empty); userText is the original request,
// used for argument inference and repair prompting. The returned
// ToolResult is always populated — failures are carried in-band.
func (d *Dispatcher) Dispatch(ctx context.Context, toolName, argHint, userText string) datatypes.ToolResult {
	ctx, span := tracer.Start(ctx, "Dispatcher.Dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", toolName))

	schema, ok := Lookup(toolName)
	if !ok {
		return datatypes.ToolResult{Tool: toolName, Success: false,
			Error: fmt.Sprintf("unknown tool: %s", toolName)}
	}

	arguments := d.resolveArguments(schema, argHint, userText)
	arguments = repairSchema(schema, arguments)

	if err := schema.Validate(arguments); err != nil {
		d.logger.Debug("Tool arguments invalid before invocation",
			"tool", toolName, "error", err)
		return d.retry(ctx, schema, arguments, err.Error(), userText)
	}

	result := d.invoke(ctx, schema, arguments)
	if result.Success {
		return result
	}
	return d.retry(ctx, schema, arguments, result.Error, userText)
}

// resolveArguments maps the router's hint onto the tool's canonical
// parameter, rejecting hints that are descriptions rather than values.
func (d *Dispatcher) resolveArguments(schema Schema, argHint, userText string) map[string]any {
	arguments := map[string]any{}
	hint := strings.TrimSpace(argHint)

	if schema.Name == "execute_command" && hint != "" && rejectCommandHint(hint) {
		d.logger.Debug("Rejected descriptive command hint", "hint", hint)
		hint = ""
	}

	if hint != "" && schema.CanonicalArg != "" {
		arguments[schema.CanonicalArg] = hint
		return arguments
	}

	if inferred := inferArgument(schema, userText); inferred != "" {
		arguments[schema.CanonicalArg] = inferred
	}
	return arguments
}

// rejectCommandHint flags values that cannot be shell commands: prose
// opening with an instruction verb, or text containing CJK characters.
func rejectCommandHint(hint string) bool {
	for _, r := range hint {
		if unicode.In(r, unicode.Han, unicode.Hangul, unicode.Hiragana, unicode.Katakana) {
			return true
		}
	}
	words := strings.Fields(hint)
	if len(words) <= 2 {
		return false
	}
	first := strings.ToLower(strings.Trim(words[0], ",.:"))
	for _, verb := range instructionVerbs {
		if first == verb {
			return true
		}
	}
	return false
}

// knownBinaries maps things users ask about to the binary that answers
// a version check.
var knownBinaries = []string{
	"uv", "ruff", "python", "python3", "node", "npm", "go", "git",
	"docker", "podman", "kubectl", "rustc", "cargo", "java", "pip",
}

// inferArgument derives a usable argument from the raw request text
// when no hint survived.
func inferArgument(schema Schema, userText string) string {
	text := strings.TrimSpace(userText)
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)

	switch schema.Name {
	case "execute_command":
		if strings.Contains(lower, "version") || strings.Contains(lower, "installed") ||
			strings.Contains(lower, "applied") {
			// A single request can ask about several binaries
			// ("is uv installed and which python"); answer them
			// all in one combined command.
			var checks []string
			for _, bin := range knownBinaries {
				if containsWord(lower, bin) {
					checks = append(checks, bin+" --version")
				}
			}
			if len(checks) > 0 {
				return strings.Join(checks, " && ")
			}
		}
		if strings.Contains(lower, "list") && strings.Contains(lower, "director") {
			return "ls"
		}
		if strings.Contains(lower, "disk") && strings.Contains(lower, "space") {
			return "df -h"
		}
		return ""
	case "get_weather":
		return extractLocation(text)
	case "get_current_time":
		return "UTC"
	default:
		// Search-shaped tools take the request itself as the query.
		return text
	}
}

// weatherNoise is dropped from a weather request to leave the location.
var weatherNoise = map[string]bool{
	"what": true, "whats": true, "what's": true, "is": true, "the": true, "a": true,
	"weather": true, "temperature": true, "forecast": true, "humidity": true,
	"rain": true, "snowing": true, "in": true, "for": true, "of": true,
	"at": true, "today": true, "tomorrow": true, "now": true, "current": true,
	"currently": true, "like": true, "how": true, "about": true, "tell": true,
	"me": true, "please": true, "and": true, "right": true,
}

func extractLocation(text string) string {
	var kept []string
	for _, field := range strings.Fields(text) {
		word := strings.Trim(field, ",.?!'\"")
		if word == "" || weatherNoise[strings.ToLower(word)] {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

func containsWord(text, word string) bool {
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if field == word {
			return true
		}
	}
	return false
}

// repairSchema renames foreign keys onto the canonical parameter and
// drops anything still unknown. A router that says location for a
// search tool meant query.
func repairSchema(schema Schema, arguments map[string]any) map[string]any {
	repaired := map[string]any{}
	var foreign []any
	for key, value := range arguments {
		if schema.knownParam(key) {
			repaired[key] = value
			continue
		}
		foreign = append(foreign, value)
	}
	if _, hasCanonical := repaired[schema.CanonicalArg]; !hasCanonical && len(foreign) > 0 {
		if s, ok := foreign[0].(string); ok && s != "" {
			repaired[schema.CanonicalArg] = s
		}
	}
	return repaired
}

func (d *Dispatcher) invoke(ctx context.Context, schema Schema, arguments map[string]any) datatypes.ToolResult {
	payload, err := d.executor.Execute(ctx, schema.Name, arguments)
	if err != nil {
		return datatypes.ToolResult{Tool: schema.Name, Arguments: arguments,
			Success: false, Error: err.Error()}
	}
	if marker := scanSemanticError(payload); marker != "" {
		return datatypes.ToolResult{Tool: schema.Name, Arguments: arguments,
			Success: false, Error: fmt.Sprintf("tool payload contains error marker %q", marker)}
	}
	return datatypes.ToolResult{Tool: schema.Name, Arguments: arguments,
		Success: true, Payload: payload}
}

// scanSemanticError walks the payload's string values for failure
// markers. URL values are exempt: "404" or "500" inside a link is data,
// not an error.
func scanSemanticError(payload map[string]any) string {
	var walk func(v any, key string) string
	walk = func(v any, key string) string {
		switch val := v.(type) {
		case string:
			if key == "url" || key == "link" {
				return ""
			}
			lower := strings.ToLower(val)
			for _, marker := range semanticErrorMarkers {
				if strings.Contains(lower, marker) {
					return marker
				}
			}
		case map[string]any:
			for k, inner := range val {
				if m := walk(inner, k); m != "" {
					return m
				}
			}
		case []map[string]any:
			for _, inner := range val {
				if m := walk(inner, key); m != "" {
					return m
				}
			}
		case []any:
			for _, inner := range val {
				if m := walk(inner, key); m != "" {
					return m
				}
			}
		}
		return ""
	}
	return walk(payload, "")
}

// retry runs the single repair round. A nil repairer (raw deployments
// without a model) fails straight through.
func (d *Dispatcher) retry(ctx context.Context, schema Schema, failed map[string]any, errText, userText string) datatypes.ToolResult {
	if d.repairer == nil {
		return failureResult(schema.Name, failed, errText)
	}

	repaired, err := d.repairer.Repair(ctx, schema, failed, errText, userText)
	if err != nil {
		d.logger.Warn("Argument repair failed", "tool", schema.Name, "error", err)
		return failureResult(schema.Name, failed, errText)
	}
	repaired = repairSchema(schema, repaired)
	if validationErr := schema.Validate(repaired); validationErr != nil {
		return failureResult(schema.Name, repaired, errText)
	}

	d.logger.Info("Retrying tool with repaired arguments", "tool", schema.Name)
	result := d.invoke(ctx, schema, repaired)
	if !result.Success {
		return failureResult(schema.Name, repaired, result.Error)
	}
	return result
}

// failureResult bounds the user-facing error text.
func failureResult(tool string, arguments map[string]any, errText string) datatypes.ToolResult {
	const maxErrLen = 300
	if len(errText) > maxErrLen {
		errText = errText[:maxErrLen] + "..."
	}
	return datatypes.ToolResult{Tool: tool, Arguments: arguments,
		Success: false, Error: errText}
}
