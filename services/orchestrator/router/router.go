// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package router classifies requests into {DIRECT, TOOL, REASONER}.
//
// The decision is two-tier: a deterministic keyword/regex fast path, and
// a constrained-JSON model fallback for everything the fast path cannot
// place. The router is total — every input yields exactly one decision,
// with DIRECT as the terminal default.
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianMoA/services/llm"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/datatypes"
)

var tracer = otel.Tracer("aleutian.moa.router")

const routerSystemPrompt = `You are a task router. Analyze the user's request and decide how to handle it.

Available specialists:
- REASONER: STRICTLY for coding tasks (Python implementation) and complex math problems only. Do NOT use for search or general questions.
- TOOL: For ANY requests requiring external information (weather, news, definitions), checking system status, verify commands, or real-time data.
- DIRECT: For general conversation, greetings, translations, and internal knowledge.

Respond with a JSON object:
{"route": "REASONER" or "TOOL" or "DIRECT", "specialist_prompt": "optimized search keywords for TOOL. For 'execute_command', provide the EXACT shell command (e.g., 'uv --version'). Do NOT provide descriptions.", "tool_hint": "tool name if TOOL route"}

Examples:
- "Write a Fibonacci function" -> {"route": "REASONER", "specialist_prompt": "Write a Python function for Fibonacci sequence", "tool_hint": ""}
- "How is the weather in Seoul?" -> {"route": "TOOL", "specialist_prompt": "Seoul", "tool_hint": "get_weather"}
- "Latest info about Einstein" -> {"route": "TOOL", "specialist_prompt": "Albert Einstein latest news", "tool_hint": "search_news"}
- "Check whether uv is applied to this project" -> {"route": "TOOL", "specialist_prompt": "uv --version", "tool_hint": "execute_command"}`

// Router produces one RouteDecision per request.
type Router struct {
	model  llm.LLMClient
	logger *slog.Logger
}

// New builds a Router. model is used only for the tier-B fallback and
// may be a Gateway.
func New(model llm.LLMClient, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{model: model, logger: logger}
}

// Route classifies the English input. It never returns an error: any
// model or parse failure degrades through keyword fallback to DIRECT.
func (r *Router) Route(ctx context.Context, input string) datatypes.RouteDecision {
	ctx, span := tracer.Start(ctx, "Router.Route")
	defer span.End()

	if decision, ok := fastRoute(input); ok {
		span.SetAttributes(
			attribute.String("router.tier", "fast"),
			attribute.String("router.kind", string(decision.Kind)),
		)
		r.logger.Debug("Fast-path route", "kind", decision.Kind, "tool", decision.ToolHint)
		return decision
	}

	decision := r.llmRoute(ctx, input)
	span.SetAttributes(
		attribute.String("router.tier", "llm"),
		attribute.String("router.kind", string(decision.Kind)),
	)
	return decision
}

// llmRoute is the tier-B fallback: a constrained JSON prompt, with the
// object located between the first '{' and the last '}' of the
// completion. Small models decorate JSON with prose; slicing is more
// reliable than demanding cleanliness.
func (r *Router) llmRoute(ctx context.Context, input string) datatypes.RouteDecision {
	prompt := routerSystemPrompt + "\n\nUser request: " + input + "\nJSON:"

	maxTokens := 256
	temp := float32(0.2)
	out, err := r.model.Generate(ctx, prompt, llm.GenerationParams{
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		r.logger.Warn("Router model call failed, using keyword fallback", "error", err)
		return keywordFallback(input)
	}

	decision, ok := parseRouteJSON(out)
	if !ok {
		r.logger.Debug("Router JSON parse failed, using keyword fallback",
			"completion_len", len(out))
		return keywordFallback(input)
	}
	if err := decision.Validate(); err != nil {
		r.logger.Debug("Router produced inconsistent decision, repairing", "error", err)
		decision = repairDecision(decision)
	}
	return decision
}

func parseRouteJSON(completion string) (datatypes.RouteDecision, bool) {
	start := strings.Index(completion, "{")
	end := strings.LastIndex(completion, "}")
	if start < 0 || end <= start {
		return datatypes.RouteDecision{}, false
	}
	var decision datatypes.RouteDecision
	if err := json.Unmarshal([]byte(completion[start:end+1]), &decision); err != nil {
		return datatypes.RouteDecision{}, false
	}
	decision.Kind = datatypes.RouteKind(strings.ToUpper(strings.TrimSpace(string(decision.Kind))))
	if decision.Kind == "" {
		return datatypes.RouteDecision{}, false
	}
	return decision, true
}

// repairDecision coerces a parsed-but-inconsistent decision into a valid
// one rather than discarding the model's work.
func repairDecision(d datatypes.RouteDecision) datatypes.RouteDecision {
	if d.ToolHint != "" {
		d.Kind = datatypes.RouteTool
		return d
	}
	if d.Kind == datatypes.RouteTool && d.ToolHint == "" {
		d.ToolHint = "search_web"
		return d
	}
	switch d.Kind {
	case datatypes.RouteDirect, datatypes.RouteTool, datatypes.RouteReasoner:
		return d
	}
	return datatypes.RouteDecision{Kind: datatypes.RouteDirect}
}

// keywordFallback is the secondary keyword pass used when both the fast
// path and the model fail to yield a usable decision.
func keywordFallback(input string) datatypes.RouteDecision {
	lower := strings.ToLower(input)

	toolKeywords := []struct {
		tool     string
		keywords []string
	}{
		{"get_weather", []string{"weather", "temperature"}},
		{"search_web", []string{"search", "who", "what", "where", "latest", "news"}},
		{"get_current_time", []string{"time", "date", "today"}},
		{"execute_command", []string{"check", "verify", "run", "version", "command", "ls", "dir"}},
	}
	for _, entry := range toolKeywords {
		if containsAny(lower, entry.keywords) {
			return datatypes.RouteDecision{
				Kind:     datatypes.RouteTool,
				ToolHint: entry.tool,
			}
		}
	}

	reasonerKeywords := []string{"code", "function", "implement", "python", "algorithm", "math", "proof", "fibonacci"}
	if containsAny(lower, reasonerKeywords) {
		return datatypes.RouteDecision{
			Kind:    datatypes.RouteReasoner,
			ArgHint: strings.TrimSpace(input),
		}
	}

	return datatypes.RouteDecision{Kind: datatypes.RouteDirect}
}
