// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import (
	"regexp"
	"strings"

	"github.com/AleutianAI/AleutianMoA/services/orchestrator/datatypes"
)

// =============================================================================
// Tier A - deterministic fast path
// =============================================================================

// Rules run in a fixed order and the first match wins. The model never
// sees a request the fast path can classify, which keeps common queries
// off the lock entirely.

var (
	recentYearPattern     = regexp.MustCompile(`\b20(2[3-9]|3[0-9])\b`)
	productVersionPattern = regexp.MustCompile(`(?i)\b(gpt-?[0-9]|claude-?[0-9]|gemini-?[0-9]|llama-?[0-9]|o[0-9]-?(mini|pro)?)\b`)
	arithmeticPattern     = regexp.MustCompile(`[0-9]\s*[-+*/]\s*[0-9]`)
	whatIsPattern         = regexp.MustCompile(`(?i)^\s*what\s+is\s+(?:an?\s+|the\s+)?([a-z0-9 _.+-]{1,40}?)\s*\??\s*$`)
)

var recencyKeywords = []string{
	"latest", "recent", "current state", "this year", "nowadays", "up to date",
}

var socialKeywords = []string{
	"hello", "hi ", "hey", "good morning", "good evening", "thank", "thanks",
	"nice to meet", "how are you", "summarize", "translate", "explain",
}

// technicalTerms gates concept queries: "what is X" goes to web search
// only when X is a term whose answer changes with the ecosystem.
var technicalTerms = map[string]bool{
	"uv": true, "ruff": true, "bun": true, "deno": true, "zig": true,
	"webassembly": true, "wasm": true, "kubernetes": true, "mcp": true,
	"rag": true, "lora": true, "qlora": true, "vllm": true, "ollama": true,
	"langchain": true, "transformer": true, "mixture of agents": true,
}

var codingKeywords = []string{
	"function", "algorithm", "implement", "python code", "write code",
	"fibonacci", "quicksort", "binary search", "regex for", "refactor",
}

var weatherKeywords = []string{"weather", "temperature", "forecast", "humidity", "rain", "snowing"}

var historicalKeywords = []string{"yesterday", "last week", "last month", "last year", "historical", "history of"}

var newsKeywords = []string{"news", "headline", "announced", "press release"}

var searchKeywords = []string{"search", "look up", "find out", "who is", "google"}

var timeKeywords = []string{"what time", "current time", "today's date", "what date", "what day"}

var commandKeywords = []string{
	"version", "--version", "installed", "run the command", "execute",
	" ls ", "list the directory", "check if", "verify that",
}

// fastRoute applies the deterministic rules to the lower-cased English
// input. The second return is false when no rule matched.
func fastRoute(input string) (datatypes.RouteDecision, bool) {
	lower := strings.ToLower(input)

	// 1. Recency: anything anchored to a recent year or a fast-moving
	// product must come from the web, not model weights.
	if recentYearPattern.MatchString(lower) ||
		productVersionPattern.MatchString(input) ||
		containsAny(lower, recencyKeywords) {
		return datatypes.RouteDecision{
			Kind:     datatypes.RouteTool,
			ToolHint: "search_web",
			ArgHint:  strings.TrimSpace(input),
		}, true
	}

	// 2. Social and summarization chatter stays local.
	if containsAny(lower, socialKeywords) {
		return datatypes.RouteDecision{Kind: datatypes.RouteDirect}, true
	}

	// 3. Concept queries: only tech terms whose meaning drifts go out.
	if m := whatIsPattern.FindStringSubmatch(input); m != nil {
		term := strings.ToLower(strings.TrimSpace(m[1]))
		if technicalTerms[term] {
			return datatypes.RouteDecision{
				Kind:     datatypes.RouteTool,
				ToolHint: "search_web",
				ArgHint:  "what is " + term,
			}, true
		}
		return datatypes.RouteDecision{Kind: datatypes.RouteDirect}, true
	}

	// 4. Arithmetic.
	if arithmeticPattern.MatchString(lower) || strings.Contains(lower, "calculate") {
		return datatypes.RouteDecision{
			Kind:     datatypes.RouteTool,
			ToolHint: "calculate",
			ArgHint:  extractExpression(input),
		}, true
	}

	// 5. Coding and math reasoning.
	if containsAny(lower, codingKeywords) {
		return datatypes.RouteDecision{
			Kind:    datatypes.RouteReasoner,
			ArgHint: strings.TrimSpace(input),
		}, true
	}

	// 6. Tool keyword tables.
	if containsAny(lower, weatherKeywords) {
		// The weather backend has no history; past-tense weather is a
		// web search.
		if containsAny(lower, historicalKeywords) {
			return datatypes.RouteDecision{
				Kind:     datatypes.RouteTool,
				ToolHint: "search_web",
				ArgHint:  strings.TrimSpace(input),
			}, true
		}
		return datatypes.RouteDecision{
			Kind:     datatypes.RouteTool,
			ToolHint: "get_weather",
		}, true
	}
	if containsAny(lower, newsKeywords) {
		return datatypes.RouteDecision{
			Kind:     datatypes.RouteTool,
			ToolHint: "search_news",
			ArgHint:  strings.TrimSpace(input),
		}, true
	}
	if containsAny(lower, timeKeywords) {
		return datatypes.RouteDecision{
			Kind:     datatypes.RouteTool,
			ToolHint: "get_current_time",
		}, true
	}
	if containsAny(lower, commandKeywords) {
		return datatypes.RouteDecision{
			Kind:     datatypes.RouteTool,
			ToolHint: "execute_command",
		}, true
	}
	if containsAny(lower, searchKeywords) {
		return datatypes.RouteDecision{
			Kind:     datatypes.RouteTool,
			ToolHint: "search_web",
			ArgHint:  strings.TrimSpace(input),
		}, true
	}

	return datatypes.RouteDecision{}, false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// extractExpression pulls the longest arithmetic-charset run out of the
// input so "calculate 2 + 3 * 4 please" yields "2 + 3 * 4".
func extractExpression(input string) string {
	best := ""
	current := strings.Builder{}
	for _, r := range input {
		if (r >= '0' && r <= '9') || strings.ContainsRune("+-*/.() ", r) {
			current.WriteRune(r)
			continue
		}
		if candidate := strings.TrimSpace(current.String()); len(candidate) > len(best) {
			best = candidate
		}
		current.Reset()
	}
	if candidate := strings.TrimSpace(current.String()); len(candidate) > len(best) {
		best = candidate
	}
	if !arithmeticPattern.MatchString(best) {
		return strings.TrimSpace(input)
	}
	return best
}
