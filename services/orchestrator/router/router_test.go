// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMoA/services/llm"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/datatypes"
)

func TestFastRoute(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		wantKind datatypes.RouteKind
		wantTool string
	}{
		{
			name:     "recent year forces web search",
			input:    "What happened at the 2025 model releases?",
			wantKind: datatypes.RouteTool,
			wantTool: "search_web",
		},
		{
			name:     "product version forces web search",
			input:    "Tell me about GPT-5 capabilities",
			wantKind: datatypes.RouteTool,
			wantTool: "search_web",
		},
		{
			name:     "recency keyword forces web search",
			input:    "What is the latest release of the kernel?",
			wantKind: datatypes.RouteTool,
			wantTool: "search_web",
		},
		{
			name:     "greeting is direct",
			input:    "Hello, how are you today doing?",
			wantKind: datatypes.RouteDirect,
		},
		{
			name:     "what-is on technical term searches",
			input:    "What is uv?",
			wantKind: datatypes.RouteTool,
			wantTool: "search_web",
		},
		{
			name:     "what-is on plain word is direct",
			input:    "What is love?",
			wantKind: datatypes.RouteDirect,
		},
		{
			name:     "arithmetic routes to calculator",
			input:    "Please compute 12 * (3 + 4)",
			wantKind: datatypes.RouteTool,
			wantTool: "calculate",
		},
		{
			name:     "coding routes to reasoner",
			input:    "Write a Python function to reverse a list",
			wantKind: datatypes.RouteReasoner,
		},
		{
			name:     "weather routes to weather tool",
			input:    "How is the weather in Seoul?",
			wantKind: datatypes.RouteTool,
			wantTool: "get_weather",
		},
		{
			name:     "historical weather routes to web search",
			input:    "What was the weather in Seoul last year?",
			wantKind: datatypes.RouteTool,
			wantTool: "search_web",
		},
		{
			name:     "news routes to news search",
			input:    "Any news about the election?",
			wantKind: datatypes.RouteTool,
			wantTool: "search_news",
		},
		{
			name:     "time routes to clock",
			input:    "What time is it in Tokyo right now?",
			wantKind: datatypes.RouteTool,
			wantTool: "get_current_time",
		},
		{
			name:     "command verb routes to executor",
			input:    "Check if docker is installed on this machine",
			wantKind: datatypes.RouteTool,
			wantTool: "execute_command",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, ok := fastRoute(tc.input)
			require.True(t, ok, "expected fast path to claim %q", tc.input)
			assert.Equal(t, tc.wantKind, decision.Kind)
			assert.Equal(t, tc.wantTool, decision.ToolHint)
			assert.NoError(t, decision.Validate())
		})
	}
}

func TestFastRouteMisses(t *testing.T) {
	// Inputs the deterministic tier should refuse to classify.
	for _, input := range []string{
		"Compare the economic systems of two ancient empires",
		"Describe the difference between stoicism and epicureanism",
	} {
		_, ok := fastRoute(input)
		assert.False(t, ok, "fast path should not claim %q", input)
	}
}

func TestExtractExpression(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Please compute 12 * (3 + 4) for me", "12 * (3 + 4)"},
		{"what is 7/2", "7/2"},
		{"no math here", "no math here"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, extractExpression(tc.input))
	}
}

func TestRouteLLMFallbackValidJSON(t *testing.T) {
	mock := llm.NewMockClient(
		`Sure, here is the routing: {"route": "TOOL", "specialist_prompt": "Albert Einstein latest news", "tool_hint": "search_news"} hope that helps`,
	)
	r := New(mock, nil)

	decision := r.Route(context.Background(), "Tell me some background on Einstein please")
	assert.Equal(t, datatypes.RouteTool, decision.Kind)
	assert.Equal(t, "search_news", decision.ToolHint)
	assert.Equal(t, "Albert Einstein latest news", decision.ArgHint)
	assert.NoError(t, decision.Validate())
}

func TestRouteLLMFallbackLowercaseRoute(t *testing.T) {
	mock := llm.NewMockClient(`{"route": "reasoner", "specialist_prompt": "solve the integral", "tool_hint": ""}`)
	r := New(mock, nil)

	decision := r.Route(context.Background(), "Help me reason about an obscure integral")
	assert.Equal(t, datatypes.RouteReasoner, decision.Kind)
	assert.NoError(t, decision.Validate())
}

func TestRouteMalformedJSONUsesKeywordFallback(t *testing.T) {
	mock := llm.NewMockClient(`I think this needs a tool but I won't say so in JSON`)
	r := New(mock, nil)

	decision := r.Route(context.Background(), "Whatever could be happening across the border regions")
	// "what" lands in the keyword fallback's web-search bucket.
	assert.Equal(t, datatypes.RouteTool, decision.Kind)
	assert.Equal(t, "search_web", decision.ToolHint)
	assert.NoError(t, decision.Validate())
}

func TestRouteGarbageDefaultsToDirect(t *testing.T) {
	mock := llm.NewMockClient(`%%% unparseable %%%`)
	r := New(mock, nil)

	decision := r.Route(context.Background(), "Muse upon existence for me, briefly")
	assert.Equal(t, datatypes.RouteDirect, decision.Kind)
	assert.Empty(t, decision.ToolHint)
	assert.NoError(t, decision.Validate())
}

func TestRouteModelErrorUsesKeywordFallback(t *testing.T) {
	mock := llm.NewMockClient()
	mock.FailWith(assert.AnError)
	r := New(mock, nil)

	decision := r.Route(context.Background(), "Muse upon existence for me, briefly")
	assert.Equal(t, datatypes.RouteDirect, decision.Kind)
	assert.NoError(t, decision.Validate())
}

func TestRepairDecision(t *testing.T) {
	cases := []struct {
		name string
		in   datatypes.RouteDecision
		want datatypes.RouteDecision
	}{
		{
			name: "hint without tool route promotes to tool",
			in:   datatypes.RouteDecision{Kind: datatypes.RouteDirect, ToolHint: "get_weather"},
			want: datatypes.RouteDecision{Kind: datatypes.RouteTool, ToolHint: "get_weather"},
		},
		{
			name: "tool route without hint gets web search",
			in:   datatypes.RouteDecision{Kind: datatypes.RouteTool},
			want: datatypes.RouteDecision{Kind: datatypes.RouteTool, ToolHint: "search_web"},
		},
		{
			name: "unknown kind collapses to direct",
			in:   datatypes.RouteDecision{Kind: "BANANA"},
			want: datatypes.RouteDecision{Kind: datatypes.RouteDirect},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := repairDecision(tc.in)
			assert.Equal(t, tc.want, got)
			assert.NoError(t, got.Validate())
		})
	}
}
