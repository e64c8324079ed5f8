// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMoA/services/llm"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/router"
)

func newBuilder(responses ...string) *Builder {
	return NewBuilder(router.New(llm.NewMockClient(responses...), nil))
}

func TestBuildSearchThenSummarize(t *testing.T) {
	b := newBuilder()
	p := b.Build(context.Background(), "Search for quantum error correction then summarize it")

	require.Len(t, p.Steps, 2)
	assert.Equal(t, VariantTool, p.Variant)
	assert.NoError(t, datatypes.ValidatePipeline(p.Steps))

	assert.Equal(t, datatypes.RouteTool, p.Steps[0].Route)
	assert.Equal(t, "search_web", p.Steps[0].ToolHint)
	assert.Equal(t, "quantum error correction", p.Steps[0].ArgHint)

	assert.Equal(t, datatypes.RouteDirect, p.Steps[1].Route)
	assert.Equal(t, 1, p.Steps[1].ContextFromStep)
}

func TestBuildNewsThenSummarize(t *testing.T) {
	b := newBuilder()
	p := b.Build(context.Background(), "Find news about semiconductors and summarize them")

	require.Len(t, p.Steps, 2)
	assert.Equal(t, "search_news", p.Steps[0].ToolHint)
	assert.Equal(t, "semiconductors", p.Steps[0].ArgHint)
	assert.Equal(t, 1, p.Steps[1].ContextFromStep)
	assert.NoError(t, datatypes.ValidatePipeline(p.Steps))
}

func TestBuildSummarizeAndWeatherIsRAGVariant(t *testing.T) {
	b := newBuilder()
	p := b.Build(context.Background(), "Summarize my notes and tell me the weather in Seoul")

	require.Len(t, p.Steps, 2)
	assert.Equal(t, VariantRAG, p.Variant)
	assert.NoError(t, datatypes.ValidatePipeline(p.Steps))

	assert.Equal(t, datatypes.RouteDirect, p.Steps[0].Route)
	assert.Equal(t, "my notes", p.Steps[0].ArgHint)

	assert.Equal(t, datatypes.RouteTool, p.Steps[1].Route)
	assert.Equal(t, "get_weather", p.Steps[1].ToolHint)
	assert.Equal(t, "Seoul", p.Steps[1].ArgHint)
}

func TestBuildFallsBackToRoutedSingleton(t *testing.T) {
	b := newBuilder()
	p := b.Build(context.Background(), "How is the weather in Seoul?")

	require.True(t, p.Singleton())
	assert.NoError(t, datatypes.ValidatePipeline(p.Steps))
	assert.Equal(t, datatypes.RouteTool, p.Steps[0].Route)
	assert.Equal(t, "get_weather", p.Steps[0].ToolHint)
}

func TestBuildSingletonUsesRouterLLMTier(t *testing.T) {
	b := newBuilder(`{"route": "DIRECT", "specialist_prompt": "", "tool_hint": ""}`)
	p := b.Build(context.Background(), "Muse upon the nature of obligation")

	require.True(t, p.Singleton())
	assert.Equal(t, datatypes.RouteDirect, p.Steps[0].Route)
	assert.Empty(t, p.Steps[0].ToolHint)
}
