// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline turns an English request into an ordered step list.
//
// A small pattern table recognizes two-step compound requests ("search
// for X then summarize"); everything else becomes a singleton pipeline
// wrapping the router's decision. Pipelines are the canonical execution
// input for the orchestrator.
package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/AleutianAI/AleutianMoA/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/router"
)

// Variant distinguishes how a matched pattern's first step sources its
// material: from a web tool, or from the local document store.
type Variant string

const (
	VariantTool Variant = "tool"
	VariantRAG  Variant = "rag"
)

// Pipeline is an ordered step list. Steps with ContextFromStep > 0
// receive that earlier step's raw output as context.
type Pipeline struct {
	Steps   []datatypes.PipelineStep
	Variant Variant
}

// Singleton reports whether the pipeline wraps a single routed step.
func (p Pipeline) Singleton() bool { return len(p.Steps) == 1 }

type pattern struct {
	re       *regexp.Regexp
	toolHint string
	variant  Variant
	// build turns the capture groups into a concrete two-step pipeline.
	build func(m []string, toolHint string) []datatypes.PipelineStep
}

// patternTable is scanned in order; the first match wins. Keep the more
// specific phrasings above the generic ones.
var patternTable = []pattern{
	{
		// "search for X and/then summarize (it)"
		re:       regexp.MustCompile(`(?i)^\s*search(?:\s+for)?\s+(.+?)\s+(?:and\s+then|then|and)\s+summarize\b`),
		toolHint: "search_web",
		variant:  VariantTool,
		build: func(m []string, toolHint string) []datatypes.PipelineStep {
			query := strings.TrimSpace(m[1])
			return []datatypes.PipelineStep{
				{
					Index:       1,
					Route:       datatypes.RouteTool,
					ToolHint:    toolHint,
					ArgHint:     query,
					Description: "search the web for " + query,
				},
				{
					Index:           2,
					Route:           datatypes.RouteDirect,
					Description:     "summarize the search results",
					ContextFromStep: 1,
				},
			}
		},
	},
	{
		// "find news about X and summarize"
		re:       regexp.MustCompile(`(?i)^\s*(?:find|get|fetch)\s+(?:the\s+)?news\s+(?:about|on)\s+(.+?)\s+(?:and\s+then|then|and)\s+summarize\b`),
		toolHint: "search_news",
		variant:  VariantTool,
		build: func(m []string, toolHint string) []datatypes.PipelineStep {
			query := strings.TrimSpace(m[1])
			return []datatypes.PipelineStep{
				{
					Index:       1,
					Route:       datatypes.RouteTool,
					ToolHint:    toolHint,
					ArgHint:     query,
					Description: "fetch news about " + query,
				},
				{
					Index:           2,
					Route:           datatypes.RouteDirect,
					Description:     "summarize the news results",
					ContextFromStep: 1,
				},
			}
		},
	},
	{
		// "summarize X and (tell me) the weather in Y" — the summary
		// comes from the document store, then the weather tool runs.
		re:       regexp.MustCompile(`(?i)\bsummariz\w+\s+(.+?)\s+and\s+(?:tell\s+me\s+)?(?:the\s+)?weather(?:\s+(?:in|for|of)\s+(.+?))?\s*[.?!]?\s*$`),
		toolHint: "get_weather",
		variant:  VariantRAG,
		build: func(m []string, toolHint string) []datatypes.PipelineStep {
			subject := strings.TrimSpace(m[1])
			location := strings.TrimSpace(m[2])
			steps := []datatypes.PipelineStep{
				{
					Index:       1,
					Route:       datatypes.RouteDirect,
					ArgHint:     subject,
					Description: "summarize " + subject,
				},
				{
					Index:       2,
					Route:       datatypes.RouteTool,
					ToolHint:    toolHint,
					ArgHint:     location,
					Description: "look up the weather",
				},
			}
			return steps
		},
	},
}

// Builder constructs pipelines, delegating unmatched inputs to the
// router for a singleton decision.
type Builder struct {
	router *router.Router
}

func NewBuilder(r *router.Router) *Builder {
	return &Builder{router: r}
}

// Build scans the pattern table and falls back to a routed singleton.
// The returned pipeline always holds at least one step and always
// passes ValidatePipeline.
func (b *Builder) Build(ctx context.Context, input string) Pipeline {
	if p, ok := matchPattern(input); ok {
		return p
	}

	decision := b.router.Route(ctx, input)
	return Pipeline{
		Variant: VariantTool,
		Steps: []datatypes.PipelineStep{
			{
				Index:       1,
				Route:       decision.Kind,
				ToolHint:    decision.ToolHint,
				ArgHint:     decision.ArgHint,
				Description: strings.TrimSpace(input),
			},
		},
	}
}

func matchPattern(input string) (Pipeline, bool) {
	for _, pat := range patternTable {
		m := pat.re.FindStringSubmatch(input)
		if m == nil {
			continue
		}
		return Pipeline{
			Steps:   pat.build(m, pat.toolHint),
			Variant: pat.variant,
		}, true
	}
	return Pipeline{}, false
}
