// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteDecisionValidate(t *testing.T) {
	cases := []struct {
		name     string
		decision RouteDecision
		wantErr  bool
	}{
		{"direct ok", RouteDecision{Kind: RouteDirect}, false},
		{"tool with hint ok", RouteDecision{Kind: RouteTool, ToolHint: "get_weather"}, false},
		{"reasoner ok", RouteDecision{Kind: RouteReasoner}, false},
		{"tool without hint", RouteDecision{Kind: RouteTool}, true},
		{"hint on direct", RouteDecision{Kind: RouteDirect, ToolHint: "search_web"}, true},
		{"unknown kind", RouteDecision{Kind: "MAGIC"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.decision.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPipelineStepValidate(t *testing.T) {
	assert.NoError(t, PipelineStep{Index: 1, Route: RouteDirect}.Validate())
	assert.NoError(t, PipelineStep{Index: 2, Route: RouteDirect, ContextFromStep: 1}.Validate())
	assert.Error(t, PipelineStep{Index: 0, Route: RouteDirect}.Validate())
	assert.Error(t, PipelineStep{Index: 2, Route: RouteDirect, ContextFromStep: 2}.Validate(),
		"self-reference must be rejected")
	assert.Error(t, PipelineStep{Index: 1, Route: RouteDirect, ContextFromStep: 3}.Validate(),
		"forward reference must be rejected")
}

func TestValidatePipeline(t *testing.T) {
	good := []PipelineStep{
		{Index: 1, Route: RouteTool, ToolHint: "search_web"},
		{Index: 2, Route: RouteDirect, ContextFromStep: 1},
	}
	assert.NoError(t, ValidatePipeline(good))

	misnumbered := []PipelineStep{
		{Index: 2, Route: RouteDirect},
	}
	assert.Error(t, ValidatePipeline(misnumbered))
}

func TestTaskStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusRunning))
	assert.True(t, StatusRunning.CanTransition(StatusCompleted))
	assert.True(t, StatusRunning.CanTransition(StatusFailed))

	assert.False(t, StatusPending.CanTransition(StatusCompleted))
	assert.False(t, StatusCompleted.CanTransition(StatusRunning))
	assert.False(t, StatusFailed.CanTransition(StatusPending))

	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusRunning.Terminal())
}

func TestNewTask(t *testing.T) {
	task := NewTask("get_weather: Seoul", AgentTool)
	assert.Len(t, task.ID, 8)
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, AgentTool, task.Agent)

	other := NewTask("another", AgentDirect)
	assert.NotEqual(t, task.ID, other.ID)
}

func TestPlanPhaseSplit(t *testing.T) {
	plan := Plan{
		Goal: "report on weather",
		Tasks: []Task{
			NewTask("get_weather: Seoul", AgentTool),
			NewTask("read notes.md", AgentResearch),
			NewTask("summarize everything", AgentDirect),
			NewTask("write the report", AgentWriter),
		},
	}

	first := plan.FirstPhase()
	second := plan.SecondPhase()
	assert.Len(t, first, 2)
	assert.Len(t, second, 2)
	assert.Equal(t, AgentTool, first[0].Agent)
	assert.Equal(t, AgentResearch, first[1].Agent)
	assert.Equal(t, AgentDirect, second[0].Agent)
	assert.Equal(t, AgentWriter, second[1].Agent)
}

func TestToolResultSummary(t *testing.T) {
	ok := ToolResult{Tool: "get_weather", Success: true}
	assert.Equal(t, "get_weather ok", ok.Summary())

	fail := ToolResult{Tool: "read_url", Success: false, Error: "connection refused"}
	assert.Contains(t, fail.Summary(), "read_url failed")
	assert.Contains(t, fail.Summary(), "connection refused")
}
