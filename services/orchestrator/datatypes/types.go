// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the shared data model of the orchestration
// engine: requests, routing decisions, pipeline steps, plans, tasks, and
// tool call shapes.
package datatypes

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// Request and routing
// =============================================================================

// Request carries one user goal through the engine. The core operates on
// the English text; the original is kept for the outbound translation.
type Request struct {
	OriginalText  string `json:"original_text"`
	Language      string `json:"language"`
	EnglishText   string `json:"english_text"`
	WasTranslated bool   `json:"was_translated"`
}

// RouteKind classifies how a request should be served.
type RouteKind string

const (
	// RouteDirect answers from the local general model.
	RouteDirect RouteKind = "DIRECT"

	// RouteTool dispatches to an external tool.
	RouteTool RouteKind = "TOOL"

	// RouteReasoner dispatches to the specialist code/math model.
	RouteReasoner RouteKind = "REASONER"
)

// RouteDecision is the router's single output for a request.
//
// ToolHint names the intended tool and ArgHint carries its argument
// (a search query, shell command, city name, or expression). A non-empty
// ToolHint is only meaningful on the TOOL route.
type RouteDecision struct {
	Kind        RouteKind `json:"route"`
	ToolHint    string    `json:"tool_hint"`
	ArgHint     string    `json:"specialist_prompt"`
	Description string    `json:"description,omitempty"`
}

// Validate checks the decision's internal consistency.
func (d RouteDecision) Validate() error {
	switch d.Kind {
	case RouteDirect, RouteTool, RouteReasoner:
	default:
		return fmt.Errorf("invalid route kind %q", d.Kind)
	}
	if d.ToolHint != "" && d.Kind != RouteTool {
		return fmt.Errorf("tool hint %q on non-TOOL route %s", d.ToolHint, d.Kind)
	}
	if d.Kind == RouteTool && d.ToolHint == "" {
		return fmt.Errorf("TOOL route requires a tool hint")
	}
	return nil
}

// =============================================================================
// Pipelines
// =============================================================================

// PipelineStep is one stage of a multi-step request. ContextFromStep
// back-references an earlier step whose raw output is threaded in as
// context; 0 means no back-reference.
type PipelineStep struct {
	Index           int       `json:"index"`
	Route           RouteKind `json:"route"`
	ToolHint        string    `json:"tool_hint,omitempty"`
	ArgHint         string    `json:"arg_hint,omitempty"`
	Description     string    `json:"description,omitempty"`
	ContextFromStep int       `json:"context_from_step,omitempty"`
}

// Validate enforces that steps are 1-indexed and only reference strictly
// earlier steps, which rules out cycles by construction.
func (s PipelineStep) Validate() error {
	if s.Index < 1 {
		return fmt.Errorf("step index %d must be >= 1", s.Index)
	}
	if s.ContextFromStep < 0 || s.ContextFromStep >= s.Index {
		return fmt.Errorf("step %d references step %d (must be a prior step)",
			s.Index, s.ContextFromStep)
	}
	return nil
}

// ValidatePipeline validates every step of a pipeline.
func ValidatePipeline(steps []PipelineStep) error {
	for i, s := range steps {
		if s.Index != i+1 {
			return fmt.Errorf("step at position %d has index %d", i, s.Index)
		}
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Tasks and plans
// =============================================================================

// AgentType names the worker that executes a task.
type AgentType string

const (
	AgentDirect   AgentType = "direct"
	AgentTool     AgentType = "tool"
	AgentReasoner AgentType = "reasoner"
	AgentResearch AgentType = "research"
	AgentWriter   AgentType = "writer"
	AgentOffice   AgentType = "office"
)

// ValidAgent reports whether a is one of the known agent types.
func ValidAgent(a AgentType) bool {
	switch a {
	case AgentDirect, AgentTool, AgentReasoner, AgentResearch, AgentWriter, AgentOffice:
		return true
	}
	return false
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// Terminal reports whether the status is final.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether the PENDING→RUNNING→{COMPLETED,FAILED}
// progression allows moving from s to next.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Task is one unit of plan execution.
type Task struct {
	ID           string     `json:"id"`
	Description  string     `json:"description"`
	Agent        AgentType  `json:"agent"`
	Status       TaskStatus `json:"status"`
	Result       string     `json:"result"`
	Dependencies []string   `json:"dependencies,omitempty"`
}

// NewTask creates a pending task with a short unique id.
func NewTask(description string, agent AgentType) Task {
	return Task{
		ID:          uuid.NewString()[:8],
		Description: description,
		Agent:       agent,
		Status:      StatusPending,
	}
}

// Plan is an ordered task list with an implicit two-phase dependency
// layer: tool and research tasks are independent of each other and may
// run in parallel; direct, writer, and office tasks run sequentially
// after the independent set completes.
type Plan struct {
	Goal  string `json:"goal"`
	Tasks []Task `json:"tasks"`
}

// FirstPhase returns the parallelizable tasks (tool, research).
func (p Plan) FirstPhase() []Task {
	out := make([]Task, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		if t.Agent == AgentTool || t.Agent == AgentResearch {
			out = append(out, t)
		}
	}
	return out
}

// SecondPhase returns the sequential tasks (direct, reasoner, writer,
// office) in plan order.
func (p Plan) SecondPhase() []Task {
	out := make([]Task, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		switch t.Agent {
		case AgentDirect, AgentReasoner, AgentWriter, AgentOffice:
			out = append(out, t)
		}
	}
	return out
}

// =============================================================================
// Tool call shapes
// =============================================================================

// ToolCall is a validated invocation of a registered tool.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult is a tagged success/failure outcome. On success Payload
// holds the tool's structured response; on failure Error holds a bounded
// message.
type ToolResult struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Success   bool           `json:"success"`
	Payload   map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Summary renders a short single-line description for task boards and
// dashboard events.
func (r ToolResult) Summary() string {
	if !r.Success {
		return fmt.Sprintf("%s failed: %s", r.Tool, truncate(r.Error, 80))
	}
	return fmt.Sprintf("%s ok", r.Tool)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
