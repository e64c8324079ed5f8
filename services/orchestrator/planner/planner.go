// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package planner builds a typed task plan for open-ended goals.
//
// The plan comes from a constrained model prompt over a closed agent
// label set. Model output is unreliable, so every task is post-validated
// and known prefixes override whatever agent label the model picked.
// A parse failure degrades to a single direct task — planning never
// fails the call.
package planner

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

var tracer = otel.Tracer("aleutian.moa.planner")

const plannerSystemPrompt = `You are a task planner. Break the user's goal into a short list of concrete tasks.

Agent types:
- "tool": external lookups (weather, web search, news, shell commands). Prefix the description with the tool, e.g. "search_web: latest uv release" or "get_weather: Seoul".
- "research": questions answered from the user's own documents.
- "direct": summarization, writing prose, answering from general knowledge.
- "office": producing a presentation, report document, or spreadsheet. Prefix with "create_ppt:", "create_word:", or "create_excel:".

Rules:
1. 2 to 5 tasks. Each task does ONE thing.
2. Tasks that fetch information come before tasks that write or summarize.
3. Respond with ONLY a JSON array: [{"description": "...", "agent": "..."}]

Goal: `

// toolPrefixes force agent=tool regardless of the model's label; the
// prefix is stronger evidence than the label.
var toolPrefixes = []string{
	"execute_command:", "search_web:", "search_news:", "get_weather:",
	"search_wikipedia:", "read_url:", "calculate:", "get_current_time:",
}

var officePrefixes = []string{"create_ppt:", "create_word:", "create_excel:"}

// Planner turns a goal into an ordered task plan.
type Planner struct {
	model  llm.LLMClient
	logger *slog.Logger
}

func New(model llm.LLMClient, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{model: model, logger: logger}
}

// Plan generates, parses, and post-validates a task plan for goal. Any
// failure along the way yields a singleton direct plan; Plan never
// returns an empty task list.
func (p *Planner) Plan(ctx context.Context, goal string) datatypes.Plan {
	ctx, span := tracer.Start(ctx, "Planner.Plan")
	defer span.End()

	maxTokens := 768
	temp := float32(0.2)
	out, err := p.model.Generate(ctx, plannerSystemPrompt+goal+"\nJSON:", llm.GenerationParams{
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		p.logger.Warn("Planner model call failed, using singleton plan", "error", err)
		return singletonPlan(goal)
	}

	tasks, ok := parsePlanJSON(out)
	if !ok || len(tasks) == 0 {
		p.logger.Debug("Planner JSON parse failed, using singleton plan",
			"completion_len", len(out))
		return singletonPlan(goal)
	}

	plan := datatypes.Plan{Goal: goal}
	for _, raw := range tasks {
		description := strings.TrimSpace(raw.Description)
		if description == "" {
			continue
		}
		agent := normalizeAgent(raw.Agent, description)
		plan.Tasks = append(plan.Tasks, datatypes.NewTask(description, agent))
	}
	if len(plan.Tasks) == 0 {
		return singletonPlan(goal)
	}

	span.SetAttributes(attribute.Int("planner.tasks", len(plan.Tasks)))
	return plan
}

type rawTask struct {
	Description string `json:"description"`
	Agent       string `json:"agent"`
}

// parsePlanJSON locates the array between the first '[' and the last ']'
// of the completion. Small models wrap JSON in prose; slicing is more
// reliable than demanding a clean array.
func parsePlanJSON(completion string) ([]rawTask, bool) {
	start := strings.Index(completion, "[")
	end := strings.LastIndex(completion, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	var tasks []rawTask
	if err := json.Unmarshal([]byte(completion[start:end+1]), &tasks); err != nil {
		return nil, false
	}
	return tasks, true
}

// normalizeAgent reconciles the model's agent label with the
// description's prefix. Prefixes win; unknown labels fall to direct.
func normalizeAgent(label, description string) datatypes.AgentType {
	lower := strings.ToLower(description)
	for _, prefix := range toolPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return datatypes.AgentTool
		}
	}
	for _, prefix := range officePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return datatypes.AgentOffice
		}
	}

	agent := datatypes.AgentType(strings.ToLower(strings.TrimSpace(label)))
	if datatypes.ValidAgent(agent) {
		return agent
	}
	return datatypes.AgentDirect
}

func singletonPlan(goal string) datatypes.Plan {
	return datatypes.Plan{
		Goal:  goal,
		Tasks: []datatypes.Task{datatypes.NewTask(goal, datatypes.AgentDirect)},
	}
}
