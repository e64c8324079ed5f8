// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianMoA/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/format"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/observability"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/queue"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/workers"
)

// cowork serves a multi-task, file-producing goal: plan it, run the
// independent phase in parallel, then the sequential phase with shared
// history, integrate, and auto-save the result.
func (o *Orchestrator) cowork(ctx context.Context, goal string) (string, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.cowork")
	defer span.End()

	plan := o.planner.Plan(ctx, goal)
	firstPhase, secondPhase := plan.FirstPhase(), plan.SecondPhase()
	o.logger.Info("Cowork plan built",
		"first_phase", len(firstPhase), "second_phase", len(secondPhase))

	q := queue.New()
	for _, task := range append(append([]datatypes.Task{}, firstPhase...), secondPhase...) {
		if err := q.Add(task); err != nil {
			return "", fmt.Errorf("queue plan: %w", err)
		}
	}

	var history strings.Builder
	var sections []string

	// Phase one: tool and research tasks, bounded parallel. The model
	// lock inside the gateway serializes any LLM calls they make.
	results, err := o.runner.Run(ctx, firstPhase, func(ctx context.Context, task datatypes.Task) (string, error) {
		o.notify(task, datatypes.StatusRunning, "")
		return o.registry.ForAgent(task.Agent).
			Execute(ctx, task.Description, workers.Options{UserGoal: goal})
	})
	if err != nil {
		return "", err
	}
	for _, task := range firstPhase {
		result := results[task.ID]
		_ = q.MarkRunning(task.ID)
		if result.Success {
			_ = q.MarkCompleted(task.ID, result.Result)
			o.finishTask(task, datatypes.StatusCompleted, result.Result)
			fmt.Fprintf(&history, "Task: %s\nResult: %s\n\n", task.Description, result.Result)
			if task.Agent == datatypes.AgentTool {
				// Tool workers frame their own payload.
				sections = append(sections, result.Result)
			} else {
				sections = append(sections, format.WrapSection(task.Description, result.Result))
			}
		} else {
			_ = q.MarkFailed(task.ID, result.Error)
			o.finishTask(task, datatypes.StatusFailed, result.Error)
			fmt.Fprintf(&history, "Task: %s\nResult: FAILED (%s)\n\n", task.Description, result.Error)
		}
	}

	// Phase two: sequential, each task seeing everything before it.
	for _, task := range secondPhase {
		_ = q.MarkRunning(task.ID)
		o.notify(task, datatypes.StatusRunning, "")

		out, err := o.registry.ForAgent(task.Agent).Execute(ctx, task.Description,
			workers.Options{History: history.String(), UserGoal: goal})
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			_ = q.MarkFailed(task.ID, err.Error())
			o.finishTask(task, datatypes.StatusFailed, err.Error())
			fmt.Fprintf(&history, "Task: %s\nResult: FAILED (%s)\n\n", task.Description, err.Error())
			continue
		}
		_ = q.MarkCompleted(task.ID, out)
		o.finishTask(task, datatypes.StatusCompleted, out)
		fmt.Fprintf(&history, "Task: %s\nResult: %s\n\n", task.Description, out)
		sections = append(sections, format.WrapSection(task.Description, out))
	}

	if len(sections) == 0 {
		return "None of the planned tasks produced a result. Please try rephrasing the request.", nil
	}

	reply := o.formatter.Format(ctx, goal, strings.Join(sections, "\n\n"))
	o.autoSave(reply)
	return reply, nil
}

// runWithReference serves a goal that carries @[file] context. Pure
// document questions run DIRECT over the augmented prompt; a goal that
// also names a tool runs the hybrid path: summarize first, so the
// retrieved material can inform the tool step, then the tool, then one
// integration pass, auto-saved like any cowork result.
func (o *Orchestrator) runWithReference(ctx context.Context, resolved resolvedInput) (string, error) {
	toolName, ok := referenceToolStep(resolved.Text)
	if !ok {
		return o.registry.ForAgent(datatypes.AgentDirect).
			Execute(ctx, resolved.Augmented(), workers.Options{})
	}

	o.logger.Info("Hybrid reference goal", "tool", toolName, "refs", len(resolved.Refs))

	summaryTask := "Summarize the referenced material"
	summary, err := o.registry.ForAgent(datatypes.AgentDirect).
		Execute(ctx, resolved.Text, workers.Options{Context: resolved.Reference})
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		o.logger.Warn("Hybrid summary failed, continuing with tool step", "error", err)
		summary = ""
	}

	argHint := referenceToolArg(toolName, resolved.Text)
	start := time.Now()
	result := o.dispatcher.Dispatch(ctx, toolName, argHint, resolved.Text)
	observability.RecordTool(result.Tool, result.Success, time.Since(start))

	var sections []string
	if summary != "" {
		sections = append(sections, format.WrapSection(summaryTask, summary))
	}
	if result.Success {
		sections = append(sections, format.WrapSection(resolved.Text, result.Payload))
	} else {
		sections = append(sections, format.WrapSection(resolved.Text,
			fmt.Sprintf("The %s tool could not complete this request: %s", result.Tool, result.Error)))
	}

	reply := o.formatter.Format(ctx, resolved.Text, strings.Join(sections, "\n\n"))
	o.autoSave(reply)
	return reply, nil
}

// referenceToolStep detects a tool request surviving alongside the file
// reference. The set is deliberately small: deterministic keywords
// only, since the fence otherwise forces DIRECT.
func referenceToolStep(text string) (string, bool) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "weather") || strings.Contains(lower, "temperature"):
		return "get_weather", true
	case strings.Contains(lower, "news") || strings.Contains(lower, "headline"):
		return "search_news", true
	case strings.Contains(lower, "time") && !strings.Contains(lower, "times"):
		return "get_current_time", true
	case strings.Contains(lower, "search the web") || strings.Contains(lower, "look up online"):
		return "search_web", true
	default:
		return "", false
	}
}

// referenceToolArg picks the tool argument for the hybrid path. Weather
// without a recognizable location defaults to Seoul.
func referenceToolArg(toolName, text string) string {
	if toolName != "get_weather" {
		return ""
	}
	if city := hybridCity(text); city != "" {
		return city
	}
	return "Seoul"
}

func hybridCity(text string) string {
	lower := strings.ToLower(text)
	for key, city := range map[string]string{
		"seoul": "Seoul", "tokyo": "Tokyo", "busan": "Busan",
		"london": "London", "paris": "Paris", "new york": "New York",
	} {
		if strings.Contains(lower, key) {
			return city
		}
	}
	return ""
}

// autoSave persists the final reply to the well-known report path,
// overwriting any previous run. A write failure never fails the call.
func (o *Orchestrator) autoSave(reply string) {
	if err := o.workspace.Write(workers.DefaultReportPath, reply); err != nil {
		o.logger.Warn("Could not auto-save report", "error", err)
		return
	}
	o.logger.Info("Report auto-saved", "path", workers.DefaultReportPath)
}

// notify publishes a task lifecycle event when a notifier is attached.
func (o *Orchestrator) notify(task datatypes.Task, status datatypes.TaskStatus, summary string) {
	if o.notifier == nil {
		return
	}
	o.notifier.NotifyTask(task.ID, task.Agent, status, summary)
}

// finishTask records metrics and publishes the terminal event. The
// summary is clipped on a rune boundary so Hangul and other multi-byte
// text never ends mid-character.
func (o *Orchestrator) finishTask(task datatypes.Task, status datatypes.TaskStatus, summary string) {
	observability.RecordTask(task.Agent, status)
	if runes := []rune(summary); len(runes) > 120 {
		summary = string(runes[:120]) + "..."
	}
	o.notify(task, status, summary)
}
