// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator ties the whole system together: translation,
// routing, decomposition, planning, parallel execution, and formatting.
//
// One call to Run serves one goal. The flow, in order of precedence:
// file-reference (hybrid) handling, cowork planning for file-producing
// goals, multi-step pipelines, compound decomposition, single routed
// execution. Every non-fatal failure still produces a user-visible
// string.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianMoA/pkg/workspace"
	"github.com/AleutianAI/AleutianMoA/services/llm"
	"github.com/AleutianAI/AleutianMoA/services/office"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/decompose"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/format"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/observability"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/pipeline"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/planner"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/router"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/runner"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/tools"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/workers"
	"github.com/AleutianAI/AleutianMoA/services/rag"
	"github.com/AleutianAI/AleutianMoA/services/translation"
)

var tracer = otel.Tracer("aleutian.moa.orchestrator")

// TaskNotifier receives task lifecycle events, typically a dashboard
// hub. Implementations must be safe for concurrent use.
type TaskNotifier interface {
	NotifyTask(id string, agent datatypes.AgentType,
		status datatypes.TaskStatus, summary string)
}

// Deps carries the orchestrator's collaborators. Gateway, Dispatcher,
// Engine, and Workspace are required; the rest default sensibly.
type Deps struct {
	Gateway    *llm.Gateway
	Dispatcher *tools.Dispatcher
	Engine     rag.Engine
	Workspace  *workspace.Workspace
	Translator *translation.Pipeline // nil skips translation
	Generator  office.Generator      // nil uses a FileGenerator over Workspace
	Notifier   TaskNotifier          // nil drops events
	Runner     runner.Config
	LogCloser  io.Closer // closed before a fatal panic propagates
	Logger     *slog.Logger
}

// Orchestrator executes goals end to end. It is safe for concurrent
// use; the Gateway serializes all model access.
type Orchestrator struct {
	gateway    *llm.Gateway
	dispatcher *tools.Dispatcher
	engine     rag.Engine
	workspace  *workspace.Workspace
	translator *translation.Pipeline
	notifier   TaskNotifier
	logCloser  io.Closer

	router    *router.Router
	builder   *pipeline.Builder
	planner   *planner.Planner
	formatter *format.Formatter
	registry  workers.Registry
	runner    *runner.Runner

	logger *slog.Logger
}

// New wires the full component graph from its external collaborators.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Gateway == nil {
		return nil, fmt.Errorf("orchestrator: Gateway is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("orchestrator: Dispatcher is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("orchestrator: Engine is required")
	}
	if deps.Workspace == nil {
		return nil, fmt.Errorf("orchestrator: Workspace is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	generator := deps.Generator
	if generator == nil {
		generator = office.NewFileGenerator(deps.Workspace, logger)
	}

	o := &Orchestrator{
		gateway:    deps.Gateway,
		dispatcher: deps.Dispatcher,
		engine:     deps.Engine,
		workspace:  deps.Workspace,
		translator: deps.Translator,
		notifier:   deps.Notifier,
		logCloser:  deps.LogCloser,
		router:     router.New(deps.Gateway, logger),
		planner:    planner.New(deps.Gateway, logger),
		formatter:  format.New(deps.Gateway, logger),
		runner:     runner.New(deps.Runner, logger),
		logger:     logger,
	}
	o.builder = pipeline.NewBuilder(o.router)
	o.registry = workers.Registry{
		datatypes.AgentDirect:   workers.NewDirectWorker(deps.Gateway, logger),
		datatypes.AgentReasoner: workers.NewReasonerWorker(deps.Gateway, logger),
		datatypes.AgentTool:     workers.NewToolWorker(deps.Dispatcher, logger),
		datatypes.AgentResearch: workers.NewResearchWorker(deps.Engine, deps.Workspace, logger),
		datatypes.AgentWriter:   workers.NewWriterWorker(deps.Gateway, deps.Workspace, logger),
		datatypes.AgentOffice:   workers.NewOfficeWorker(deps.Gateway, generator, logger),
	}
	return o, nil
}

// Run serves one goal end to end and returns the reply in the goal's
// original language. Any panic below this frame is logged with its
// stack, the log sink is closed, and the panic continues.
func (o *Orchestrator) Run(ctx context.Context, goal string) (reply string, err error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.Run")
	defer span.End()
	span.SetAttributes(attribute.Int("goal_len", len(goal)))

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Fatal orchestrator error",
				"panic", r, "stack", string(debug.Stack()))
			if o.logCloser != nil {
				_ = o.logCloser.Close()
			}
			panic(r)
		}
	}()

	if strings.TrimSpace(goal) == "" {
		return "Please enter a request.", nil
	}

	if o.translator == nil {
		return o.runEnglish(ctx, goal)
	}
	return o.translator.Process(ctx, goal, o.runEnglish)
}

func (o *Orchestrator) runEnglish(ctx context.Context, english string) (string, error) {
	resolved := o.resolveFileRefs(ctx, english)

	if resolved.Reference != "" {
		return o.runWithReference(ctx, resolved)
	}
	if isCoworkGoal(resolved.Text) {
		return o.cowork(ctx, resolved.Text)
	}

	pl := o.builder.Build(ctx, resolved.Text)
	if !pl.Singleton() {
		return o.runPipeline(ctx, resolved.Text, pl)
	}
	if decompose.ShouldDecompose(resolved.Text) {
		return o.runCompound(ctx, resolved.Text)
	}
	return o.runSingle(ctx, resolved.Text, pl.Steps[0])
}

// runSingle executes one routed step and formats tool output; direct
// and reasoner answers pass through untouched.
func (o *Orchestrator) runSingle(ctx context.Context, userText string,
	step datatypes.PipelineStep) (string, error) {

	observability.RecordRoute(step.Route)
	out, err := o.executeStep(ctx, userText, step, "")
	if err != nil {
		return "", err
	}
	if step.Route != datatypes.RouteTool {
		return out, nil
	}
	return o.formatter.Format(ctx, userText, out), nil
}

// runPipeline executes the steps in order, threading each step's raw
// output into the steps that reference it, then formats the framed
// aggregate.
func (o *Orchestrator) runPipeline(ctx context.Context, userText string,
	pl pipeline.Pipeline) (string, error) {

	o.logger.Info("Executing pipeline", "steps", len(pl.Steps), "variant", pl.Variant)

	results := make([]string, len(pl.Steps))
	sections := make([]string, len(pl.Steps))
	for i, step := range pl.Steps {
		observability.RecordRoute(step.Route)
		stepContext := ""
		if step.ContextFromStep > 0 {
			stepContext = results[step.ContextFromStep-1]
		}
		out, err := o.executeStep(ctx, userText, step, stepContext)
		if err != nil {
			return "", err
		}
		results[i] = out
		sections[i] = o.frameStep(userText, step, out)
	}
	return o.formatter.Format(ctx, userText, strings.Join(sections, "\n\n")), nil
}

// runCompound decomposes the query, executes each routed sub-query in
// parallel, and integrates the ordered aggregate in one pass.
func (o *Orchestrator) runCompound(ctx context.Context, userText string) (string, error) {
	subQueries := decompose.Decompose(userText)
	o.logger.Info("Decomposed compound query", "sub_queries", len(subQueries))

	wantsComparison := false
	for _, q := range subQueries {
		if q == "Compare results" {
			wantsComparison = true
		}
	}

	type unit struct {
		task  datatypes.Task
		query string
		step  datatypes.PipelineStep
	}
	var units []unit
	for _, q := range subQueries {
		if q == "Compare results" {
			// Synthesis is the integrator's job, not a sub-query.
			continue
		}
		decision := o.router.Route(ctx, q)
		observability.RecordRoute(decision.Kind)
		step := datatypes.PipelineStep{
			Index:       len(units) + 1,
			Route:       decision.Kind,
			ToolHint:    decision.ToolHint,
			ArgHint:     decision.ArgHint,
			Description: q,
		}
		units = append(units, unit{
			task:  datatypes.NewTask(q, agentForRoute(decision.Kind)),
			query: q,
			step:  step,
		})
	}
	if len(units) == 0 {
		return o.runSingle(ctx, userText, datatypes.PipelineStep{
			Index: 1, Route: datatypes.RouteDirect, Description: userText,
		})
	}

	byID := make(map[string]unit, len(units))
	taskList := make([]datatypes.Task, len(units))
	for i, u := range units {
		byID[u.task.ID] = u
		taskList[i] = u.task
	}

	resultsByID, err := o.runner.Run(ctx, taskList, func(ctx context.Context, task datatypes.Task) (string, error) {
		u := byID[task.ID]
		return o.executeStep(ctx, u.query, u.step, "")
	})
	if err != nil {
		return "", err
	}

	sections := make([]string, 0, len(units))
	for _, u := range units {
		result := resultsByID[u.task.ID]
		if !result.Success {
			sections = append(sections, format.WrapSection(u.query,
				"This part of the request could not be completed: "+result.Error))
			continue
		}
		sections = append(sections, o.frameStep(u.query, u.step, result.Result))
	}

	aggregate := strings.Join(sections, "\n\n")
	if wantsComparison {
		return o.formatter.Integrate(ctx, userText, aggregate), nil
	}
	return o.formatter.Format(ctx, userText, aggregate), nil
}

// executeStep runs one routed step: tools through the dispatcher with
// metrics, everything else through the matching worker. Tool failures
// become user-facing sentences, not errors.
func (o *Orchestrator) executeStep(ctx context.Context, userText string,
	step datatypes.PipelineStep, stepContext string) (string, error) {

	switch step.Route {
	case datatypes.RouteTool:
		start := time.Now()
		result := o.dispatcher.Dispatch(ctx, step.ToolHint, step.ArgHint, userText)
		observability.RecordTool(result.Tool, result.Success, time.Since(start))
		if !result.Success {
			return fmt.Sprintf("The %s tool could not complete this request: %s",
				result.Tool, result.Error), nil
		}
		return format.WrapSection(taskText(userText, step), result.Payload), nil

	case datatypes.RouteReasoner:
		return o.registry.ForAgent(datatypes.AgentReasoner).
			Execute(ctx, stepText(userText, step), workers.Options{Context: stepContext})

	default:
		return o.registry.ForAgent(datatypes.AgentDirect).
			Execute(ctx, stepText(userText, step), workers.Options{Context: stepContext})
	}
}

// frameStep frames a step result for the formatter. Tool steps are
// already framed by executeStep; worker output gets wrapped here.
func (o *Orchestrator) frameStep(userText string, step datatypes.PipelineStep, out string) string {
	if step.Route == datatypes.RouteTool {
		return out
	}
	return format.WrapSection(taskText(userText, step), out)
}

func taskText(userText string, step datatypes.PipelineStep) string {
	if step.Description != "" {
		return step.Description
	}
	return userText
}

func stepText(userText string, step datatypes.PipelineStep) string {
	if step.ArgHint != "" {
		return step.ArgHint
	}
	return taskText(userText, step)
}

func agentForRoute(kind datatypes.RouteKind) datatypes.AgentType {
	switch kind {
	case datatypes.RouteTool:
		return datatypes.AgentTool
	case datatypes.RouteReasoner:
		return datatypes.AgentReasoner
	default:
		return datatypes.AgentDirect
	}
}

// coworkVerbs and coworkArtifacts gate the planner path: a goal that
// asks to produce a document-like artifact becomes a multi-task plan.
var (
	coworkVerbs = []string{"create", "write", "make", "prepare", "draft",
		"generate", "produce", "save", "compile"}
	coworkArtifacts = []string{"report", "presentation", "ppt", "slide",
		"spreadsheet", "excel", "docx", "document", "workbook", "deck"}
)

func isCoworkGoal(text string) bool {
	lower := strings.ToLower(text)
	hasVerb := false
	for _, v := range coworkVerbs {
		if strings.Contains(lower, v) {
			hasVerb = true
			break
		}
	}
	if !hasVerb {
		return false
	}
	for _, a := range coworkArtifacts {
		if strings.Contains(lower, a) {
			return true
		}
	}
	return false
}
