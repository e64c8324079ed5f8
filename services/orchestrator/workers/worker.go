// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workers implements the typed task executors: direct,
// reasoner, tool, research, writer, and office.
//
// Workers share one contract: execute a task description with optional
// shared context and return a string result. The runner decides what
// executes in parallel; workers themselves hold no goroutines.
package workers

import (
	"context"

	"github.com/AleutianAI/AleutianMoA/services/orchestrator/datatypes"
)

// Options carries the cross-task state a worker may use. All fields are
// optional.
type Options struct {
	// History is the concatenated output of earlier tasks in the plan.
	History string

	// UserGoal is the original top-level goal, for workers that produce
	// final documents.
	UserGoal string

	// Context is the immediately preceding step's raw output in a
	// pipeline.
	Context string
}

// Worker executes one task description to a string result.
type Worker interface {
	Name() string
	Execute(ctx context.Context, description string, opts Options) (string, error)
}

// Registry maps agent types to their workers.
type Registry map[datatypes.AgentType]Worker

// ForAgent returns the worker for the agent type, or the direct worker
// when none is registered: an unknown agent still gets an answer.
func (r Registry) ForAgent(agent datatypes.AgentType) Worker {
	if w, ok := r[agent]; ok {
		return w
	}
	return r[datatypes.AgentDirect]
}
