// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package queue holds the in-memory task queue for one orchestrator
// call.
//
// The queue is deliberately not safe for concurrent mutation: the
// orchestrator mutates it between phases, and the runner reports results
// back to a single goroutine. What IS concurrent is task execution,
// which operates on copies.
package queue

import (
	"fmt"

	"github.com/AleutianAI/AleutianMoA/services/orchestrator/datatypes"
)

// Queue is a FIFO of tasks keyed by id.
type Queue struct {
	order []string
	tasks map[string]*datatypes.Task
}

func New() *Queue {
	return &Queue{tasks: make(map[string]*datatypes.Task)}
}

// Add appends a task. Re-adding an existing id is an error.
func (q *Queue) Add(task datatypes.Task) error {
	if task.ID == "" {
		return fmt.Errorf("task has no id")
	}
	if _, exists := q.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already queued", task.ID)
	}
	q.order = append(q.order, task.ID)
	q.tasks[task.ID] = &task
	return nil
}

// Get returns a copy of the task with the given id.
func (q *Queue) Get(id string) (datatypes.Task, bool) {
	t, ok := q.tasks[id]
	if !ok {
		return datatypes.Task{}, false
	}
	return *t, true
}

// Pending returns copies of the tasks still awaiting execution, in
// insertion order.
func (q *Queue) Pending() []datatypes.Task {
	var out []datatypes.Task
	for _, id := range q.order {
		if t := q.tasks[id]; t.Status == datatypes.StatusPending {
			out = append(out, *t)
		}
	}
	return out
}

// All returns copies of every task in insertion order.
func (q *Queue) All() []datatypes.Task {
	out := make([]datatypes.Task, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, *q.tasks[id])
	}
	return out
}

// Len returns the total number of queued tasks.
func (q *Queue) Len() int { return len(q.order) }

// MarkRunning transitions a pending task to running.
func (q *Queue) MarkRunning(id string) error {
	return q.transition(id, datatypes.StatusRunning, "")
}

// MarkCompleted transitions a running task to completed and records its
// result.
func (q *Queue) MarkCompleted(id, result string) error {
	return q.transition(id, datatypes.StatusCompleted, result)
}

// MarkFailed transitions a running task to failed and records the error
// text as its result.
func (q *Queue) MarkFailed(id, errText string) error {
	return q.transition(id, datatypes.StatusFailed, errText)
}

func (q *Queue) transition(id string, next datatypes.TaskStatus, result string) error {
	t, ok := q.tasks[id]
	if !ok {
		return fmt.Errorf("unknown task %s", id)
	}
	if !t.Status.CanTransition(next) {
		return fmt.Errorf("task %s: illegal transition %s -> %s", id, t.Status, next)
	}
	t.Status = next
	if next.Terminal() {
		t.Result = result
	}
	return nil
}
