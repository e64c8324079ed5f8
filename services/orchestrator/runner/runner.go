// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package runner executes independent tasks on a bounded worker pool.
//
// Each task gets its own timeout-scoped context; a timed-out, failed,
// or panicking task is recorded as FAILED and never aborts its siblings. The runner
// returns only when every submitted task has a terminal result.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianMoA/services/orchestrator/datatypes"
)

// ExecuteFunc runs one task to completion and returns its result text.
type ExecuteFunc func(ctx context.Context, task datatypes.Task) (string, error)

// TaskResult is the terminal outcome of one task.
type TaskResult struct {
	TaskID  string
	Success bool
	Result  string
	Error   string
	Elapsed time.Duration
}

// Config bounds the pool. Zero values take the defaults: 4 workers and
// a 60 second per-task timeout.
type Config struct {
	MaxWorkers  int
	TaskTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 4
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 60 * time.Second
	}
	return c
}

// Runner is a reusable bounded-parallel task executor.
type Runner struct {
	config Config
	logger *slog.Logger
}

func New(config Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{config: config.withDefaults(), logger: logger}
}

// Run executes every task through execute, at most MaxWorkers at a
// time, and returns a result per task id. Individual task failures and
// timeouts are captured in the result map, not returned as an error;
// the only error Run itself returns is outer-context cancellation.
func (r *Runner) Run(ctx context.Context, tasks []datatypes.Task, execute ExecuteFunc) (map[string]TaskResult, error) {
	results := make(map[string]TaskResult, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.MaxWorkers)

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			result := r.runOne(gctx, task, execute)
			mu.Lock()
			results[task.ID] = result
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (r *Runner) runOne(ctx context.Context, task datatypes.Task, execute ExecuteFunc) TaskResult {
	taskCtx, cancel := context.WithTimeout(ctx, r.config.TaskTimeout)
	defer cancel()

	start := time.Now()
	r.logger.Debug("Task started", "task_id", task.ID, "agent", task.Agent)

	type outcome struct {
		result string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Task panicked", "task_id", task.ID,
					"panic", rec, "stack", string(debug.Stack()))
				done <- outcome{"", fmt.Errorf("task panicked: %v", rec)}
			}
		}()
		result, err := execute(taskCtx, task)
		done <- outcome{result, err}
	}()

	select {
	case out := <-done:
		elapsed := time.Since(start)
		if out.err != nil {
			r.logger.Warn("Task failed", "task_id", task.ID, "error", out.err,
				"elapsed", elapsed)
			return TaskResult{TaskID: task.ID, Success: false,
				Error: out.err.Error(), Elapsed: elapsed}
		}
		r.logger.Debug("Task completed", "task_id", task.ID, "elapsed", elapsed)
		return TaskResult{TaskID: task.ID, Success: true,
			Result: out.result, Elapsed: elapsed}

	case <-taskCtx.Done():
		elapsed := time.Since(start)
		errText := fmt.Sprintf("task timed out after %s", r.config.TaskTimeout)
		if ctx.Err() != nil {
			errText = "cancelled: " + ctx.Err().Error()
		}
		r.logger.Warn("Task abandoned", "task_id", task.ID, "reason", errText,
			"elapsed", elapsed)
		return TaskResult{TaskID: task.ID, Success: false,
			Error: errText, Elapsed: elapsed}
	}
}
