// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMoA/services/orchestrator/datatypes"
)

func makeTasks(n int) []datatypes.Task {
	tasks := make([]datatypes.Task, n)
	for i := range tasks {
		tasks[i] = datatypes.NewTask("work", datatypes.AgentTool)
	}
	return tasks
}

func TestRunCollectsAllResults(t *testing.T) {
	r := New(Config{}, nil)
	tasks := makeTasks(6)

	results, err := r.Run(context.Background(), tasks, func(ctx context.Context, task datatypes.Task) (string, error) {
		return "ok:" + task.ID, nil
	})
	require.NoError(t, err)
	require.Len(t, results, 6)
	for _, task := range tasks {
		res := results[task.ID]
		assert.True(t, res.Success)
		assert.Equal(t, "ok:"+task.ID, res.Result)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	r := New(Config{MaxWorkers: 2}, nil)
	tasks := makeTasks(8)

	var inFlight, maxSeen atomic.Int32
	results, err := r.Run(context.Background(), tasks, func(ctx context.Context, task datatypes.Task) (string, error) {
		n := inFlight.Add(1)
		for {
			m := maxSeen.Load()
			if n <= m || maxSeen.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return "done", nil
	})
	require.NoError(t, err)
	assert.Len(t, results, 8)
	assert.LessOrEqual(t, maxSeen.Load(), int32(2))
}

func TestRunTimeoutFailsTaskWithoutAbortingSiblings(t *testing.T) {
	r := New(Config{TaskTimeout: 50 * time.Millisecond}, nil)
	slow := datatypes.NewTask("slow", datatypes.AgentTool)
	fast := datatypes.NewTask("fast", datatypes.AgentTool)

	results, err := r.Run(context.Background(), []datatypes.Task{slow, fast},
		func(ctx context.Context, task datatypes.Task) (string, error) {
			if task.ID == slow.ID {
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
				}
				return "", ctx.Err()
			}
			return "quick", nil
		})
	require.NoError(t, err)

	assert.False(t, results[slow.ID].Success)
	assert.Contains(t, results[slow.ID].Error, "timed out")

	assert.True(t, results[fast.ID].Success)
	assert.Equal(t, "quick", results[fast.ID].Result)
}

func TestRunFailureIsIsolated(t *testing.T) {
	r := New(Config{}, nil)
	bad := datatypes.NewTask("bad", datatypes.AgentTool)
	good := datatypes.NewTask("good", datatypes.AgentTool)

	results, err := r.Run(context.Background(), []datatypes.Task{bad, good},
		func(ctx context.Context, task datatypes.Task) (string, error) {
			if task.ID == bad.ID {
				return "", errors.New("backend exploded")
			}
			return "fine", nil
		})
	require.NoError(t, err)
	assert.False(t, results[bad.ID].Success)
	assert.Equal(t, "backend exploded", results[bad.ID].Error)
	assert.True(t, results[good.ID].Success)
}

func TestRunPanicBecomesFailedResult(t *testing.T) {
	r := New(Config{}, nil)
	bad := datatypes.NewTask("bad", datatypes.AgentTool)
	good := datatypes.NewTask("good", datatypes.AgentTool)

	results, err := r.Run(context.Background(), []datatypes.Task{bad, good},
		func(ctx context.Context, task datatypes.Task) (string, error) {
			if task.ID == bad.ID {
				panic("worker bug")
			}
			return "fine", nil
		})
	require.NoError(t, err)
	assert.False(t, results[bad.ID].Success)
	assert.Contains(t, results[bad.ID].Error, "worker bug")
	assert.True(t, results[good.ID].Success)
}

func TestRunEmptyTaskList(t *testing.T) {
	r := New(Config{}, nil)
	results, err := r.Run(context.Background(), nil, func(ctx context.Context, task datatypes.Task) (string, error) {
		t.Fatal("execute must not be called")
		return "", nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunOuterCancellation(t *testing.T) {
	r := New(Config{TaskTimeout: 5 * time.Second}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	tasks := makeTasks(2)

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	results, err := r.Run(ctx, tasks, func(ctx context.Context, task datatypes.Task) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	assert.Error(t, err)
	for _, res := range results {
		assert.False(t, res.Success)
	}
}
