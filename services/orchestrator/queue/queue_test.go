// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMoA/services/orchestrator/datatypes"
)

func TestQueueLifecycle(t *testing.T) {
	q := New()
	a := datatypes.NewTask("fetch weather", datatypes.AgentTool)
	b := datatypes.NewTask("summarize", datatypes.AgentDirect)
	require.NoError(t, q.Add(a))
	require.NoError(t, q.Add(b))

	assert.Equal(t, 2, q.Len())
	assert.Len(t, q.Pending(), 2)

	require.NoError(t, q.MarkRunning(a.ID))
	assert.Len(t, q.Pending(), 1)

	require.NoError(t, q.MarkCompleted(a.ID, "22C sunny"))
	got, ok := q.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, datatypes.StatusCompleted, got.Status)
	assert.Equal(t, "22C sunny", got.Result)

	require.NoError(t, q.MarkRunning(b.ID))
	require.NoError(t, q.MarkFailed(b.ID, "model unavailable"))
	got, _ = q.Get(b.ID)
	assert.Equal(t, datatypes.StatusFailed, got.Status)
	assert.Equal(t, "model unavailable", got.Result)
}

func TestQueuePreservesInsertionOrder(t *testing.T) {
	q := New()
	var ids []string
	for i := 0; i < 5; i++ {
		task := datatypes.NewTask("task", datatypes.AgentDirect)
		ids = append(ids, task.ID)
		require.NoError(t, q.Add(task))
	}
	all := q.All()
	require.Len(t, all, 5)
	for i, task := range all {
		assert.Equal(t, ids[i], task.ID)
	}
}

func TestQueueRejectsDuplicateAndIllegalTransitions(t *testing.T) {
	q := New()
	task := datatypes.NewTask("once", datatypes.AgentTool)
	require.NoError(t, q.Add(task))
	assert.Error(t, q.Add(task))

	// Completing a task that never ran is illegal.
	assert.Error(t, q.MarkCompleted(task.ID, "nope"))

	require.NoError(t, q.MarkRunning(task.ID))
	require.NoError(t, q.MarkCompleted(task.ID, "done"))

	// Terminal states are frozen.
	assert.Error(t, q.MarkRunning(task.ID))
	assert.Error(t, q.MarkFailed(task.ID, "late"))

	assert.Error(t, q.MarkRunning("missing-id"))
}

func TestQueueReturnsCopies(t *testing.T) {
	q := New()
	task := datatypes.NewTask("immutable outside", datatypes.AgentDirect)
	require.NoError(t, q.Add(task))

	got, _ := q.Get(task.ID)
	got.Status = datatypes.StatusFailed

	fresh, _ := q.Get(task.ID)
	assert.Equal(t, datatypes.StatusPending, fresh.Status)
}
