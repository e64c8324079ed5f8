// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayResetsBeforeEveryGenerate(t *testing.T) {
	mock := NewMockClient("first", "second", "third")
	gw := NewGateway(mock, nil)

	for i := 0; i < 3; i++ {
		_, err := gw.Generate(context.Background(), "prompt", GenerationParams{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, mock.Resets(), "every Generate must be preceded by a Reset")
	assert.Len(t, mock.Prompts(), 3)
}

// slowClient counts concurrent Generate calls to prove serialization.
type slowClient struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (s *slowClient) Name() string                    { return "slow" }
func (s *slowClient) Reset(ctx context.Context) error { return nil }

func (s *slowClient) Generate(ctx context.Context, prompt string, _ GenerationParams) (string, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		max := s.maxSeen.Load()
		if n <= max || s.maxSeen.CompareAndSwap(max, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return "ok", nil
}

func TestGatewaySerializesConcurrentCalls(t *testing.T) {
	slow := &slowClient{}
	gw := NewGateway(slow, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gw.Generate(context.Background(), "p", GenerationParams{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), slow.maxSeen.Load(),
		"at most one Generate may be in flight at a time")
}

func TestGatewayResetFailureAbortsGenerate(t *testing.T) {
	mock := NewMockClient("should not be returned")
	mock.FailResetWith(errors.New("slot busy"))
	gw := NewGateway(mock, nil)

	_, err := gw.Generate(context.Background(), "prompt", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model reset failed")
	assert.Empty(t, mock.Prompts(), "generation must not run against a dirty cache")
}

func TestGatewayRoutesReasonerCalls(t *testing.T) {
	primary := NewMockClient("from primary")
	specialist := NewMockClient("from specialist")
	gw := NewGateway(primary, nil).WithReasoner(specialist)

	out, err := gw.GenerateReasoner(context.Background(), "solve 2+2", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "from specialist", out)
	assert.Empty(t, primary.Prompts())

	out, err = gw.Generate(context.Background(), "hello", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "from primary", out)
	assert.Len(t, specialist.Prompts(), 1)
}

func TestGatewayReasonerFallsBackToPrimary(t *testing.T) {
	primary := NewMockClient("from primary")
	gw := NewGateway(primary, nil)

	out, err := gw.GenerateReasoner(context.Background(), "solve 2+2", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "from primary", out)
	assert.Equal(t, 1, primary.Resets())
}

func TestGatewayHonorsExpiredContext(t *testing.T) {
	mock := NewMockClient("should not be returned")
	gw := NewGateway(mock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gw.Generate(ctx, "prompt", GenerationParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockClientTriggers(t *testing.T) {
	mock := NewMockClient("fallback").
		RespondWith("classify", `{"route":"tool"}`)

	out, err := mock.Generate(context.Background(), "please classify this", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, `{"route":"tool"}`, out)

	out, err = mock.Generate(context.Background(), "anything else", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "fallback", out)
}
