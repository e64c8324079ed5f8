// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMoA/services/llm"
)

func TestDispatchWeatherWithArgHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, weatherJSON)
	}))
	defer srv.Close()

	d := NewDispatcher(NewExecutor(ExecutorConfig{WeatherBaseURL: srv.URL}, nil), nil, nil)
	result := d.Dispatch(context.Background(), "get_weather", "Seoul", "How is the weather in Seoul?")

	require.True(t, result.Success)
	assert.Equal(t, "Seoul", result.Arguments["location"])
	assert.Equal(t, "22°C", result.Payload["temperature"])
}

func TestDispatchInfersWeatherLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, weatherJSON)
	}))
	defer srv.Close()

	d := NewDispatcher(NewExecutor(ExecutorConfig{WeatherBaseURL: srv.URL}, nil), nil, nil)
	result := d.Dispatch(context.Background(), "get_weather", "", "Seoul weather?")

	require.True(t, result.Success)
	assert.Equal(t, "Seoul", result.Arguments["location"])
}

func TestExtractLocation(t *testing.T) {
	assert.Equal(t, "Seoul", extractLocation("Seoul weather?"))
	assert.Equal(t, "Tokyo", extractLocation("What's the weather in Tokyo right now?"))
	assert.Equal(t, "New York", extractLocation("how about the New York forecast today"))
	assert.Equal(t, "", extractLocation("what is the weather like"))
}

func TestDispatchRejectsDescriptiveCommandHint(t *testing.T) {
	d := NewDispatcher(NewExecutor(ExecutorConfig{}, nil), nil, nil)

	// The hint is prose, so the command is inferred from the request
	// text instead.
	result := d.Dispatch(context.Background(), "execute_command",
		"Check whether uv is applied to this project",
		"Check whether uv is applied to this project")

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "uv --version", result.Arguments["command"])
}

func TestDispatchInfersCombinedVersionCommand(t *testing.T) {
	d := NewDispatcher(NewExecutor(ExecutorConfig{}, nil), nil, nil)

	// Asking about two binaries at once must produce one combined
	// command that reports both versions.
	result := d.Dispatch(context.Background(), "execute_command",
		"Check if uv is installed and python version",
		"Check if uv is installed and python version")

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "uv --version && python --version", result.Arguments["command"])
}

func TestDispatchRejectsCJKCommandHint(t *testing.T) {
	d := NewDispatcher(NewExecutor(ExecutorConfig{}, nil), nil, nil)

	result := d.Dispatch(context.Background(), "execute_command",
		"uv 버전 확인", "check if python is installed")

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "python --version", result.Arguments["command"])
}

func TestDispatchKeepsExactCommandHint(t *testing.T) {
	d := NewDispatcher(NewExecutor(ExecutorConfig{}, nil), nil, nil)

	result := d.Dispatch(context.Background(), "execute_command",
		"echo ok", "run echo ok")
	require.True(t, result.Success)
	assert.Equal(t, "echo ok", result.Arguments["command"])
	assert.Equal(t, "ok", result.Payload["stdout"])
}

func TestRepairSchemaRenamesForeignKey(t *testing.T) {
	schema, _ := Lookup("search_web")
	repaired := repairSchema(schema, map[string]any{"location": "Seoul weather"})
	assert.Equal(t, "Seoul weather", repaired["query"])
	assert.NotContains(t, repaired, "location")
}

func TestScanSemanticError(t *testing.T) {
	marker := scanSemanticError(map[string]any{
		"content": "upstream said: Rate Limit exceeded, try later",
	})
	assert.Equal(t, "rate limit", marker)

	// Error-looking digits inside links are data, not failures.
	marker = scanSemanticError(map[string]any{
		"results": []map[string]any{
			{"title": "HTTP status codes", "url": "https://example.com/404-vs-500"},
		},
	})
	assert.Empty(t, marker)

	marker = scanSemanticError(map[string]any{"temperature": "22°C"})
	assert.Empty(t, marker)
}

func TestDispatchRetriesOnceWithRepairedArguments(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Success wrapper around a semantic failure.
			fmt.Fprint(w, `{"current_condition": [{"temp_C": "API error", "temp_F": "",
			  "humidity": "", "FeelsLikeC": "", "windspeedKmph": "",
			  "weatherDesc": [{"value": ""}]}]}`)
			return
		}
		fmt.Fprint(w, weatherJSON)
	}))
	defer srv.Close()

	mock := llm.NewMockClient(`{"location": "Seoul"}`)
	repairer := NewRepairer(mock, nil)
	executor := NewExecutor(ExecutorConfig{WeatherBaseURL: srv.URL}, nil)
	d := NewDispatcher(executor, repairer, nil)

	result := d.Dispatch(context.Background(), "get_weather", "서울특별시", "Seoul weather")
	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "22°C", result.Payload["temperature"])
	assert.Len(t, mock.Prompts(), 1)
}

func TestDispatchFailsAfterSingleRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	mock := llm.NewMockClient(`{"query": "still broken"}`, `{"query": "never used"}`)
	executor := NewExecutor(ExecutorConfig{SearchBaseURL: srv.URL}, nil)
	d := NewDispatcher(executor, NewRepairer(mock, nil), nil)

	result := d.Dispatch(context.Background(), "search_web", "anything", "anything")
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	// Exactly one repair round.
	assert.Len(t, mock.Prompts(), 1)
}

func TestDispatchUnknownTool(t *testing.T) {
	d := NewDispatcher(NewExecutor(ExecutorConfig{}, nil), nil, nil)
	result := d.Dispatch(context.Background(), "summon_demon", "", "")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown tool")
}

func TestRepairerBareStringBecomesCommand(t *testing.T) {
	mock := llm.NewMockClient("`uv --version`")
	r := NewRepairer(mock, nil)
	schema, _ := Lookup("execute_command")

	arguments, err := r.Repair(context.Background(), schema,
		map[string]any{"command": ""}, "empty command", "check uv version")
	require.NoError(t, err)
	assert.Equal(t, "uv --version", arguments["command"])
}

func TestRepairerRejectsProseCompletion(t *testing.T) {
	mock := llm.NewMockClient("I am sorry, I cannot determine the correct arguments for this request at all.")
	r := NewRepairer(mock, nil)
	schema, _ := Lookup("execute_command")

	_, err := r.Repair(context.Background(), schema, nil, "err", "text")
	assert.Error(t, err)
}

func TestRejectCommandHint(t *testing.T) {
	cases := []struct {
		hint string
		want bool
	}{
		{"uv --version", false},
		{"ls -la", false},
		{"Check whether uv is applied", true},
		{"Verify the project setup please", true},
		{"파이썬 버전 확인", true},
		{"python3 -m venv .venv", false},
		{"check uv", false}, // two words could still be a command
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, rejectCommandHint(tc.hint), "hint %q", tc.hint)
	}
}

func TestValidateSchema(t *testing.T) {
	schema, ok := Lookup("get_weather")
	require.True(t, ok)

	assert.NoError(t, schema.Validate(map[string]any{"location": "Seoul"}))
	assert.Error(t, schema.Validate(map[string]any{}))
	assert.Error(t, schema.Validate(map[string]any{"location": "  "}))
	assert.Error(t, schema.Validate(map[string]any{"location": "Seoul", "city": "Seoul"}))
}

func TestPromptBlockListsEveryTool(t *testing.T) {
	block := PromptBlock()
	for _, schema := range Registry {
		assert.Contains(t, block, "- "+schema.Name+":")
	}
	assert.Contains(t, block, "location*")
}
