// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLlamaCppGenerate(t *testing.T) {
	var gotPayload llamaCppCompletionPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/completion", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_ = json.NewEncoder(w).Encode(map[string]string{"content": "hello back"})
	}))
	defer server.Close()

	client, err := NewLlamaCppClient(server.URL)
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), "hello", GenerationParams{
		MaxTokens: IntPtr(64),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello back", out)
	assert.Equal(t, "hello", gotPayload.Prompt)
	assert.Equal(t, 64, gotPayload.NPredict)
}

func TestLlamaCppGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slot unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewLlamaCppClient(server.URL)
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "hello", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestLlamaCppResetToleratesMissingEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client, err := NewLlamaCppClient(server.URL)
	require.NoError(t, err)
	assert.NoError(t, client.Reset(context.Background()))
}

func TestNewLlamaCppClientRequiresURL(t *testing.T) {
	t.Setenv("LLM_SERVICE_URL_BASE", "")
	_, err := NewLlamaCppClient("")
	require.Error(t, err)
}
