// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// LlamaCppClient talks to a llama.cpp server (llama-server) over HTTP.
type LlamaCppClient struct {
	httpClient *http.Client
	baseURL    string
}

type llamaCppCompletionPayload struct {
	Prompt      string   `json:"prompt"`
	NPredict    int      `json:"n_predict"`
	Temperature *float32 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	CachePrompt bool     `json:"cache_prompt"`
}

type llamaCppCompletionResp struct {
	Content string `json:"content"`
}

// NewLlamaCppClient creates a client for the llama-server at baseURL.
// When baseURL is empty the LLM_SERVICE_URL_BASE environment variable is
// consulted.
func NewLlamaCppClient(baseURL string) (*LlamaCppClient, error) {
	if baseURL == "" {
		baseURL = os.Getenv("LLM_SERVICE_URL_BASE")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("LLM_SERVICE_URL_BASE environment variable not set")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &LlamaCppClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    baseURL,
	}, nil
}

// Name implements the LLMClient interface.
func (l *LlamaCppClient) Name() string { return "llamacpp" }

// Generate implements the LLMClient interface.
func (l *LlamaCppClient) Generate(ctx context.Context, prompt string,
	params GenerationParams) (string, error) {

	completionURL := l.baseURL + "/completion"
	payload := llamaCppCompletionPayload{Prompt: prompt}
	if params.MaxTokens != nil {
		payload.NPredict = *params.MaxTokens
	} else {
		payload.NPredict = 512
	}
	if params.Temperature != nil {
		payload.Temperature = params.Temperature
	} else {
		var defaultTemperature float32 = 0.2
		payload.Temperature = &defaultTemperature
	}
	if params.TopK != nil {
		payload.TopK = params.TopK
	} else {
		defaultTopK := 20
		payload.TopK = &defaultTopK
	}
	if params.TopP != nil {
		payload.TopP = params.TopP
	} else {
		var defaultTopP float32 = 0.9
		payload.TopP = &defaultTopP
	}
	if params.Stop != nil {
		payload.Stop = params.Stop
	}

	reqBodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal the payload: %w", err)
	}
	slog.Debug("Calling llama.cpp completion", "url", completionURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, completionURL,
		bytes.NewBuffer(reqBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to build the llm request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to make a request to the llm: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read the llm's response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm returned status %d: %s", resp.StatusCode, string(body))
	}
	var llmResponseBody llamaCppCompletionResp
	if err := json.Unmarshal(body, &llmResponseBody); err != nil {
		return "", fmt.Errorf("failed to parse the llm response: %w", err)
	}
	return llmResponseBody.Content, nil
}

// Reset implements the LLMClient interface by erasing slot 0's KV cache.
// Older llama-server builds do not expose the slots endpoint; a 404 is
// treated as success because payloads also disable prompt caching.
func (l *LlamaCppClient) Reset(ctx context.Context) error {
	eraseURL := l.baseURL + "/slots/0?action=erase"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, eraseURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build the reset request: %w", err)
	}
	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to reset the llm slot: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("slot erase returned status %d", resp.StatusCode)
	}
	return nil
}
