// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Translator converts text between languages. src may be "auto".
type Translator interface {
	Translate(ctx context.Context, text, src, dest string) (string, error)
}

// WebTranslator calls the public Google Translate web endpoint
// (client=gtx). No API key is needed, but the endpoint rate limits
// aggressively, so requests go through a token-bucket limiter.
type WebTranslator struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewWebTranslator builds a WebTranslator with a 10s request timeout and
// a 5 req/s limit. baseURL overrides the Google endpoint for tests; pass
// "" for the default.
func NewWebTranslator(baseURL string, logger *slog.Logger) *WebTranslator {
	if baseURL == "" {
		baseURL = "https://translate.googleapis.com/translate_a/single"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebTranslator{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		logger:     logger,
	}
}

// Translate implements the Translator interface.
//
// The endpoint answers with nested JSON arrays; the first element holds
// segment pairs whose first item is the translated text. Segments are
// concatenated in order.
func (t *WebTranslator) Translate(ctx context.Context, text, src, dest string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", src)
	params.Set("tl", dest)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building translate request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling translate endpoint: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading translate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate endpoint returned status %d", resp.StatusCode)
	}

	translated, err := parseGtxResponse(body)
	if err != nil {
		return "", err
	}
	t.logger.Debug("Translated text", "src", src, "dest", dest,
		"in_len", len(text), "out_len", len(translated))
	return translated, nil
}

func parseGtxResponse(body []byte) (string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("parsing translate response: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty translate response")
	}
	var segments [][]json.RawMessage
	if err := json.Unmarshal(raw[0], &segments); err != nil {
		return "", fmt.Errorf("parsing translate segments: %w", err)
	}
	var sb strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			continue
		}
		sb.WriteString(part)
	}
	return sb.String(), nil
}

var _ Translator = (*WebTranslator)(nil)
