// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package format renders heterogeneous task results into user-facing
// text.
//
// Structured payloads get deterministic typed renderers — the guard
// against the model hallucinating URLs or numbers. Only fully opaque
// aggregates fall through to a constrained model pass, and even then
// the source links are appended programmatically.
package format

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianMoA/services/llm"
)

const taskDelimiter = "[TASK:"

// linksHeading deliberately matches the product's Korean-market UI.
const linksHeading = "### 관련 뉴스/자료"

const integrationPrompt = `Combine the task results below into one helpful answer for the user.

Rules:
1. NEVER alter, shorten, or invent URLs. Copy them exactly.
2. One bullet per item.
3. Answer in English.

User request: %s

Task results:
%s

Answer:`

// Section is one [TASK:]-framed block of an aggregate.
type Section struct {
	Task   string
	Data   string
	Parsed map[string]any // nil when Data is opaque text
}

// WrapSection frames one task result for later splitting. Structured
// payloads are serialized as JSON behind the DATA: marker.
func WrapSection(task string, payload any) string {
	var data string
	switch v := payload.(type) {
	case string:
		data = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			data = fmt.Sprintf("%v", v)
		} else {
			data = string(encoded)
		}
	}
	return fmt.Sprintf("[TASK: %s]\nDATA: %s", task, data)
}

// Split breaks an aggregate into sections. Input without any [TASK:]
// frame becomes a single anonymous section.
func Split(aggregate string) []Section {
	if !strings.Contains(aggregate, taskDelimiter) {
		return []Section{parseSection("", aggregate)}
	}

	var sections []Section
	for _, chunk := range strings.Split(aggregate, taskDelimiter) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		task, rest := "", chunk
		if end := strings.Index(chunk, "]"); end >= 0 {
			task = strings.TrimSpace(chunk[:end])
			rest = chunk[end+1:]
		}
		data := rest
		if idx := strings.Index(rest, "DATA:"); idx >= 0 {
			data = rest[idx+len("DATA:"):]
		}
		sections = append(sections, parseSection(task, strings.TrimSpace(data)))
	}
	return sections
}

func parseSection(task, data string) Section {
	section := Section{Task: task, Data: data}
	trimmed := strings.TrimSpace(data)
	if strings.HasPrefix(trimmed, "{") {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			section.Parsed = parsed
		}
	}
	return section
}

// Formatter renders aggregates, delegating only opaque content to the
// model.
type Formatter struct {
	model  llm.LLMClient
	logger *slog.Logger
}

func New(model llm.LLMClient, logger *slog.Logger) *Formatter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Formatter{model: model, logger: logger}
}

// Format renders the aggregate. If any section renders deterministically
// the model pass is skipped entirely and the rendered blocks are
// returned as-is.
func (f *Formatter) Format(ctx context.Context, userText, aggregate string) string {
	sections := Split(aggregate)

	var rendered []string
	deterministic := false
	for _, section := range sections {
		if block, ok := renderTyped(section); ok {
			rendered = append(rendered, block)
			deterministic = true
			continue
		}
		rendered = append(rendered, strings.TrimSpace(section.Data))
	}

	if deterministic {
		return strings.Join(rendered, "\n\n")
	}
	return f.integrate(ctx, userText, aggregate, sections)
}

// Integrate always runs the model pass, typed sections or not. Callers
// use it when the request explicitly asks for synthesis across results
// (comparisons) rather than a rendering of each part.
func (f *Formatter) Integrate(ctx context.Context, userText, aggregate string) string {
	return f.integrate(ctx, userText, aggregate, Split(aggregate))
}

// integrate is the model fallback for opaque aggregates. The source
// links survive regardless of what the model does with them.
func (f *Formatter) integrate(ctx context.Context, userText, aggregate string, sections []Section) string {
	if f.model == nil {
		return strings.TrimSpace(aggregate)
	}

	maxTokens := 1024
	temp := float32(0.3)
	out, err := f.model.Generate(ctx,
		fmt.Sprintf(integrationPrompt, userText, aggregate),
		llm.GenerationParams{MaxTokens: &maxTokens, Temperature: &temp})
	if err != nil {
		f.logger.Warn("Integration pass failed, returning raw aggregate", "error", err)
		return strings.TrimSpace(aggregate)
	}

	answer := strings.TrimSpace(out)
	if links := collectLinks(sections); len(links) > 0 {
		var b strings.Builder
		b.WriteString(answer)
		b.WriteString("\n\n" + linksHeading + "\n")
		for _, link := range links {
			fmt.Fprintf(&b, "- %s\n", link)
		}
		answer = strings.TrimRight(b.String(), "\n")
	}
	return answer
}

// =============================================================================
// Typed renderers
// =============================================================================

// renderTyped dispatches on payload shape. The bool is false when the
// section has no structured payload or no renderer fits.
func renderTyped(section Section) (string, bool) {
	if section.Parsed == nil {
		return "", false
	}
	payload := section.Parsed
	if _, hasLoc := payload["location"]; hasLoc {
		if _, hasTemp := payload["temperature"]; hasTemp {
			return renderWeather(payload), true
		}
	}
	if _, hasResults := payload["results"]; hasResults {
		return renderResults(payload), true
	}
	if _, hasExpr := payload["expression"]; hasExpr {
		return renderCalculation(payload), true
	}
	if _, hasExtract := payload["extract"]; hasExtract {
		return renderWikipedia(payload), true
	}
	if _, hasCmd := payload["command"]; hasCmd {
		return renderCommand(payload), true
	}
	if _, hasTime := payload["datetime"]; hasTime {
		return renderTime(payload), true
	}
	if len(payload) > 0 {
		return renderGeneric(payload), true
	}
	return "", false
}

func str(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	if v, ok := payload[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// renderWeather emits the weather card. Temperature and condition come
// through verbatim from the upstream payload.
func renderWeather(payload map[string]any) string {
	location := titleCase(str(payload, "location"))
	var b strings.Builder
	fmt.Fprintf(&b, "### 🌦️ **%s Weather**\n", location)
	fmt.Fprintf(&b, "- Temperature: %s (feels like %s)\n",
		str(payload, "temperature"), str(payload, "feels_like"))
	fmt.Fprintf(&b, "- Condition: %s\n", str(payload, "condition"))
	fmt.Fprintf(&b, "- Humidity: %s\n", str(payload, "humidity"))
	fmt.Fprintf(&b, "- Wind: %s", str(payload, "wind"))
	return b.String()
}

// renderResults emits search/news entries as a titled list. URLs are
// copied byte-exact.
func renderResults(payload map[string]any) string {
	var b strings.Builder
	if query := str(payload, "query"); query != "" {
		fmt.Fprintf(&b, "### 🔍 Results for **%s**\n", query)
	}
	for _, entry := range resultEntries(payload) {
		title := str(entry, "title")
		link := str(entry, "url")
		if link == "" {
			link = str(entry, "link")
		}
		fmt.Fprintf(&b, "- **%s**\n", title)
		if snippet := str(entry, "snippet"); snippet != "" {
			fmt.Fprintf(&b, "  %s\n", snippet)
		}
		if link != "" {
			fmt.Fprintf(&b, "  %s\n", link)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCalculation(payload map[string]any) string {
	return fmt.Sprintf("### 🧮 Calculation\n- `%s` = **%s**",
		str(payload, "expression"), str(payload, "result"))
}

func renderWikipedia(payload map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### 📖 **%s**\n%s", str(payload, "title"), str(payload, "extract"))
	if link := str(payload, "url"); link != "" {
		fmt.Fprintf(&b, "\n%s", link)
	}
	return b.String()
}

func renderCommand(payload map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### 💻 `%s`\n", str(payload, "command"))
	if stdout := str(payload, "stdout"); stdout != "" {
		fmt.Fprintf(&b, "```\n%s\n```\n", stdout)
	}
	if stderr := str(payload, "stderr"); stderr != "" {
		fmt.Fprintf(&b, "stderr:\n```\n%s\n```\n", stderr)
	}
	fmt.Fprintf(&b, "exit code: %s", str(payload, "return_code"))
	return b.String()
}

func renderTime(payload map[string]any) string {
	return fmt.Sprintf("### 🕐 %s\n- %s",
		str(payload, "timezone"), str(payload, "formatted"))
}

func renderGeneric(payload map[string]any) string {
	keys := sortedKeys(payload)
	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "- **%s**: %s\n", key, str(payload, key))
	}
	return strings.TrimRight(b.String(), "\n")
}

// =============================================================================
// Helpers
// =============================================================================

func resultEntries(payload map[string]any) []map[string]any {
	switch results := payload["results"].(type) {
	case []map[string]any:
		return results
	case []any:
		var entries []map[string]any
		for _, r := range results {
			if m, ok := r.(map[string]any); ok {
				entries = append(entries, m)
			}
		}
		return entries
	}
	return nil
}

// collectLinks gathers every URL from parsed payloads, in section
// order, de-duplicated.
func collectLinks(sections []Section) []string {
	var links []string
	seen := map[string]bool{}
	add := func(link string) {
		if link != "" && !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	}
	for _, section := range sections {
		if section.Parsed == nil {
			continue
		}
		add(str(section.Parsed, "url"))
		for _, entry := range resultEntries(section.Parsed) {
			add(str(entry, "url"))
			add(str(entry, "link"))
		}
	}
	return links
}

func sortedKeys(payload map[string]any) []string {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		if len(f) > 0 {
			fields[i] = strings.ToUpper(f[:1]) + f[1:]
		}
	}
	return strings.Join(fields, " ")
}
