// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// =============================================================================
// Executor
// =============================================================================

// Default per-tool timeouts. Weather and wikipedia are snappy APIs;
// URL reads can hit slow origins; shell commands get the longest leash.
const (
	weatherTimeout = 10 * time.Second
	searchTimeout  = 10 * time.Second
	wikiTimeout    = 10 * time.Second
	readURLTimeout = 15 * time.Second
	commandTimeout = 30 * time.Second

	defaultNumResults = 5
	maxNumResults     = 10
	defaultMaxChars   = 2000
	weatherRetries    = 5
)

// ExecutorConfig overrides the external endpoints, primarily for tests.
// Zero values take the production defaults.
type ExecutorConfig struct {
	WeatherBaseURL string // default https://wttr.in
	SearchBaseURL  string // default https://html.duckduckgo.com/html/
	WikiBaseURL    string // default https://%s.wikipedia.org (lang substituted)
	Shell          string // default /bin/sh
}

// Executor owns the tool handlers. All handlers are pure I/O and safe
// for concurrent use; none of them touch the language model.
type Executor struct {
	httpClient *http.Client
	config     ExecutorConfig
	logger     *slog.Logger
	now        func() time.Time
}

func NewExecutor(config ExecutorConfig, logger *slog.Logger) *Executor {
	if config.WeatherBaseURL == "" {
		config.WeatherBaseURL = "https://wttr.in"
	}
	if config.SearchBaseURL == "" {
		config.SearchBaseURL = "https://html.duckduckgo.com/html/"
	}
	if config.WikiBaseURL == "" {
		config.WikiBaseURL = "https://%s.wikipedia.org"
	}
	if config.Shell == "" {
		config.Shell = "/bin/sh"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		httpClient: &http.Client{Timeout: readURLTimeout},
		config:     config,
		logger:     logger,
		now:        time.Now,
	}
}

// Execute runs the named tool with already-validated arguments and
// returns a structured payload or an error. Unknown tools error rather
// than panic; the dispatcher screens names before calling.
func (e *Executor) Execute(ctx context.Context, name string, arguments map[string]any) (map[string]any, error) {
	switch name {
	case "get_weather":
		return e.getWeather(ctx, stringArg(arguments, "location"), stringArg(arguments, "unit"))
	case "search_web":
		return e.searchWeb(ctx, stringArg(arguments, "query"), intArg(arguments, "num_results", defaultNumResults))
	case "search_news":
		return e.searchNews(ctx, stringArg(arguments, "query"), intArg(arguments, "num_results", defaultNumResults))
	case "search_wikipedia":
		return e.searchWikipedia(ctx, stringArg(arguments, "query"), stringArg(arguments, "lang"))
	case "read_url":
		return e.readURL(ctx, stringArg(arguments, "url"), intArg(arguments, "max_chars", defaultMaxChars))
	case "calculate":
		return e.calculate(stringArg(arguments, "expression"))
	case "get_current_time":
		return e.currentTime(stringArg(arguments, "timezone"))
	case "execute_command":
		return e.executeCommand(ctx, stringArg(arguments, "command"), intArg(arguments, "timeout", 30))
	}
	return nil, fmt.Errorf("unknown tool: %s", name)
}

func stringArg(arguments map[string]any, key string) string {
	if v, ok := arguments[key].(string); ok {
		return v
	}
	return ""
}

func intArg(arguments map[string]any, key string, def int) int {
	switch v := arguments[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}

// =============================================================================
// Weather
// =============================================================================

// getWeather queries wttr.in. The endpoint occasionally 503s under
// load, so transient failures get linear-backoff retries.
func (e *Executor) getWeather(ctx context.Context, location, unit string) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/%s?format=j1", e.config.WeatherBaseURL, url.PathEscape(location))

	var lastErr error
	for attempt := 1; attempt <= weatherRetries; attempt++ {
		payload, err := e.fetchWeather(ctx, endpoint, location, unit)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Debug("Weather fetch failed, retrying",
			"location", location, "attempt", attempt, "error", err)
		select {
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("weather lookup for %q failed: %w", location, lastErr)
}

func (e *Executor) fetchWeather(ctx context.Context, endpoint, location, unit string) (map[string]any, error) {
	reqCtx, cancel := context.WithTimeout(ctx, weatherTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	// wttr.in serves an HTML page unless the client looks like curl.
	req.Header.Set("User-Agent", "curl/7.0")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API returned %d", resp.StatusCode)
	}

	var parsed struct {
		CurrentCondition []struct {
			TempC       string `json:"temp_C"`
			TempF       string `json:"temp_F"`
			Humidity    string `json:"humidity"`
			FeelsLikeC  string `json:"FeelsLikeC"`
			WindspeedKm string `json:"windspeedKmph"`
			WeatherDesc []struct {
				Value string `json:"value"`
			} `json:"weatherDesc"`
		} `json:"current_condition"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("invalid weather response: %w", err)
	}
	if len(parsed.CurrentCondition) == 0 {
		return nil, fmt.Errorf("weather response has no current condition")
	}

	current := parsed.CurrentCondition[0]
	temperature := current.TempC + "°C"
	if unit == "fahrenheit" {
		temperature = current.TempF + "°F"
	}
	condition := ""
	if len(current.WeatherDesc) > 0 {
		condition = current.WeatherDesc[0].Value
	}
	return map[string]any{
		"location":    location,
		"temperature": temperature,
		"condition":   condition,
		"humidity":    current.Humidity + "%",
		"feels_like":  current.FeelsLikeC + "°C",
		"wind":        current.WindspeedKm + " km/h",
		"source":      "wttr.in",
	}, nil
}

// =============================================================================
// Search
// =============================================================================

var (
	searchResultPattern  = regexp.MustCompile(`(?s)<a[^>]*class="result__a"[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)
	searchSnippetPattern = regexp.MustCompile(`(?s)<a[^>]*class="result__snippet"[^>]*>(.*?)</a>`)
	tagPattern           = regexp.MustCompile(`<[^>]*>`)
	scriptPattern        = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	wsPattern            = regexp.MustCompile(`\s+`)
)

func (e *Executor) searchWeb(ctx context.Context, query string, numResults int) (map[string]any, error) {
	results, err := e.duckduckgo(ctx, query, numResults)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"query":       query,
		"num_results": len(results),
		"results":     results,
	}, nil
}

// searchNews reuses the web backend with a news-biased query; the
// result entries carry the same title/url/snippet shape.
func (e *Executor) searchNews(ctx context.Context, query string, numResults int) (map[string]any, error) {
	results, err := e.duckduckgo(ctx, query+" news", numResults)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"query":       query,
		"num_results": len(results),
		"results":     results,
	}, nil
}

// duckduckgo scrapes the no-JS HTML endpoint. The markup is stable
// enough for a regex pass; a parse miss yields an empty result list,
// not an error.
func (e *Executor) duckduckgo(ctx context.Context, query string, numResults int) ([]map[string]any, error) {
	if numResults <= 0 {
		numResults = defaultNumResults
	}
	if numResults > maxNumResults {
		numResults = maxNumResults
	}

	reqCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		e.config.SearchBaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; AleutianMoA/1.0)")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}

	anchors := searchResultPattern.FindAllStringSubmatch(string(body), numResults)
	snippets := searchSnippetPattern.FindAllStringSubmatch(string(body), numResults)

	results := make([]map[string]any, 0, len(anchors))
	for i, m := range anchors {
		snippet := ""
		if i < len(snippets) {
			snippet = cleanHTML(snippets[i][1])
		}
		results = append(results, map[string]any{
			"title":   cleanHTML(m[2]),
			"url":     resolveRedirect(m[1]),
			"snippet": snippet,
		})
	}
	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect so the stored
// URL is the destination, byte-exact.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if uddg := u.Query().Get("uddg"); uddg != "" {
		return uddg
	}
	return href
}

func cleanHTML(s string) string {
	s = scriptPattern.ReplaceAllString(s, " ")
	s = tagPattern.ReplaceAllString(s, " ")
	s = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">",
		"&quot;", `"`, "&#x27;", "'", "&nbsp;", " ").Replace(s)
	return strings.TrimSpace(wsPattern.ReplaceAllString(s, " "))
}

// =============================================================================
// Wikipedia
// =============================================================================

func (e *Executor) searchWikipedia(ctx context.Context, query, lang string) (map[string]any, error) {
	if lang == "" {
		lang = "en"
	}
	base := fmt.Sprintf(e.config.WikiBaseURL, lang)
	endpoint := base + "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(query, " ", "_"))

	reqCtx, cancel := context.WithTimeout(ctx, wikiTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia returned %d for %q", resp.StatusCode, query)
	}

	var parsed struct {
		Title   string `json:"title"`
		Extract string `json:"extract"`
		Content struct {
			Desktop struct {
				Page string `json:"page"`
			} `json:"desktop"`
		} `json:"content_urls"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("invalid wikipedia response: %w", err)
	}
	return map[string]any{
		"title":   parsed.Title,
		"extract": parsed.Extract,
		"url":     parsed.Content.Desktop.Page,
	}, nil
}

// =============================================================================
// URL reader
// =============================================================================

func (e *Executor) readURL(ctx context.Context, target string, maxChars int) (map[string]any, error) {
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("invalid URL: %s", target)
	}

	reqCtx, cancel := context.WithTimeout(ctx, readURLTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; AleutianMoA/1.0)")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	text := cleanHTML(string(body))
	truncated := len(text) > maxChars
	if truncated {
		text = text[:maxChars]
	}
	return map[string]any{
		"url":          target,
		"content":      text,
		"total_length": len(text),
		"truncated":    truncated,
	}, nil
}

// =============================================================================
// Calculator
// =============================================================================

func (e *Executor) calculate(expression string) (map[string]any, error) {
	result, err := evaluate(expression)
	if err != nil {
		return nil, fmt.Errorf("cannot evaluate %q: %w", expression, err)
	}
	return map[string]any{
		"expression": expression,
		"result":     result,
	}, nil
}

// =============================================================================
// Clock
// =============================================================================

func (e *Executor) currentTime(timezone string) (map[string]any, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	reportedZone := timezone
	if err != nil {
		// Bad zone names degrade to UTC rather than failing the call.
		loc = time.UTC
		reportedZone = "UTC (fallback)"
	}
	now := e.now().In(loc)
	return map[string]any{
		"timezone":  reportedZone,
		"datetime":  now.Format(time.RFC3339),
		"formatted": now.Format("2006-01-02 15:04:05 MST"),
	}, nil
}

// =============================================================================
// Shell
// =============================================================================

// destructivePatterns blocks commands that destroy data. A keyword hit
// rejects the command outright; there is no override.
var destructivePatterns = []string{
	"rm -rf", "rm -fr", "rmdir /s", "mkfs", "dd if=", "format c:",
	"shutdown", "reboot", "halt", ":(){", "fork bomb",
	"> /dev/sda", "chmod -r 777 /",
	"drop table", "truncate table",
}

// shellInterpreters are the segment heads that execute piped input.
var shellInterpreters = map[string]bool{
	"sh": true, "bash": true, "zsh": true, "dash": true, "ksh": true,
}

// pipesToShell reports whether a command fetches remote content and
// pipes it into a shell, no matter what URL or flags sit between the
// fetcher and the pipe. Segments are inspected per pipe stage: a
// curl/wget anywhere in an earlier stage followed by a stage whose
// command is a shell interpreter is rejected.
func pipesToShell(lower string) bool {
	fetcherSeen := false
	for _, segment := range strings.Split(lower, "|") {
		fields := strings.Fields(segment)
		if len(fields) == 0 {
			continue
		}
		for _, field := range fields {
			if field == "curl" || field == "wget" {
				fetcherSeen = true
			}
		}
		head := fields[0]
		// Skip wrappers so "sudo bash" and "/bin/sh" still count.
		if (head == "sudo" || head == "env") && len(fields) > 1 {
			head = fields[1]
		}
		if shellInterpreters[filepath.Base(head)] && fetcherSeen {
			return true
		}
	}
	return false
}

func (e *Executor) executeCommand(ctx context.Context, command string, timeoutSec int) (map[string]any, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("empty command")
	}
	lower := strings.ToLower(command)
	for _, pattern := range destructivePatterns {
		if strings.Contains(lower, pattern) {
			return nil, fmt.Errorf("command rejected: contains destructive pattern %q", pattern)
		}
	}
	if pipesToShell(lower) {
		return nil, fmt.Errorf("command rejected: pipes downloaded content into a shell")
	}
	if timeoutSec <= 0 || timeoutSec > 300 {
		timeoutSec = int(commandTimeout / time.Second)
	}

	cmdCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, e.config.Shell, "-c", command)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if cmdCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("command timed out after %ds", timeoutSec)
	}

	returnCode := 0
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		returnCode = exitErr.ExitCode()
	} else if runErr != nil {
		return nil, fmt.Errorf("command failed to start: %w", runErr)
	}

	return map[string]any{
		"command":     command,
		"stdout":      strings.TrimSpace(stdout.String()),
		"stderr":      strings.TrimSpace(stderr.String()),
		"return_code": returnCode,
		"success":     returnCode == 0,
	}, nil
}
