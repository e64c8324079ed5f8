// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools declares the tool registry and runs validated tool
// calls: schema checking, argument repair, invocation, semantic-error
// detection, and a single model-assisted retry.
package tools

import (
	"fmt"
	"strings"
)

// =============================================================================
// Registry
// =============================================================================

// Param describes one declared tool parameter.
type Param struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// Schema declares a tool's externally observable contract. CanonicalArg
// names the parameter a bare argument hint maps onto.
type Schema struct {
	Name         string
	Description  string
	Params       []Param
	CanonicalArg string
}

// Registry is the closed set of dispatchable tools. Order is the order
// tools appear in prompts.
var Registry = []Schema{
	{
		Name:         "get_weather",
		Description:  "Get current weather information for a specific location",
		CanonicalArg: "location",
		Params: []Param{
			{Name: "location", Type: "string", Required: true, Description: "City name (e.g., 'Seoul', 'Tokyo', 'New York')"},
			{Name: "unit", Type: "string", Description: "Temperature unit: celsius or fahrenheit (default: celsius)"},
		},
	},
	{
		Name:         "search_web",
		Description:  "Search the web for current information on any topic",
		CanonicalArg: "query",
		Params: []Param{
			{Name: "query", Type: "string", Required: true, Description: "Search query"},
			{Name: "num_results", Type: "integer", Description: "Number of results to return (default: 5, max: 10)"},
		},
	},
	{
		Name:         "search_news",
		Description:  "Search recent news articles",
		CanonicalArg: "query",
		Params: []Param{
			{Name: "query", Type: "string", Required: true, Description: "News search query"},
			{Name: "num_results", Type: "integer", Description: "Number of results (default: 5, max: 10)"},
		},
	},
	{
		Name:         "search_wikipedia",
		Description:  "Get Wikipedia article summary for a topic",
		CanonicalArg: "query",
		Params: []Param{
			{Name: "query", Type: "string", Required: true, Description: "Topic to search on Wikipedia"},
			{Name: "lang", Type: "string", Description: "Language code (en, ko, ja, etc. Default: en)"},
		},
	},
	{
		Name:         "read_url",
		Description:  "Read and extract text content from a URL",
		CanonicalArg: "url",
		Params: []Param{
			{Name: "url", Type: "string", Required: true, Description: "URL to read content from"},
			{Name: "max_chars", Type: "integer", Description: "Maximum characters to return (default: 2000)"},
		},
	},
	{
		Name:         "calculate",
		Description:  "Perform mathematical calculations",
		CanonicalArg: "expression",
		Params: []Param{
			{Name: "expression", Type: "string", Required: true, Description: "Mathematical expression to evaluate (e.g., '2 + 2 * 3')"},
		},
	},
	{
		Name:         "get_current_time",
		Description:  "Get current date and time for a timezone",
		CanonicalArg: "timezone",
		Params: []Param{
			{Name: "timezone", Type: "string", Description: "Timezone name (e.g., 'Asia/Seoul', 'UTC', 'America/New_York')"},
		},
	},
	{
		Name:         "execute_command",
		Description:  "Execute a terminal/shell command. Use for running scripts, checking versions, system info.",
		CanonicalArg: "command",
		Params: []Param{
			{Name: "command", Type: "string", Required: true, Description: "Command to execute (e.g., 'python --version', 'ls')"},
			{Name: "timeout", Type: "integer", Description: "Timeout in seconds (default: 30)"},
		},
	},
}

// Lookup finds a schema by tool name.
func Lookup(name string) (Schema, bool) {
	for _, s := range Registry {
		if s.Name == name {
			return s, true
		}
	}
	return Schema{}, false
}

// knownParam reports whether key is a declared parameter of the schema.
func (s Schema) knownParam(key string) bool {
	for _, p := range s.Params {
		if p.Name == key {
			return true
		}
	}
	return false
}

// Validate checks that every required parameter is present and no
// foreign keys remain.
func (s Schema) Validate(arguments map[string]any) error {
	for _, p := range s.Params {
		if !p.Required {
			continue
		}
		v, ok := arguments[p.Name]
		if !ok {
			return fmt.Errorf("missing required parameter %q", p.Name)
		}
		if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
			return fmt.Errorf("required parameter %q is empty", p.Name)
		}
	}
	for key := range arguments {
		if !s.knownParam(key) {
			return fmt.Errorf("unknown parameter %q for tool %s", key, s.Name)
		}
	}
	return nil
}

// PromptBlock renders the registry as the tool list handed to the
// model. Required parameters are starred.
func PromptBlock() string {
	var b strings.Builder
	for _, tool := range Registry {
		fmt.Fprintf(&b, "- %s: %s\n", tool.Name, tool.Description)
		for _, p := range tool.Params {
			mark := ""
			if p.Required {
				mark = "*"
			}
			fmt.Fprintf(&b, "  - %s%s: %s\n", p.Name, mark, p.Description)
		}
	}
	return b.String()
}
