// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package decompose splits a compound English request into independent,
// self-contained entity sub-queries.
//
// "Compare the weather in Seoul and Tokyo" becomes ["Seoul weather",
// "Tokyo weather", "Compare results"]. Each sub-query can then be routed
// and executed on its own, in parallel where the runner allows.
package decompose

import (
	"regexp"
	"strings"
)

// =============================================================================
// Topic detection
// =============================================================================

// Topic is the domain tag attached to each extracted entity so the
// sub-query stands alone ("Seoul" alone routes poorly; "Seoul weather"
// does not).
type Topic string

const (
	TopicNone        Topic = ""
	TopicWeather     Topic = "weather"
	TopicNews        Topic = "news"
	TopicStock       Topic = "stock"
	TopicTime        Topic = "time"
	TopicCalculation Topic = "calculation"
)

var topicKeywords = []struct {
	topic    Topic
	keywords []string
}{
	{TopicWeather, []string{"weather", "temperature", "forecast", "climate", "humidity"}},
	{TopicNews, []string{"news", "headline", "headlines", "article", "articles"}},
	{TopicStock, []string{"stock", "stocks", "share price", "ticker", "market cap"}},
	{TopicTime, []string{"time", "clock", "what date", "current date"}},
	{TopicCalculation, []string{"calculate", "compute", "plus", "minus", "divided by", "multiplied"}},
}

func detectTopic(lower string) Topic {
	for _, entry := range topicKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.topic
			}
		}
	}
	return TopicNone
}

// =============================================================================
// Tokenization
// =============================================================================

var coordinatorPattern = regexp.MustCompile(`(?i)\s*(?:,|;|&|\band\b|\bor\b|\bvs\.?\b|\bversus\b|\bas\s+well\s+as\b)\s*`)

var comparisonWords = []string{"compare", "comparison", "vs", "versus", "difference", "differences", "better", "contrast"}

var numericToken = regexp.MustCompile(`^[0-9+\-*/.()%]+$`)

var punctTrim = regexp.MustCompile(`^[^\p{L}\p{N}(]+|[^\p{L}\p{N})%]+$`)

// stopwords holds functional English words plus request verbs. Topic
// keywords are filtered separately so the topic can be re-attached as a
// suffix without duplication.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "this": true, "that": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"in": true, "on": true, "at": true, "of": true, "for": true,
	"to": true, "from": true, "with": true, "about": true, "between": true,
	"what": true, "whats": true, "what's": true, "how": true, "which": true,
	"please": true, "tell": true, "show": true, "give": true, "get": true,
	"me": true, "my": true, "us": true, "it": true, "its": true,
	"check": true, "find": true, "look": true, "know": true, "want": true,
	"now": true, "today": true, "currently": true, "right": true,
	"compare": true, "comparison": true, "contrast": true,
	"difference": true, "differences": true, "versus": true, "vs": true,
	"better": true, "like": true, "also": true, "both": true, "each": true,
	"do": true, "does": true, "can": true, "could": true, "would": true,
	"you": true, "i": true, "we": true, "there": true, "here": true,
}

func isTopicWord(token string, topic Topic) bool {
	for _, entry := range topicKeywords {
		if entry.topic != topic {
			continue
		}
		for _, kw := range entry.keywords {
			if token == kw {
				return true
			}
		}
	}
	return false
}

// extractEntity reduces a coordinator fragment to its content tokens,
// preserving the original casing. Numeric runs survive only under the
// calculation topic, where they ARE the entity.
func extractEntity(fragment string, topic Topic) string {
	var kept []string
	for _, raw := range strings.Fields(fragment) {
		token := punctTrim.ReplaceAllString(raw, "")
		if token == "" {
			continue
		}
		lower := strings.ToLower(token)
		if numericToken.MatchString(token) {
			if topic == TopicCalculation {
				kept = append(kept, token)
			}
			continue
		}
		if stopwords[lower] || isTopicWord(lower, topic) {
			continue
		}
		kept = append(kept, token)
	}
	return strings.Join(kept, " ")
}

// =============================================================================
// Public API
// =============================================================================

// IsCompound reports whether the input contains a comparison word plus
// at least one coordinator, i.e. whether decomposition is worth running.
func IsCompound(input string) bool {
	lower := strings.ToLower(input)
	hasComparison := false
	for _, w := range comparisonWords {
		if strings.Contains(lower, w) {
			hasComparison = true
			break
		}
	}
	return hasComparison && coordinatorPattern.MatchString(input)
}

// ShouldDecompose widens IsCompound for the orchestrator: a coordinated
// query with a recognized topic ("Seoul and Tokyo weather") decomposes
// even without an explicit comparison word.
func ShouldDecompose(input string) bool {
	if IsCompound(input) {
		return true
	}
	return coordinatorPattern.MatchString(input) &&
		detectTopic(strings.ToLower(input)) != TopicNone
}

// Decompose splits a compound English query into independent
// sub-queries, each suffixed with the detected topic. A comparison word
// in the original plus two or more entities appends a final "Compare
// results" marker so the integrator knows synthesis is expected. An
// empty extraction returns the original as a singleton.
func Decompose(input string) []string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return []string{input}
	}

	lower := strings.ToLower(trimmed)
	topic := detectTopic(lower)

	var queries []string
	for _, fragment := range coordinatorPattern.Split(trimmed, -1) {
		entity := extractEntity(fragment, topic)
		if entity == "" {
			continue
		}
		switch topic {
		case TopicNone, TopicCalculation:
			queries = append(queries, entity)
		default:
			queries = append(queries, entity+" "+string(topic))
		}
	}

	if len(queries) == 0 {
		return []string{trimmed}
	}

	if len(queries) >= 2 {
		for _, w := range comparisonWords {
			if strings.Contains(lower, w) {
				queries = append(queries, "Compare results")
				break
			}
		}
	}
	return queries
}
