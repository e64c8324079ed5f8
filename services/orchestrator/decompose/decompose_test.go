// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package decompose

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecompose(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "two city weather comparison",
			input: "Compare the weather in Seoul and Tokyo",
			want:  []string{"Seoul weather", "Tokyo weather", "Compare results"},
		},
		{
			name:  "three entities with comma and coordinator",
			input: "What's the weather in Seoul, Tokyo and Paris?",
			want:  []string{"Seoul weather", "Tokyo weather", "Paris weather"},
		},
		{
			name:  "news topic suffix",
			input: "Show me news about Samsung and LG",
			want:  []string{"Samsung news", "LG news"},
		},
		{
			name:  "versus coordinator counts as comparison",
			input: "Samsung stock versus Apple stock",
			want:  []string{"Samsung stock", "Apple stock", "Compare results"},
		},
		{
			name:  "calculation preserves numerics without suffix",
			input: "calculate 2+3 and 10*5",
			want:  []string{"2+3", "10*5"},
		},
		{
			name:  "no topic keeps bare entities",
			input: "Compare React and Vue",
			want:  []string{"React", "Vue", "Compare results"},
		},
		{
			name:  "single entity gets no compare marker",
			input: "Compare the weather in Seoul",
			want:  []string{"Seoul weather"},
		},
		{
			name:  "all-stopword input falls back to original",
			input: "compare this and that",
			want:  []string{"compare this and that"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decompose(tc.input))
		})
	}
}

func TestDecomposePreservesEntityOrder(t *testing.T) {
	got := Decompose("weather in Busan, Incheon, Daegu and Gwangju")
	assert.Equal(t, []string{
		"Busan weather", "Incheon weather", "Daegu weather", "Gwangju weather",
	}, got)
}

func TestDecomposeEmptyInput(t *testing.T) {
	assert.Equal(t, []string{"   "}, Decompose("   "))
}

func TestDetectTopic(t *testing.T) {
	cases := []struct {
		input string
		want  Topic
	}{
		{"how is the weather in seoul", TopicWeather},
		{"latest headlines about the election", TopicNews},
		{"samsung stock price today", TopicStock},
		{"calculate 12 * 4", TopicCalculation},
		{"compare react and vue", TopicNone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, detectTopic(tc.input), "input %q", tc.input)
	}
}

func TestIsCompound(t *testing.T) {
	assert.True(t, IsCompound("Compare the weather in Seoul and Tokyo"))
	assert.True(t, IsCompound("React vs Vue, which is better"))
	assert.False(t, IsCompound("How is the weather in Seoul"))
	assert.False(t, IsCompound("Compare"))
}

func TestShouldDecompose(t *testing.T) {
	assert.True(t, ShouldDecompose("Seoul and Tokyo weather"))
	assert.True(t, ShouldDecompose("Compare React, Vue, Angular"))
	assert.False(t, ShouldDecompose("How is the weather in Seoul"))
	assert.False(t, ShouldDecompose("apples and oranges"))
}
