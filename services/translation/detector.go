// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package translation wraps the English-only inference core with language
// detection and round-trip translation. Multilingual input is translated
// to English before the models see it and the English answer is translated
// back, with code fences passed through untouched.
package translation

import (
	"strings"
	"unicode"
)

// languageNames maps ISO 639-1 codes to display names.
var languageNames = map[string]string{
	"ko": "Korean",
	"en": "English",
	"ja": "Japanese",
	"zh": "Chinese",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"ru": "Russian",
	"ar": "Arabic",
	"vi": "Vietnamese",
	"th": "Thai",
}

// scriptRange is a half-open-ish unicode interval attributed to a language.
type scriptRange struct {
	lo, hi rune
	lang   string
}

var scriptRanges = []scriptRange{
	{0xAC00, 0xD7AF, "ko"}, // Hangul syllables
	{0x1100, 0x11FF, "ko"}, // Hangul jamo
	{0x3130, 0x318F, "ko"}, // Hangul compatibility jamo
	{0x3040, 0x309F, "ja"}, // Hiragana
	{0x30A0, 0x30FF, "ja"}, // Katakana
	{0x4E00, 0x9FFF, "zh"}, // CJK unified ideographs
	{0x0400, 0x04FF, "ru"}, // Cyrillic
	{0x0600, 0x06FF, "ar"}, // Arabic
	{0x0E00, 0x0E7F, "th"}, // Thai
}

// DetectLanguage returns the ISO 639-1 code of the dominant script in
// text. Empty or unrecognized text is reported as English.
//
// Counting is per-rune over fixed unicode ranges. Japanese text mixes
// kanji with kana, so any kana at all wins over a larger han count;
// without that rule most Japanese sentences would be reported as Chinese.
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return "en"
	}

	counts := make(map[string]int)
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		for _, sr := range scriptRanges {
			if r >= sr.lo && r <= sr.hi {
				counts[sr.lang]++
				break
			}
		}
	}

	if counts["ja"] > 0 {
		return "ja"
	}

	best, bestCount := "en", 0
	for lang, count := range counts {
		if count > bestCount {
			best, bestCount = lang, count
		}
	}
	if bestCount == 0 {
		return "en"
	}
	return best
}

// IsEnglish reports whether DetectLanguage classifies text as English.
func IsEnglish(text string) bool {
	return DetectLanguage(text) == "en"
}

// LanguageName converts a language code to a display name, falling back
// to the upper-cased code.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return strings.ToUpper(code)
}
