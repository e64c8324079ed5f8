// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package translation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

var codeBlockPattern = regexp.MustCompile("(?s)```.*?```")

// Context preserves the original language of a request across the
// English-only processing core.
type Context struct {
	OriginalText string
	OriginalLang string
	EnglishText  string
	IsTranslated bool
}

// Pipeline performs the inbound and outbound halves of the round trip:
// ToEnglish before orchestration, FromEnglish after formatting.
type Pipeline struct {
	translator Translator
	logger     *slog.Logger
}

// NewPipeline builds a Pipeline around translator.
func NewPipeline(translator Translator, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{translator: translator, logger: logger}
}

// ToEnglish detects the input language and translates non-English text
// to English. Translation failure is non-fatal: the original text is
// carried through and the outbound half is skipped.
func (p *Pipeline) ToEnglish(ctx context.Context, text string) Context {
	if strings.TrimSpace(text) == "" {
		return Context{OriginalText: text, OriginalLang: "en", EnglishText: text}
	}

	lang := DetectLanguage(text)
	if lang == "en" {
		return Context{OriginalText: text, OriginalLang: "en", EnglishText: text}
	}

	english, err := p.translator.Translate(ctx, text, lang, "en")
	if err != nil {
		p.logger.Warn("Inbound translation failed, using original text",
			"lang", lang, "error", err)
		return Context{OriginalText: text, OriginalLang: lang, EnglishText: text}
	}
	p.logger.Info("Translated input to English", "lang", lang)
	return Context{
		OriginalText: text,
		OriginalLang: lang,
		EnglishText:  english,
		IsTranslated: true,
	}
}

// FromEnglish translates the English response back to the request's
// original language.
//
// Code fences are replaced with placeholders before translation and
// restored byte-for-byte afterwards: file names, command output, and
// stack traces inside fences must survive the round trip unchanged.
// Any failure returns the English response rather than an error.
func (p *Pipeline) FromEnglish(ctx context.Context, englishResponse string, tc Context) string {
	if !tc.IsTranslated || tc.OriginalLang == "en" {
		return englishResponse
	}
	if strings.TrimSpace(englishResponse) == "" {
		return englishResponse
	}

	codeBlocks := codeBlockPattern.FindAllString(englishResponse, -1)
	textToTranslate := englishResponse
	placeholders := make([]string, len(codeBlocks))
	for i, block := range codeBlocks {
		placeholders[i] = fmt.Sprintf("__CODE_BLOCK_%d__", i)
		textToTranslate = strings.Replace(textToTranslate, block, placeholders[i], 1)
	}

	translated := textToTranslate
	if strings.TrimSpace(textToTranslate) != "" {
		out, err := p.translator.Translate(ctx, textToTranslate, "en", tc.OriginalLang)
		if err != nil {
			p.logger.Warn("Outbound translation failed, returning English response",
				"lang", tc.OriginalLang, "error", err)
			return englishResponse
		}
		translated = out
	}

	for i, block := range codeBlocks {
		translated = strings.Replace(translated, placeholders[i], block, 1)
	}

	p.logger.Info("Translated response to original language",
		"lang", tc.OriginalLang, "preserved_code_blocks", len(codeBlocks))
	return translated
}

// Process runs fn on the English form of text and returns the response
// in the original language.
func (p *Pipeline) Process(ctx context.Context, text string,
	fn func(ctx context.Context, english string) (string, error)) (string, error) {

	tc := p.ToEnglish(ctx, text)
	englishResponse, err := fn(ctx, tc.EnglishText)
	if err != nil {
		return "", err
	}
	return p.FromEnglish(ctx, englishResponse, tc), nil
}
