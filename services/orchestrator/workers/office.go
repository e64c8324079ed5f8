// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/AleutianAI/AleutianMoA/services/llm"
	"github.com/AleutianAI/AleutianMoA/services/office"
)

const officeSystemPrompt = `You are an office document specialist. You turn task results
into structured document content.

Respond with a single JSON object and nothing else. Use the structure the task asks for:

Presentation: {"title": "...", "subtitle": "...", "slides": [{"title": "...", "content": ["point", ...]}]}
Report:       {"title": "...", "sections": [{"heading": "...", "content": "..."}]}
Workbook:     {"sheet_name": "...", "data": [{"column": "value", ...}]}

Base the content on the provided context. Do not invent data that is not supported by it.`

// presentationKeywords and friends decide which documents a task wants.
// A description matching none of them produces all three.
var (
	presentationKeywords = []string{"ppt", "powerpoint", "presentation", "slide", "발표", "프레젠테이션", "슬라이드"}
	reportKeywords       = []string{"word", "docx", "report", "document", "제안서", "보고서", "문서"}
	workbookKeywords     = []string{"excel", "xlsx", "spreadsheet", "table", "엑셀", "스프레드시트", "표", "통계"}
)

var (
	jsonBlockPattern = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	folderPattern    = regexp.MustCompile(`(?i)(?:in|into|under|to)\s+(?:the\s+)?(?:folder|directory)\s+["']?([a-zA-Z0-9_\-\./]+)["']?`)
)

// OfficeWorker generates presentations, reports, and workbooks from the
// shared task history.
type OfficeWorker struct {
	gateway   *llm.Gateway
	generator office.Generator
	logger    *slog.Logger
}

func NewOfficeWorker(gateway *llm.Gateway, gen office.Generator, logger *slog.Logger) *OfficeWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &OfficeWorker{gateway: gateway, generator: gen, logger: logger}
}

func (w *OfficeWorker) Name() string { return "office" }

func (w *OfficeWorker) Execute(ctx context.Context, description string, opts Options) (string, error) {
	wantPPT, wantReport, wantWorkbook := documentKinds(description)
	outputDir := outputDirFor(description)
	title := titleFor(description)

	var made []string
	if wantPPT {
		artifact, err := w.createPresentation(ctx, description, title, outputDir, opts)
		if err != nil {
			return "", err
		}
		made = append(made, artifact.Message)
	}
	if wantReport {
		artifact, err := w.createReport(ctx, description, title, outputDir, opts)
		if err != nil {
			return "", err
		}
		made = append(made, artifact.Message)
	}
	if wantWorkbook {
		artifact, err := w.createWorkbook(ctx, description, title, outputDir, opts)
		if err != nil {
			return "", err
		}
		made = append(made, artifact.Message)
	}
	return strings.Join(made, "\n"), nil
}

func (w *OfficeWorker) createPresentation(ctx context.Context, description, title, outputDir string, opts Options) (office.Artifact, error) {
	raw, err := w.generate(ctx, description, "presentation", opts)
	if err != nil {
		return office.Artifact{}, err
	}
	var parsed struct {
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
		Slides   []struct {
			Title   string   `json:"title"`
			Content []string `json:"content"`
		} `json:"slides"`
	}
	slides := []office.Slide{{Title: "Overview", Content: []string{description}}}
	subtitle := "Generated by AleutianMoA"
	if err := parseOfficeJSON(raw, &parsed); err == nil && len(parsed.Slides) > 0 {
		if parsed.Title != "" {
			title = parsed.Title
		}
		if parsed.Subtitle != "" {
			subtitle = parsed.Subtitle
		}
		slides = slides[:0]
		for _, s := range parsed.Slides {
			slides = append(slides, office.Slide{Title: s.Title, Content: s.Content})
		}
	} else {
		w.logger.Warn("Presentation JSON unusable, using fallback content", "error", err)
	}
	return w.generator.CreatePresentation(title, subtitle, slides, outputDir)
}

func (w *OfficeWorker) createReport(ctx context.Context, description, title, outputDir string, opts Options) (office.Artifact, error) {
	raw, err := w.generate(ctx, description, "report", opts)
	if err != nil {
		return office.Artifact{}, err
	}
	var parsed struct {
		Title    string `json:"title"`
		Sections []struct {
			Heading string `json:"heading"`
			Content string `json:"content"`
		} `json:"sections"`
	}
	sections := []office.Section{{Heading: "Summary", Content: description}}
	if err := parseOfficeJSON(raw, &parsed); err == nil && len(parsed.Sections) > 0 {
		if parsed.Title != "" {
			title = parsed.Title
		}
		sections = sections[:0]
		for _, s := range parsed.Sections {
			sections = append(sections, office.Section{Heading: s.Heading, Content: s.Content})
		}
	} else {
		w.logger.Warn("Report JSON unusable, using fallback content", "error", err)
	}
	return w.generator.CreateReport(title, sections, outputDir)
}

func (w *OfficeWorker) createWorkbook(ctx context.Context, description, title, outputDir string, opts Options) (office.Artifact, error) {
	raw, err := w.generate(ctx, description, "workbook", opts)
	if err != nil {
		return office.Artifact{}, err
	}
	var parsed struct {
		SheetName string       `json:"sheet_name"`
		Data      []office.Row `json:"data"`
	}
	sheetName := title
	rows := []office.Row{{"item": description}}
	if err := parseOfficeJSON(raw, &parsed); err == nil && len(parsed.Data) > 0 {
		if parsed.SheetName != "" {
			sheetName = parsed.SheetName
		}
		rows = parsed.Data
	} else {
		w.logger.Warn("Workbook JSON unusable, using fallback content", "error", err)
	}
	return w.generator.CreateWorkbook(sheetName, rows, outputDir)
}

func (w *OfficeWorker) generate(ctx context.Context, description, kind string, opts Options) (string, error) {
	prompt := fmt.Sprintf("%s\n\nGoal: %s\n\nContext:\n%s\n\nTask: %s\n\nProduce the %s JSON now.",
		officeSystemPrompt, opts.UserGoal, opts.History, description, kind)
	maxTokens := 2048
	temp := float32(0.2)
	out, err := w.gateway.Generate(ctx, prompt, llm.GenerationParams{
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return "", fmt.Errorf("office generation: %w", err)
	}
	return out, nil
}

// documentKinds reports which document types the description asks for.
// No keyword match means the task is ambiguous and gets all three.
func documentKinds(description string) (ppt, report, workbook bool) {
	lower := strings.ToLower(description)
	for _, kw := range presentationKeywords {
		if strings.Contains(lower, kw) {
			ppt = true
			break
		}
	}
	for _, kw := range reportKeywords {
		if strings.Contains(lower, kw) {
			report = true
			break
		}
	}
	for _, kw := range workbookKeywords {
		if strings.Contains(lower, kw) {
			workbook = true
			break
		}
	}
	if !ppt && !report && !workbook {
		return true, true, true
	}
	return ppt, report, workbook
}

// outputDirFor extracts a target directory from the description. A "|"
// separator marks an explicit directory, otherwise a folder phrase is
// matched, otherwise everything lands under "output".
func outputDirFor(description string) string {
	if idx := strings.LastIndex(description, "|"); idx >= 0 {
		if dir := strings.TrimSpace(description[idx+1:]); dir != "" {
			return dir
		}
	}
	if m := folderPattern.FindStringSubmatch(description); m != nil {
		return m[1]
	}
	return "output"
}

// titleFor pulls the document title out of the description: the text
// after the first ":" up to any "|" separator.
func titleFor(description string) string {
	text := description
	if idx := strings.Index(text, "|"); idx >= 0 {
		text = text[:idx]
	}
	if idx := strings.Index(text, ":"); idx >= 0 {
		text = text[idx+1:]
	}
	title := strings.TrimSpace(text)
	if title == "" {
		title = "Generated Document"
	}
	return title
}

// parseOfficeJSON accepts either a fenced ```json block or a bare
// object and unmarshals the first brace-delimited slice it finds.
func parseOfficeJSON(raw string, out any) error {
	candidate := raw
	if m := jsonBlockPattern.FindStringSubmatch(raw); m != nil {
		candidate = m[1]
	}
	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in model output")
	}
	return json.Unmarshal([]byte(candidate[start:end+1]), out)
}
