// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package office turns structured document content into workspace
// artifacts: presentations, reports, and workbooks.
package office

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianMoA/pkg/workspace"
)

// Slide is one presentation slide.
type Slide struct {
	Title   string   `json:"title"`
	Content []string `json:"content"`
}

// Section is one report section.
type Section struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

// Row is one workbook row: column name to cell value.
type Row map[string]any

// Artifact describes a produced document.
type Artifact struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Generator produces office documents from structured content.
type Generator interface {
	CreatePresentation(title, subtitle string, slides []Slide, outputDir string) (Artifact, error)
	CreateReport(title string, sections []Section, outputDir string) (Artifact, error)
	CreateWorkbook(sheetName string, rows []Row, outputDir string) (Artifact, error)
}

// FileGenerator renders documents as markdown with a JSON sidecar that
// downstream converters pick up for binary formats.
type FileGenerator struct {
	workspace *workspace.Workspace
	logger    *slog.Logger
}

func NewFileGenerator(ws *workspace.Workspace, logger *slog.Logger) *FileGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileGenerator{workspace: ws, logger: logger}
}

var _ Generator = (*FileGenerator)(nil)

func (g *FileGenerator) CreatePresentation(title, subtitle string, slides []Slide, outputDir string) (Artifact, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n_%s_\n", title, subtitle)
	for i, slide := range slides {
		fmt.Fprintf(&b, "\n---\n\n## Slide %d: %s\n\n", i+1, slide.Title)
		for _, bullet := range slide.Content {
			fmt.Fprintf(&b, "- %s\n", bullet)
		}
	}

	target := path.Join(outputDir, "presentation.md")
	if err := g.emit(target, b.String(), map[string]any{
		"title": title, "subtitle": subtitle, "slides": slides,
	}); err != nil {
		return Artifact{}, err
	}
	g.logger.Info("Presentation created", "path", target, "slides", len(slides))
	return Artifact{Path: target, Kind: "presentation",
		Message: fmt.Sprintf("Created presentation with %d slides", len(slides))}, nil
}

func (g *FileGenerator) CreateReport(title string, sections []Section, outputDir string) (Artifact, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)
	for _, section := range sections {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", section.Heading, section.Content)
	}

	target := path.Join(outputDir, "report.md")
	if err := g.emit(target, b.String(), map[string]any{
		"title": title, "sections": sections,
	}); err != nil {
		return Artifact{}, err
	}
	g.logger.Info("Report created", "path", target, "sections", len(sections))
	return Artifact{Path: target, Kind: "report",
		Message: fmt.Sprintf("Created report with %d sections", len(sections))}, nil
}

func (g *FileGenerator) CreateWorkbook(sheetName string, rows []Row, outputDir string) (Artifact, error) {
	target := path.Join(outputDir, "data.csv")

	var b strings.Builder
	columns := columnOrder(rows)
	b.WriteString(strings.Join(columns, ",") + "\n")
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = csvEscape(fmt.Sprintf("%v", row[col]))
		}
		b.WriteString(strings.Join(cells, ",") + "\n")
	}

	if err := g.emit(target, b.String(), map[string]any{
		"sheet_name": sheetName, "data": rows,
	}); err != nil {
		return Artifact{}, err
	}
	g.logger.Info("Workbook created", "path", target, "rows", len(rows))
	return Artifact{Path: target, Kind: "workbook",
		Message: fmt.Sprintf("Created workbook %q with %d rows", sheetName, len(rows))}, nil
}

// emit writes the rendered document plus its structured JSON sidecar.
func (g *FileGenerator) emit(target, rendered string, structured map[string]any) error {
	if err := g.workspace.Write(target, rendered); err != nil {
		return err
	}
	sidecar, err := json.MarshalIndent(structured, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sidecar for %q: %w", target, err)
	}
	return g.workspace.Write(target+".json", string(sidecar))
}

// columnOrder returns the union of row keys, first-seen order first,
// so the header is stable for identical inputs.
func columnOrder(rows []Row) []string {
	var columns []string
	seen := map[string]bool{}
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for key := range row {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	return columns
}

func csvEscape(cell string) string {
	if strings.ContainsAny(cell, ",\"\n") {
		return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
	}
	return cell
}
