// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package rag provides document ingestion and retrieval for grounding
// worker answers in user-supplied material.
package rag

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	chunkSize    = 500
	chunkOverlap = 50
)

var (
	defaultSeparators = []string{"\n\n", "\n", " ", ""}
	markdownSeparators = []string{
		"\n# ", "\n## ", "\n### ", "\n#### ", "\n##### ", "\n###### ",
		"\n\n", "\n", " ", "",
	}
	codeSeparators = []string{
		"\nfunction ", "\nclass ", "\ndef ", "\nfunc", "\ntype",
		"\n\n", "\n", " ", "",
	}
)

// Chunk is one retrievable unit of an ingested document.
type Chunk struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
}

// Engine is the retrieval contract consumed by the orchestrator.
//
// Query returns the top matching chunks joined into a single context
// string separated by "\n\n---\n", or "" when nothing relevant exists.
// An empty context means the caller should proceed without grounding,
// not fail.
type Engine interface {
	IngestFile(ctx context.Context, path string) (int, error)
	IngestText(ctx context.Context, source, text string) (int, error)
	Query(ctx context.Context, query string, limit int) (string, error)
}

// splitterForFile picks separators by extension so chunks break at
// headers and declarations instead of mid-sentence.
func splitterForFile(filename string) textsplitter.TextSplitter {
	ext := filepath.Ext(filename)
	switch ext {
	case ".md", ".markdown":
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(markdownSeparators),
		)
	case ".py", ".js", ".ts", ".go", ".java", ".c", ".cpp", ".rs":
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(codeSeparators),
		)
	default:
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(defaultSeparators),
		)
	}
}

// chunkText splits text into Chunks with stable IDs derived from the
// source path, so re-ingesting a file overwrites rather than duplicates.
func chunkText(source, text string) ([]Chunk, error) {
	splitter := splitterForFile(source)
	parts, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting %s: %w", source, err)
	}
	sum := md5.Sum([]byte(source))
	prefix := hex.EncodeToString(sum[:])[:8]
	chunks := make([]Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, Chunk{
			ID:         fmt.Sprintf("%s_%d", prefix, i),
			Source:     filepath.Base(source),
			ChunkIndex: i,
			Content:    part,
		})
	}
	return chunks, nil
}
