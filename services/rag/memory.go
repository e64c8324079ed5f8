// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

// MemoryEngine is an in-process Engine used when no Weaviate instance is
// configured. Retrieval is lexical (token overlap), which is enough for
// small personal document sets and keeps the system usable offline.
type MemoryEngine struct {
	mu     sync.RWMutex
	chunks map[string]Chunk
	logger *slog.Logger
}

// NewMemoryEngine creates an empty in-memory engine.
func NewMemoryEngine(logger *slog.Logger) *MemoryEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryEngine{chunks: make(map[string]Chunk), logger: logger}
}

// IngestFile implements the Engine interface.
func (e *MemoryEngine) IngestFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return e.IngestText(ctx, path, string(data))
}

// IngestText implements the Engine interface.
func (e *MemoryEngine) IngestText(_ context.Context, source, text string) (int, error) {
	chunks, err := chunkText(source, text)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	for _, c := range chunks {
		e.chunks[c.ID] = c
	}
	e.mu.Unlock()
	e.logger.Info("Ingested document into memory engine",
		"source", source, "chunks", len(chunks))
	return len(chunks), nil
}

// Query implements the Engine interface. Chunks are scored by the number
// of distinct query tokens they contain; ties break toward earlier chunks
// to keep results deterministic.
func (e *MemoryEngine) Query(_ context.Context, query string, limit int) (string, error) {
	if limit <= 0 {
		limit = 3
	}
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return "", nil
	}

	type scored struct {
		chunk Chunk
		score int
	}
	e.mu.RLock()
	candidates := make([]scored, 0, len(e.chunks))
	for _, c := range e.chunks {
		lower := strings.ToLower(c.Content)
		score := 0
		for token := range tokens {
			if strings.Contains(lower, token) {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{chunk: c, score: score})
		}
	}
	e.mu.RUnlock()

	if len(candidates) == 0 {
		return "", nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].chunk.Source != candidates[j].chunk.Source {
			return candidates[i].chunk.Source < candidates[j].chunk.Source
		}
		return candidates[i].chunk.ChunkIndex < candidates[j].chunk.ChunkIndex
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = c.chunk.Content
	}
	return strings.Join(parts, "\n\n---\n"), nil
}

// Len returns the number of stored chunks.
func (e *MemoryEngine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.chunks)
}

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,!?\"'()[]{}:;")
		if len(f) >= 2 {
			out[f] = struct{}{}
		}
	}
	return out
}

var _ Engine = (*MemoryEngine)(nil)
