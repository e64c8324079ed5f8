// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// DocumentChunkClassName is the Weaviate class holding ingested chunks.
const DocumentChunkClassName = "MoaDocumentChunk"

// WeaviateEngine is an Engine backed by a Weaviate instance with a
// text2vec module, giving semantic rather than lexical retrieval.
//
// # Thread Safety
//
// Safe for concurrent use; the Weaviate client is stateless per call.
type WeaviateEngine struct {
	client *weaviate.Client
	logger *slog.Logger
}

// NewWeaviateEngine wraps client and ensures the chunk class exists.
func NewWeaviateEngine(ctx context.Context, client *weaviate.Client,
	logger *slog.Logger) (*WeaviateEngine, error) {

	if logger == nil {
		logger = slog.Default()
	}
	e := &WeaviateEngine{client: client, logger: logger}
	if err := e.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *WeaviateEngine) ensureSchema(ctx context.Context) error {
	_, err := e.client.Schema().ClassGetter().
		WithClassName(DocumentChunkClassName).
		Do(ctx)
	if err == nil {
		return nil
	}

	class := &models.Class{
		Class:       DocumentChunkClassName,
		Description: "A chunk of an ingested reference document",
		Vectorizer:  "text2vec-transformers",
		Properties: []*models.Property{
			{Name: "chunkId", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "chunkIndex", DataType: []string{"int"}},
			{Name: "content", DataType: []string{"text"}},
		},
	}
	if err := e.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("creating %s class: %w", DocumentChunkClassName, err)
	}
	e.logger.Info("Created Weaviate class", "class", DocumentChunkClassName)
	return nil
}

// IngestFile implements the Engine interface.
func (e *WeaviateEngine) IngestFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return e.IngestText(ctx, path, string(data))
}

// IngestText implements the Engine interface.
func (e *WeaviateEngine) IngestText(ctx context.Context, source, text string) (int, error) {
	chunks, err := chunkText(source, text)
	if err != nil {
		return 0, err
	}
	for _, c := range chunks {
		_, err := e.client.Data().Creator().
			WithClassName(DocumentChunkClassName).
			WithProperties(map[string]any{
				"chunkId":    c.ID,
				"source":     c.Source,
				"chunkIndex": c.ChunkIndex,
				"content":    c.Content,
			}).
			Do(ctx)
		if err != nil {
			return 0, fmt.Errorf("storing chunk %s: %w", c.ID, err)
		}
	}
	e.logger.Info("Ingested document into Weaviate",
		"source", source, "chunks", len(chunks))
	return len(chunks), nil
}

// Query implements the Engine interface using nearText semantic search.
func (e *WeaviateEngine) Query(ctx context.Context, query string, limit int) (string, error) {
	if limit <= 0 {
		limit = 3
	}

	nearText := e.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	fields := []graphql.Field{
		{Name: "chunkId"},
		{Name: "source"},
		{Name: "content"},
	}

	result, err := e.client.GraphQL().Get().
		WithClassName(DocumentChunkClassName).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return "", fmt.Errorf("semantic search: %w", err)
	}
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("search error: %s", result.Errors[0].Message)
	}

	get, ok := result.Data["Get"].(map[string]any)
	if !ok {
		return "", nil
	}
	rows, ok := get[DocumentChunkClassName].([]any)
	if !ok || len(rows) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		props, ok := row.(map[string]any)
		if !ok {
			continue
		}
		if content, ok := props["content"].(string); ok && content != "" {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, "\n\n---\n"), nil
}

var _ Engine = (*WeaviateEngine)(nil)
