// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEngineIngestAndQuery(t *testing.T) {
	e := NewMemoryEngine(nil)
	ctx := context.Background()

	n, err := e.IngestText(ctx, "notes.md",
		"# Deployment\n\nThe service deploys with podman compose.\n\n# Backups\n\nBackups run nightly to the NAS.")
	require.NoError(t, err)
	require.Greater(t, n, 0)

	out, err := e.Query(ctx, "how do backups work", 3)
	require.NoError(t, err)
	assert.Contains(t, out, "Backups run nightly")
}

func TestMemoryEngineQueryNoMatch(t *testing.T) {
	e := NewMemoryEngine(nil)
	_, err := e.IngestText(context.Background(), "a.txt", "completely unrelated content")
	require.NoError(t, err)

	out, err := e.Query(context.Background(), "quantum chromodynamics", 3)
	require.NoError(t, err)
	assert.Empty(t, out, "no-match query must return empty context, not an error")
}

func TestMemoryEngineReingestOverwrites(t *testing.T) {
	e := NewMemoryEngine(nil)
	ctx := context.Background()

	_, err := e.IngestText(ctx, "doc.txt", "version one of the content")
	require.NoError(t, err)
	before := e.Len()

	_, err = e.IngestText(ctx, "doc.txt", "version two of the content")
	require.NoError(t, err)
	assert.Equal(t, before, e.Len(), "same source must overwrite, not duplicate")
}

func TestMemoryEngineIngestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("annual revenue grew by ten percent"), 0o644))

	e := NewMemoryEngine(nil)
	n, err := e.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	out, err := e.Query(context.Background(), "revenue growth", 3)
	require.NoError(t, err)
	assert.Contains(t, out, "revenue")
}

func TestChunkTextStableIDs(t *testing.T) {
	first, err := chunkText("same.md", "content body")
	require.NoError(t, err)
	second, err := chunkText("same.md", "content body")
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	assert.Equal(t, first[0].ID, second[0].ID)

	other, err := chunkText("other.md", "content body")
	require.NoError(t, err)
	assert.NotEqual(t, first[0].ID, other[0].ID)
}

func TestChunkTextLongDocument(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("This is a reasonably long paragraph about topic number ")
		sb.WriteString(strings.Repeat("x", i))
		sb.WriteString(".\n\n")
	}
	chunks, err := chunkText("long.txt", sb.String())
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1, "long documents must split into multiple chunks")
	for _, c := range chunks {
		assert.Equal(t, "long.txt", c.Source)
	}
}

func TestWatcherIngestsOnWrite(t *testing.T) {
	dir := t.TempDir()
	e := NewMemoryEngine(nil)
	w, err := NewWatcher(dir, e, 50*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	path := filepath.Join(dir, "dropped.md")
	require.NoError(t, os.WriteFile(path, []byte("watched document content"), 0o644))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if e.Len() > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	assert.Greater(t, e.Len(), 0, "watcher should have ingested the new file")

	cancel()
	<-done
}

func TestWatcherSkipsHiddenAndUnknownFiles(t *testing.T) {
	w := &Watcher{}
	assert.False(t, w.shouldIngest("/tmp/.hidden.md"))
	assert.False(t, w.shouldIngest("/tmp/file.bin"))
	assert.False(t, w.shouldIngest("/tmp/file.md~"))
	assert.True(t, w.shouldIngest("/tmp/notes.md"))
	assert.True(t, w.shouldIngest("/tmp/data.CSV"))
}
