// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ingestableExtensions limits auto-ingest to text-like documents.
var ingestableExtensions = map[string]bool{
	".md": true, ".markdown": true, ".txt": true,
	".py": true, ".go": true, ".js": true, ".ts": true,
	".json": true, ".yaml": true, ".yml": true, ".csv": true,
}

// Watcher auto-ingests documents dropped into a watched directory.
//
// # Description
//
// Editors produce bursts of filesystem events for a single save, so
// events are debounced per path: ingestion runs only after a path has
// been quiet for the debounce window. Ingestion errors are logged, not
// fatal; a bad file must not stop the watcher.
type Watcher struct {
	engine   Engine
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher watches dir (non-recursive) and ingests changed files into
// engine. A zero debounce defaults to 2 seconds.
func NewWatcher(dir string, engine Engine, debounce time.Duration,
	logger *slog.Logger) (*Watcher, error) {

	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{engine: engine, watcher: fsw, logger: logger, debounce: debounce}, nil
}

// Run processes events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.shouldIngest(event.Name) {
				continue
			}
			pending[event.Name] = time.Now()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", "error", err)
		case <-ticker.C:
			now := time.Now()
			for path, last := range pending {
				if now.Sub(last) < w.debounce {
					continue
				}
				delete(pending, path)
				chunks, err := w.engine.IngestFile(ctx, path)
				if err != nil {
					w.logger.Warn("Auto-ingest failed", "path", path, "error", err)
					continue
				}
				w.logger.Info("Auto-ingested document", "path", path, "chunks", chunks)
			}
		}
	}
}

func (w *Watcher) shouldIngest(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return ingestableExtensions[strings.ToLower(filepath.Ext(base))]
}
