// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package translation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// CachedTranslator wraps a Translator with a persistent translation
// memory backed by Badger.
//
// # Description
//
// The web endpoint rate limits and adds latency, and orchestration
// re-translates many identical strings (tool names, section headers,
// repeated prompts). Entries are keyed by sha256(src|dest|text) and
// expire after the configured TTL so corrections at the endpoint
// eventually propagate.
//
// # Thread Safety
//
// Safe for concurrent use; Badger transactions handle locking.
type CachedTranslator struct {
	inner  Translator
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedTranslator opens (or creates) the translation memory at dir.
// A zero ttl defaults to 30 days.
func NewCachedTranslator(inner Translator, dir string, ttl time.Duration,
	logger *slog.Logger) (*CachedTranslator, error) {

	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening translation cache at %s: %w", dir, err)
	}
	return &CachedTranslator{inner: inner, db: db, ttl: ttl, logger: logger}, nil
}

// Translate implements the Translator interface with read-through caching.
// Cache failures fall back to the inner translator; a broken cache must
// never break translation.
func (c *CachedTranslator) Translate(ctx context.Context, text, src, dest string) (string, error) {
	key := cacheKey(text, src, dest)

	var cached string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			cached = string(val)
			return nil
		})
	})
	if err == nil {
		c.logger.Debug("Translation cache hit", "src", src, "dest", dest)
		return cached, nil
	}

	translated, err := c.inner.Translate(ctx, text, src, dest)
	if err != nil {
		return "", err
	}

	if err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, []byte(translated)).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	}); err != nil {
		c.logger.Warn("Failed to store translation in cache", "error", err)
	}
	return translated, nil
}

// Close releases the underlying Badger database.
func (c *CachedTranslator) Close() error {
	return c.db.Close()
}

func cacheKey(text, src, dest string) []byte {
	sum := sha256.Sum256([]byte(src + "|" + dest + "|" + text))
	return []byte("tm:" + hex.EncodeToString(sum[:]))
}

var _ Translator = (*CachedTranslator)(nil)
