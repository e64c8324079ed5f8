// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package workspace sandboxes agent file access to one root directory.
//
// Every path is resolved and checked against the root before any read
// or write, and action names carrying destructive verbs are refused.
// Workers never touch the filesystem except through this type.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// dangerousActions is matched against ACTION names (not file contents).
// A hit refuses the action outright.
var dangerousActions = []string{
	"delete", "remove", "rm", "rmdir", "unlink",
	"format", "drop", "truncate", "overwrite",
}

// Workspace is a sandboxed directory tree.
type Workspace struct {
	root string
}

// New resolves and creates the sandbox root.
func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Workspace{root: abs}, nil
}

// Root returns the absolute sandbox root.
func (w *Workspace) Root() string { return w.root }

// ValidatePath resolves name inside the sandbox and rejects traversal
// out of it. The returned path is absolute.
func (w *Workspace) ValidatePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty path")
	}
	target := filepath.Clean(filepath.Join(w.root, name))
	if target != w.root && !strings.HasPrefix(target, w.root+string(filepath.Separator)) {
		return "", fmt.Errorf("access denied: path %q is outside the workspace", name)
	}
	return target, nil
}

// CheckAction refuses destructive action names and, when a target is
// given, validates it against the sandbox.
func (w *Workspace) CheckAction(action, targetPath string) error {
	lower := strings.ToLower(action)
	for _, danger := range dangerousActions {
		if strings.Contains(lower, danger) {
			return fmt.Errorf("dangerous action %q refused (matched %q)", action, danger)
		}
	}
	if targetPath != "" {
		if _, err := w.ValidatePath(targetPath); err != nil {
			return err
		}
	}
	return nil
}

// List returns workspace-relative file paths. With recursive false only
// the top level is listed.
func (w *Workspace) List(recursive bool) ([]string, error) {
	var files []string
	if !recursive {
		entries, err := os.ReadDir(w.root)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				files = append(files, entry.Name())
			}
		}
		return files, nil
	}

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return relErr
		}
		files = append(files, rel)
		return nil
	})
	return files, err
}

// Read returns the file's content as text.
func (w *Workspace) Read(name string) (string, error) {
	target, err := w.ValidatePath(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", name, err)
	}
	return string(data), nil
}

// Write creates or replaces a file, creating parent directories as
// needed.
func (w *Workspace) Write(name, content string) error {
	target, err := w.ValidatePath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create parent dirs for %q: %w", name, err)
	}
	if err := os.WriteFile(target, []byte(content), 0o640); err != nil {
		return fmt.Errorf("write %q: %w", name, err)
	}
	return nil
}

// ContextDescription summarizes the workspace for model prompts. At
// most 20 files are listed.
func (w *Workspace) ContextDescription() string {
	files, err := w.List(true)
	if err != nil {
		return fmt.Sprintf("Current Workspace: %s (unreadable: %v)", w.root, err)
	}

	const maxListed = 20
	var b strings.Builder
	fmt.Fprintf(&b, "Current Workspace: %s\nFiles:\n", w.root)
	for i, f := range files {
		if i == maxListed {
			fmt.Fprintf(&b, "... (and %d more)\n", len(files)-maxListed)
			break
		}
		fmt.Fprintf(&b, "- %s\n", f)
	}
	return b.String()
}
