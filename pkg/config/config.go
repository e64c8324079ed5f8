// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the MoA YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the root of the moa.yaml configuration file. The zero value
// is usable: every field has a default applied by Load.
type Config struct {
	Backend     Backend     `yaml:"backend"`
	Workspace   Workspace   `yaml:"workspace"`
	Tools       Tools       `yaml:"tools"`
	Runner      Runner      `yaml:"runner"`
	Translation Translation `yaml:"translation"`
	RAG         RAG         `yaml:"rag"`
	Server      Server      `yaml:"server"`
	Logging     Logging     `yaml:"logging"`
}

// Backend selects the language model provider.
type Backend struct {
	// Type is the provider kind. "local" talks to a llama.cpp server,
	// "openai" to any OpenAI-compatible endpoint, "mock" replays canned
	// responses for offline dry runs.
	Type    string `yaml:"type" validate:"required,oneof=local openai mock"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	// ReasonerBaseURL points at a second llama.cpp server loaded with a
	// code/math model. Empty means reasoning tasks use the main model.
	ReasonerBaseURL string `yaml:"reasoner_base_url" validate:"omitempty,url"`
}

// Workspace bounds all file access for workers and auto-save.
type Workspace struct {
	Root string `yaml:"root" validate:"required"`
}

// Tools configures the deterministic tool executor.
type Tools struct {
	Shell          string `yaml:"shell"`
	WeatherBaseURL string `yaml:"weather_base_url" validate:"omitempty,url"`
	SearchBaseURL  string `yaml:"search_base_url" validate:"omitempty,url"`
	WikiBaseURL    string `yaml:"wiki_base_url"`
}

// Runner bounds parallel task execution.
type Runner struct {
	MaxWorkers         int `yaml:"max_workers" validate:"gte=0,lte=64"`
	TaskTimeoutSeconds int `yaml:"task_timeout_seconds" validate:"gte=0,lte=3600"`
}

// TaskTimeout returns the configured per-task timeout as a duration.
func (r Runner) TaskTimeout() time.Duration {
	return time.Duration(r.TaskTimeoutSeconds) * time.Second
}

// Translation controls the inbound/outbound translation wrapper.
type Translation struct {
	Enabled  bool   `yaml:"enabled"`
	CacheDir string `yaml:"cache_dir"`
}

// RAG selects the retrieval backend. With a Weaviate URL the vector
// store is used; otherwise an in-memory lexical engine serves queries.
type RAG struct {
	WeaviateURL string `yaml:"weaviate_url" validate:"omitempty,url"`
	WatchDir    string `yaml:"watch_dir"`
}

// Server configures the HTTP server binary.
type Server struct {
	Port         int    `yaml:"port" validate:"gte=0,lte=65535"`
	OTelEndpoint string `yaml:"otel_endpoint"`
}

// Logging configures structured log output.
type Logging struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Backend.Type == "" {
		c.Backend.Type = "local"
	}
	if c.Workspace.Root == "" {
		c.Workspace.Root = "./workspace"
	}
	if c.Runner.MaxWorkers == 0 {
		c.Runner.MaxWorkers = 4
	}
	if c.Runner.TaskTimeoutSeconds == 0 {
		c.Runner.TaskTimeoutSeconds = 60
	}
	if c.Server.Port == 0 {
		c.Server.Port = 12310
	}
	if c.Server.OTelEndpoint == "" {
		c.Server.OTelEndpoint = "localhost:4317"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Load reads, defaults, and validates a YAML config file. An empty path
// returns Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
