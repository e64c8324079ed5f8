// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command moa-server starts the MoA orchestrator HTTP server.
//
// This is the entry point for the containerized deployment. A config
// file can be supplied via MOA_CONFIG; individual environment variables
// override it.
//
// # Environment Variables
//
//   - MOA_CONFIG: Path to a moa.yaml config file (optional)
//   - MOA_PORT: HTTP server port (default: 12310)
//   - MOA_WORKSPACE: Workspace root directory (default: ./workspace)
//   - LLM_BACKEND_TYPE: LLM provider - local, openai, mock (default: local)
//   - LLM_SERVICE_URL_BASE: llama.cpp server URL for the local backend
//   - WEAVIATE_SERVICE_URL: Weaviate vector DB URL (optional)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: localhost:4317)
//
// # Usage
//
//	go build -o moa-server ./cmd/moa-server
//	./moa-server
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/AleutianAI/AleutianMoA/pkg/config"
	"github.com/AleutianAI/AleutianMoA/services/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("MOA_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyEnvOverrides(&cfg)

	slog.Info("Starting moa-server",
		"port", cfg.Server.Port,
		"llm_backend", cfg.Backend.Type,
		"weaviate_url", cfg.RAG.WeaviateURL,
	)

	svc, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := svc.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// applyEnvOverrides lets container environments tweak a file-based
// config without editing the file.
func applyEnvOverrides(cfg *config.Config) {
	cfg.Server.Port = getEnvInt("MOA_PORT", cfg.Server.Port)
	cfg.Workspace.Root = getEnvString("MOA_WORKSPACE", cfg.Workspace.Root)
	cfg.Backend.Type = getEnvString("LLM_BACKEND_TYPE", cfg.Backend.Type)
	cfg.Backend.BaseURL = getEnvString("LLM_SERVICE_URL_BASE", cfg.Backend.BaseURL)
	cfg.RAG.WeaviateURL = getEnvString("WEAVIATE_SERVICE_URL", cfg.RAG.WeaviateURL)
	cfg.Server.OTelEndpoint = getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Server.OTelEndpoint)
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
