// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the Gin HTTP handlers for the MoA server.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianMoA/services/orchestrator"
)

var tracer = otel.Tracer("aleutian.moa.handlers")

// RunRequest is the body of POST /api/v1/run.
type RunRequest struct {
	Goal string `json:"goal" binding:"required"`
}

// RunResponse carries the formatted reply for a completed run.
type RunResponse struct {
	Reply     string `json:"reply"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// HandleRun executes a single orchestrator run for the posted goal.
func HandleRun(orch *orchestrator.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleRun")
		defer span.End()

		var req RunRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		start := time.Now()
		reply, err := orch.Run(ctx, req.Goal)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Orchestrator run failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, RunResponse{
			Reply:     reply,
			ElapsedMS: time.Since(start).Milliseconds(),
		})
	}
}

// HealthCheck reports liveness for container probes.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
