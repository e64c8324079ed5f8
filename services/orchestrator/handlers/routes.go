// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianMoA/services/orchestrator"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator/dashboard"
)

// SetupRoutes registers all HTTP routes on the given router.
func SetupRoutes(router *gin.Engine, orch *orchestrator.Orchestrator, hub *dashboard.Hub) {
	router.GET("/healthz", HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws/tasks", HandleTaskSocket(hub))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/run", HandleRun(orch))
	}
}
