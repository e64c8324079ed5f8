// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability holds the orchestrator's Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/AleutianMoA/services/orchestrator/datatypes"
)

// =============================================================================
// Prometheus Metrics for the Orchestrator
// =============================================================================

var (
	// routeDecisions counts routing outcomes.
	// Labels: kind (DIRECT, TOOL, REASONER)
	routeDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aleutian_moa",
		Subsystem: "router",
		Name:      "decisions_total",
		Help:      "Total route decisions by kind",
	}, []string{"kind"})

	// taskOutcomes counts terminal task states.
	// Labels: agent (direct, tool, reasoner, research, writer, office),
	// status (COMPLETED, FAILED)
	taskOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aleutian_moa",
		Subsystem: "tasks",
		Name:      "outcomes_total",
		Help:      "Total terminal task outcomes by agent and status",
	}, []string{"agent", "status"})

	// toolInvocations counts tool dispatches.
	// Labels: tool, outcome (success, failure)
	toolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aleutian_moa",
		Subsystem: "tools",
		Name:      "invocations_total",
		Help:      "Total tool invocations by tool and outcome",
	}, []string{"tool", "outcome"})

	// toolLatency measures end-to-end tool dispatch time, repair
	// included.
	// Labels: tool
	toolLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "aleutian_moa",
		Subsystem: "tools",
		Name:      "latency_seconds",
		Help:      "Tool dispatch latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"tool"})
)

// RecordRoute counts one routing decision.
func RecordRoute(kind datatypes.RouteKind) {
	routeDecisions.WithLabelValues(string(kind)).Inc()
}

// RecordTask counts one terminal task outcome.
func RecordTask(agent datatypes.AgentType, status datatypes.TaskStatus) {
	taskOutcomes.WithLabelValues(string(agent), string(status)).Inc()
}

// RecordTool counts one tool dispatch and observes its latency.
func RecordTool(tool string, success bool, elapsed time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	toolInvocations.WithLabelValues(tool, outcome).Inc()
	toolLatency.WithLabelValues(tool).Observe(elapsed.Seconds())
}
