// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package dashboard streams task lifecycle events to websocket
// subscribers. The terminal dashboard that renders them lives outside
// this repository; this package only defines the wire contract and the
// fan-out.
package dashboard

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/AleutianAI/AleutianMoA/services/orchestrator/datatypes"
)

// TaskUpdate is one lifecycle event on the wire.
type TaskUpdate struct {
	TaskID  string `json:"task_id"`
	Agent   string `json:"agent"`
	Status  string `json:"status"`
	Summary string `json:"summary,omitempty"`
}

// Hub fans task updates out to every connected subscriber. A
// subscriber whose write fails is dropped; a slow dashboard must never
// stall the orchestrator.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*websocket.Conn]struct{}
	logger      *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[*websocket.Conn]struct{}),
		logger:      logger,
	}
}

// Subscribe registers conn for updates. The caller keeps ownership of
// the read side; the hub only writes.
func (h *Hub) Subscribe(conn *websocket.Conn) {
	h.mu.Lock()
	h.subscribers[conn] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()
	h.logger.Info("Dashboard subscriber connected", "subscribers", count)
}

// Unsubscribe removes conn without closing it.
func (h *Hub) Unsubscribe(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.subscribers, conn)
	h.mu.Unlock()
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Broadcast sends update to every subscriber, dropping any connection
// whose write fails.
func (h *Hub) Broadcast(update TaskUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.subscribers {
		if err := conn.WriteJSON(update); err != nil {
			h.logger.Warn("Dropping dashboard subscriber", "error", err)
			delete(h.subscribers, conn)
			_ = conn.Close()
		}
	}
}

// NotifyTask adapts task lifecycle notifications to the wire format.
func (h *Hub) NotifyTask(id string, agent datatypes.AgentType,
	status datatypes.TaskStatus, summary string) {

	h.Broadcast(TaskUpdate{
		TaskID:  id,
		Agent:   string(agent),
		Status:  string(status),
		Summary: summary,
	})
}
