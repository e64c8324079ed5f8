// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/AleutianMoA/services/orchestrator/dashboard"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleTaskSocket upgrades the connection and subscribes it to task
// lifecycle updates. The server never expects messages from the client;
// the read loop exists only to detect the peer going away.
func HandleTaskSocket(hub *dashboard.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}

		hub.Subscribe(ws)
		defer func() {
			hub.Unsubscribe(ws)
			ws.Close()
		}()

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}
}
