// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/PStryder/InterView/pkg/logging"
	"github.com/PStryder/InterView/services/interview/middleware"
	"github.com/PStryder/InterView/services/interview/stream"
)

var upgrader = websocket.Upgrader{
	// Cross-origin policy is enforced by the CORS middleware and the API
	// key check; the upgrade itself accepts any origin.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 16 * 1024,
}

// Stream serves GET /v1/stream: upgrades the connection and feeds it live
// audit events until the client disconnects or falls behind.
func Stream(hub *stream.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Auth middleware has already verified the key and stored AuthInfo.
		subject := "anonymous"
		if info := middleware.GetAuthInfo(c); info != nil {
			subject = info.Subject
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logging.Default().Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		logging.Default().Debug("Stream subscriber attached", "subject", subject)
		if err := hub.Serve(c.Request.Context(), ws); err != nil {
			logging.Default().Debug("Stream client left", "error", err.Error(), "subject", subject)
		}
	}
}
