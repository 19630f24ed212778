package handlers

import (
	"club-backend/internal/logger"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// ChatSocketHandler serves chat turns over a websocket. Each text frame is a
// ChatRequest; frames are processed one at a time and every frame gets exactly
// one reply, either a ChatResponse or an ErrorResponse.
func (ch *ChatHandlers) ChatSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(ch.config.AppConfig.Server.AllowedOrigins),
	})
	if err != nil {
		logger.Log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(MaxRequestBodyBytes)

	logger.Log.WithField("remote_addr", r.RemoteAddr).Info("Websocket client connected")
	ctx := r.Context()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				logger.Log.Debug("Websocket client disconnected")
			} else {
				logger.Log.WithError(err).Debug("Websocket read ended")
			}
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "text frames only")
			return
		}

		var req ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if err := wsjson.Write(ctx, conn, newErrorResponse(http.StatusBadRequest, "Invalid request body", err)); err != nil {
				return
			}
			continue
		}

		var reply any
		resp, status, err := ch.chat(r, req)
		if err != nil {
			if status >= http.StatusInternalServerError {
				logger.Log.WithError(err).Error("Error processing websocket message")
			}
			reply = newErrorResponse(status, "Error processing message", err)
		} else {
			reply = resp
		}

		if err := wsjson.Write(ctx, conn, reply); err != nil {
			logger.Log.WithError(err).Warn("Websocket write failed")
			return
		}
	}
}

// originPatterns converts CORS origins into the host patterns websocket.Accept checks
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, origin)
	}
	return patterns
}
