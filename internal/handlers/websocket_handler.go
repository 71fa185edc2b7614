package handlers

import (
	"log"
	"os"

	"github.com/gofiber/websocket/v2"
	"github.com/noteduco342/moim-backend/internal/handlers/ws"
	"github.com/noteduco342/moim-backend/internal/middleware"
)

type WebSocketHandler struct {
	hub     *ws.Hub
	sources *ws.Sources
}

func NewWebSocketHandler(sources *ws.Sources) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     ws.NewHub(),
		sources: sources,
	}
}

// GetHub returns the hub instance
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID, _ := c.Locals(middleware.LocalUserID).(string)
	if userID == "" {
		c.Close()
		return
	}
	wsDebug := os.Getenv("WS_DEBUG") == "true"

	// Check if client supports gzip compression (via query param or header)
	supportsGzip := c.Query("gzip") == "1" || c.Headers("X-Supports-Gzip") == "1"

	session := h.hub.Register(userID, c, supportsGzip)
	defer h.hub.Unregister(session)

	ctx := &ws.MessageContext{
		UserID:  userID,
		Session: session,
		Hub:     h.hub,
		Sources: h.sources,
	}

	for {
		messageType, messageBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read failed user=%s session=%s err=%v", userID, session.ID, err)
			}
			break
		}

		if wsDebug {
			log.Printf("ws_recv user_id=%s frame_type=%d size=%d", userID, messageType, len(messageBytes))
		}

		// Binary frames are gzip compressed
		if messageType == websocket.BinaryMessage {
			decompressed, err := ws.DecompressMessage(messageBytes)
			if err != nil {
				ws.SendError(session, "decompression_failed", "Failed to decompress message", err.Error())
				continue
			}
			messageBytes = decompressed
		}

		msg, err := ws.Deserialize(messageBytes)
		if err != nil {
			ws.SendError(session, "invalid_message", "Invalid message format", err.Error())
			continue
		}

		if err := msg.Process(ctx); err != nil {
			log.Printf("ws process failed type=%s user=%s err=%v", msg.GetType(), userID, err)
			ws.SendError(session, "processing_failed", "Failed to process message", err.Error())
		}
	}
}
