package server

import (
	"log"
	"strconv"

	"arcanum/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketEngagementHandler upgrades the connection and joins the client to
// the content's engagement room. The stream carries vote counters and reply
// structure only, so anonymous viewers may subscribe too.
func (s *Server) WebSocketEngagementHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		idParam, _ := conn.Locals("contentID").(string)
		contentID, err := strconv.ParseUint(idParam, 10, 32)
		if err != nil || contentID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid content id"}`))
			_ = conn.Close()
			return
		}

		if s.hub == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"realtime stream unavailable"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uint(contentID), conn)
		if err != nil {
			log.Printf("WebSocket: failed to register for content %d: %v", contentID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if !s.flags.Enabled("live_engagement", middleware.Identity(c)) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "live engagement stream is not enabled",
			})
		}
		// Params are not readable after the upgrade; stash them in locals.
		c.Locals("contentID", c.Params("id"))
		return upgrade(c)
	}
}
