package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"traffic-count-api/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveWebSocket streams committed ledger writes to the dashboard. Frames
// come straight off the Redis channel the command handlers publish to.
func LiveWebSocket(cache *services.CacheService, auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := c.Cookie(userCookie)
		magic, _ := c.Cookie(magicCookie)
		if auth.Validate(user, magic) == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("websocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// Read pump: detect client disconnect
		go func() {
			defer cancel()
			for {
				_, _, err := conn.ReadMessage()
				if err != nil {
					return
				}
			}
		}()

		pubsub := cache.Subscribe(ctx, liveChannel)
		if pubsub == nil {
			_ = conn.WriteJSON(gin.H{"type": "error", "text": "live feed unavailable"})
			return
		}
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				err := conn.WriteJSON(gin.H{
					"type": "observation",
					"data": msg.Payload,
				})
				if err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			}
		}
	}
}
