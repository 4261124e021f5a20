package user

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"leafsense_back_end/internal/cache"
)

const pingInterval = 30 * time.Second

// newUpgrader accepts connections from the configured frontend origins.
func newUpgrader(allowed []string) websocket.Upgrader {
	set := map[string]bool{}
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = true
	}
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || set["*"] || set[origin]
		},
	}
}

// OrderUpdates streams the status events of the user's orders.
//
// GET /api/ws/orders
func (h *OrderHandler) OrderUpdates(c *gin.Context) {
	userID := c.GetUint("user_id")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := h.cache.Subscribe(ctx, cache.OrderChannel(userID))
	if pubsub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live updates are unavailable"})
		return
	}
	defer pubsub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	// The reader only notices the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(gin.H{"type": "connected", "message": "order updates enabled"}); err != nil {
		return
	}

	ch := pubsub.Channel()
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Printf("❌ WebSocket send: %v", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
