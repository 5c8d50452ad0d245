package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"warthug/internal/logger"
	"warthug/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
)

// WS streams the settled status document over a websocket. The client sends
// "status" text frames and receives the same document the status endpoint
// returns; the server also pushes one on connect.
func (h *Handler) WS(c *gin.Context) {
	// JWT from query
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}
	userID, err := service.ParseJWT(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	allowedOrigin := os.Getenv("ALLOWED_ORIGIN")
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", "error", err)
		return
	}

	go h.serveStatusSocket(conn, userID)
}

func (h *Handler) serveStatusSocket(conn *websocket.Conn, userID string) {
	defer conn.Close()

	ctx := context.Background()
	send := func() bool {
		st, err := h.Economy.MonitorStatus(ctx, userID)
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err != nil {
			return conn.WriteJSON(gin.H{"error": err.Error()}) == nil
		}
		return conn.WriteJSON(st) == nil
	}
	if !send() {
		return
	}

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	requests := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(msg) == "status" {
				select {
				case requests <- struct{}{}:
				default:
				}
			}
		}
	}()

	pings := time.NewTicker(wsPingPeriod)
	defer pings.Stop()

	for {
		select {
		case <-done:
			return
		case <-requests:
			if !send() {
				return
			}
		case <-pings.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
