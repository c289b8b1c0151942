package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const streamWriteTimeout = 5 * time.Second

func (s *server) handleAlertStream(c *gin.Context) {
	_, err := s.validateToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newWSClient(conn, streamWriteTimeout)
	s.hub.register(client)
	log.Debug("alert stream client connected", "remote", c.Request.RemoteAddr)

	go func() {
		defer func() {
			s.hub.unregister(client)
			client.Close()
		}()

		// the stream is one way, reading only detects the closed connection
		for {
			if _, _, errRead := conn.ReadMessage(); errRead != nil {
				return
			}
		}
	}()
}
