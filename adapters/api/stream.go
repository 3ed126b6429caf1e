package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// handleStream streams run progress events as Server-Sent Events.
// Connections are pinged every 30 seconds to stay alive through proxies.
func (s *Server) handleStream(c *gin.Context) {
	runID := c.Query("run_id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id parameter required"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	channel := s.hub.Subscribe(runID)
	if channel == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event hub registration failed"})
		return
	}
	defer s.hub.Unsubscribe(runID, channel)

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-channel:
			if !ok {
				return false
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("[API] Failed to marshal event: %v", err)
				return true
			}
			c.SSEvent("run", string(payload))
			return true

		case <-time.After(30 * time.Second):
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			return false
		}
	})
}
