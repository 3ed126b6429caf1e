package ui

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// handleEvents streams a run's progress as Server-Sent Events for the
// run page. Connections ping every 30 seconds to survive proxies.
func (a *App) handleEvents(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "run_id parameter required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	channel := a.hub.Subscribe(runID)
	if channel == nil {
		http.Error(w, "event hub registration failed", http.StatusServiceUnavailable)
		return
	}
	defer a.hub.Unsubscribe(runID, channel)

	ctx := r.Context()
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case event, open := <-channel:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("[handleEvents] Failed to marshal event: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: run\ndata: %s\n\n", payload)
			flusher.Flush()

		case <-ping.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\": %q}\n\n", time.Now().Format(time.RFC3339))
			flusher.Flush()

		case <-ctx.Done():
			return
		}
	}
}
