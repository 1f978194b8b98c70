package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"hireline/internal/engine"
	"hireline/internal/engine/auth"
	"hireline/internal/notify"
)

// registerNotificationStream exposes the notification hub as a server-sent
// event feed. Delivery is fire-and-forget: a client that stops reading has
// its events dropped by the hub rather than blocking the pipeline.
func registerNotificationStream(r chi.Router, basePath string, e engine.Engine, hub *notify.Hub) {
	r.Get(path.Join(basePath, "notifications/stream"), func(w http.ResponseWriter, req *http.Request) {
		if err := requirePermission(req.Context(), e, auth.PermEventsRead); err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			respondStatusError(w, newAPIError(http.StatusInternalServerError, "", "streaming unsupported", nil))
			return
		}

		ch, cancel := hub.Subscribe(16)
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-req.Context().Done():
				return
			case evt, open := <-ch:
				if !open {
					return
				}
				data, err := json.Marshal(evt)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
				flusher.Flush()
			}
		}
	})
}
