package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tutorgoat/tutorgoat-backend/api/middleware"
	"github.com/tutorgoat/tutorgoat-backend/api/responses"
	"github.com/tutorgoat/tutorgoat-backend/internal/realtime"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
)

const defaultKeepAlive = 25 * time.Second

type EventHub interface {
	Register(adminID uuid.UUID) *realtime.Client
	Unregister(clientID string)
}

// AdminEvents streams realtime admin events as Server-Sent Events until the
// client disconnects.
func AdminEvents(hub EventHub, keepAlive time.Duration, logg *logger.Logger) http.HandlerFunc {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if hub == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "realtime hub unavailable"))
			return
		}

		rc := http.NewResponseController(w)
		// the server write timeout would otherwise cut long-lived streams
		_ = rc.SetWriteDeadline(time.Time{})

		client := hub.Register(middleware.AdminIDFromContext(ctx))
		defer hub.Unregister(client.ID)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		if _, err := fmt.Fprintf(w, "event: connected\ndata: {\"client_id\":%q}\n\n", client.ID); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			if logg != nil {
				logg.Error(ctx, "events.flush_unsupported", err)
			}
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
					return
				}
			case event, ok := <-client.Events:
				if !ok {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
					return
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
