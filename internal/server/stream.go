package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"rgbportal/internal/auth"
	"rgbportal/internal/domain"
	"rgbportal/internal/engine"
	"rgbportal/internal/notify"
)

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Event feed, newest first",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Limit         int    `query:"limit"`
		Cursor        int64  `query:"cursor"`
		Type          string `query:"type"`
		ApplicationID int64  `query:"application_id"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		if _, authErr := requireAdmin(ctx, e); authErr != nil {
			return nil, authErr
		}
		limit := input.Limit
		if limit <= 0 || limit > 500 {
			limit = 100
		}
		items, err := e.Repo.LatestEventsFrom(ctx, limit, input.Cursor, input.Type, input.ApplicationID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Event{}
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
}

// registerStream exposes the live notification feed over server-sent
// events. Applicants hear their own channel; admins hear their direct
// channel plus their role's queue.
func registerStream(router chi.Router, basePath string, e engine.Engine, hub *notify.Hub) {
	if hub == nil {
		return
	}
	router.Get(path.Join(basePath, "stream"), func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFromContext(r.Context())
		if !ok {
			respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			respondStatusError(w, newAPIError(http.StatusInternalServerError, "internal_error", "streaming unsupported", nil))
			return
		}

		var channels []string
		switch p.Kind {
		case auth.KindApplicant:
			channels = []string{notify.ApplicantChannel(p.ID)}
		case auth.KindAdmin:
			channels = []string{notify.AdminChannel(p.ID), notify.RoleChannel(p.Role)}
		default:
			respondStatusError(w, newAPIError(http.StatusForbidden, "forbidden", "unknown account kind", nil))
			return
		}

		merged := make(chan domain.Notification, 16)
		done := r.Context().Done()
		for _, channel := range channels {
			ch, cancel := hub.Subscribe(channel)
			defer cancel()
			go func(ch <-chan domain.Notification) {
				for {
					select {
					case n, ok := <-ch:
						if !ok {
							return
						}
						select {
						case merged <- n:
						case <-done:
							return
						}
					case <-done:
						return
					}
				}
			}(ch)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case n := <-merged:
				data, err := json.Marshal(n)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: notification\ndata: %s\n\n", data)
				flusher.Flush()
			case <-done:
				return
			}
		}
	})
}
