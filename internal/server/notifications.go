package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"rgbportal/internal/auth"
	"rgbportal/internal/domain"
	"rgbportal/internal/engine"
	"rgbportal/internal/repo"
)

type SendNotificationRequest struct {
	ApplicantID   int64  `json:"applicant_id"`
	ApplicationID *int64 `json:"application_id,omitempty"`
	Category      string `json:"category" enum:"STATUS_CHANGE,DOCUMENT_REQUEST,APPROVAL,REJECTION,REMINDER,CERTIFICATE_READY"`
	Title         string `json:"title"`
	Message       string `json:"message"`
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

type MarkAllResponse struct {
	Updated int64 `json:"updated"`
}

// recipientFilters builds the caller-scoped filter or fails with 401.
func recipientFilters(ctx context.Context) (repo.NotificationFilters, huma.StatusError) {
	p, ok := principalFromContext(ctx)
	if !ok {
		return repo.NotificationFilters{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
	}
	switch p.Kind {
	case auth.KindApplicant:
		return repo.NotificationFilters{ApplicantID: p.ID}, nil
	case auth.KindAdmin:
		return repo.NotificationFilters{AdminID: p.ID}, nil
	}
	return repo.NotificationFilters{}, newAPIError(http.StatusForbidden, "forbidden", "unknown account kind", nil)
}

// ownsNotification reports whether the principal is the recipient.
func ownsNotification(p Principal, n domain.Notification) bool {
	switch p.Kind {
	case auth.KindApplicant:
		return n.ApplicantID != nil && *n.ApplicantID == p.ID
	case auth.KindAdmin:
		return n.AdminID != nil && *n.AdminID == p.ID
	}
	return false
}

func registerNotifications(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "List own notifications",
	}, func(ctx context.Context, input *struct {
		UnreadOnly      bool   `query:"unread_only"`
		Limit           int    `query:"limit"`
		CursorCreatedAt string `query:"cursor_created_at"`
		CursorID        string `query:"cursor_id"`
	}) (*struct {
		Body []domain.Notification `json:"body"`
	}, error) {
		filters, authErr := recipientFilters(ctx)
		if authErr != nil {
			return nil, authErr
		}
		filters.UnreadOnly = input.UnreadOnly
		filters.Limit = input.Limit
		if filters.Limit <= 0 || filters.Limit > 200 {
			filters.Limit = defaultPageLimit
		}
		filters.CursorCreatedAt = input.CursorCreatedAt
		filters.CursorID = input.CursorID
		items, err := e.Repo.ListNotifications(ctx, filters)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Notification{}
		}
		return &struct {
			Body []domain.Notification `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unread-notification-count",
		Method:      http.MethodGet,
		Path:        "/notifications/unread",
		Summary:     "Count own unread notifications",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body UnreadCountResponse `json:"body"`
	}, error) {
		filters, authErr := recipientFilters(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := e.Repo.CountUnreadNotifications(ctx, filters)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body UnreadCountResponse `json:"body"`
		}{Body: UnreadCountResponse{Unread: n}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mark-notification-read",
		Method:      http.MethodPost,
		Path:        "/notifications/{notification_id}/read",
		Summary:     "Mark a notification read",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		NotificationID string `path:"notification_id"`
	}) (*struct {
		Body domain.Notification `json:"body"`
	}, error) {
		p, ok := principalFromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		n, err := e.Repo.GetNotification(ctx, input.NotificationID)
		if err != nil {
			return nil, handleError(err)
		}
		if !ownsNotification(p, n) {
			return nil, newAPIError(http.StatusNotFound, "not_found", "notification not found", nil)
		}
		readAt := e.Now().UTC().Format(time.RFC3339)
		if err := e.Repo.MarkNotificationRead(ctx, n.ID, readAt); err != nil {
			return nil, handleError(err)
		}
		n.IsRead = true
		n.ReadAt = &readAt
		return &struct {
			Body domain.Notification `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mark-all-notifications-read",
		Method:      http.MethodPost,
		Path:        "/notifications/read-all",
		Summary:     "Mark all own notifications read",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body MarkAllResponse `json:"body"`
	}, error) {
		filters, authErr := recipientFilters(ctx)
		if authErr != nil {
			return nil, authErr
		}
		updated, err := e.Repo.MarkAllNotificationsRead(ctx, filters, e.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MarkAllResponse `json:"body"`
		}{Body: MarkAllResponse{Updated: updated}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-notification",
		Method:      http.MethodDelete,
		Path:        "/notifications/{notification_id}",
		Summary:     "Delete a notification",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		NotificationID string `path:"notification_id"`
	}) (*struct{}, error) {
		p, ok := principalFromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		n, err := e.Repo.GetNotification(ctx, input.NotificationID)
		if err != nil {
			return nil, handleError(err)
		}
		if !ownsNotification(p, n) {
			return nil, newAPIError(http.StatusNotFound, "not_found", "notification not found", nil)
		}
		if err := e.Repo.DeleteNotification(ctx, n.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "send-notification",
		Method:        http.MethodPost,
		Path:          "/notifications",
		Summary:       "Send a notification to an applicant",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body SendNotificationRequest `json:"body"`
	}) (*struct {
		Body domain.Notification `json:"body"`
	}, error) {
		admin, authErr := requireAdmin(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		if !admin.Enabled {
			return nil, handleError(engine.ErrActorDisabled)
		}
		category, err := domain.ParseNotificationCategory(input.Body.Category)
		if err != nil {
			return nil, handleError(err)
		}
		if input.Body.Title == "" || input.Body.Message == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title and message are required", nil)
		}
		applicant, err := e.Repo.GetApplicant(ctx, input.Body.ApplicantID)
		if err != nil {
			return nil, handleError(err)
		}
		applicantID := applicant.ID
		n := domain.Notification{
			ID:            uuid.NewString(),
			ApplicantID:   &applicantID,
			ApplicationID: input.Body.ApplicationID,
			Category:      category,
			Title:         input.Body.Title,
			Message:       input.Body.Message,
			CreatedAt:     e.Now().UTC().Format(time.RFC3339),
		}
		if warnings := e.Notify.Dispatch(ctx, []domain.Notification{n}); len(warnings) > 0 {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", warnings[0], nil)
		}
		return &struct {
			Body domain.Notification `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "broadcast-notification",
		Method:      http.MethodPost,
		Path:        "/notifications/broadcast",
		Summary:     "Broadcast to all accounts",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body BroadcastRequest `json:"body"`
	}) (*struct {
		Body BroadcastResponse `json:"body"`
	}, error) {
		admin, authErr := requireAdmin(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		category := domain.CategoryReminder
		if input.Body.Category != "" {
			parsed, err := domain.ParseNotificationCategory(input.Body.Category)
			if err != nil {
				return nil, handleError(err)
			}
			category = parsed
		}
		out, err := e.Broadcast(ctx, admin, category, input.Body.Title, input.Body.Message)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body BroadcastResponse `json:"body"`
		}{Body: BroadcastResponse{Sent: len(out.Notifications), Warnings: out.Warnings}}, nil
	})
}
