package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rgbportal/internal/domain"
)

func (r Repo) LatestEvents(ctx context.Context, limit int, evtType string, applicationID int64) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, evtType, applicationID)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor int64, evtType string, applicationID int64) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if applicationID > 0 {
		clauses = append(clauses, "application_id=?")
		args = append(args, applicationID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,application_id,actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id,ts,type,application_id,actor_id,payload_json FROM events WHERE id>? ORDER BY id ASC LIMIT ?`
	return r.queryEvents(ctx, query, cursor, limit)
}

// LatestEventID returns the most recent event ID, or zero for an empty feed.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var appID sql.NullInt64
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &appID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if appID.Valid {
			e.ApplicationID = appID.Int64
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
