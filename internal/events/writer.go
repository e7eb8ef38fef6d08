package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types emitted by the engine.
const (
	TypeApplicationCreated = "application.created"
	TypeApplicationUpdated = "application.updated"
	TypeStatusChanged      = "application.status_changed"
	TypeCertificateIssued  = "application.certificate_issued"
	TypeCommentAdded       = "application.comment_added"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append writes one feed row inside the caller's transaction.
// applicationID of zero means the event is not bound to an application.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType string, applicationID int64, actorID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,application_id,actor_id,payload_json) VALUES (?,?,?,?,?)`,
		ts, evtType, nullableID(applicationID), actorID, string(data))
	return err
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
