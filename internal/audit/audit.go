package audit

import (
	"context"
	"database/sql"
	"time"

	"rgbportal/internal/domain"
)

// Writer appends audit records inside the caller's transaction so a
// record lands iff the status change it describes commits.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, rec domain.AuditRecord) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	createdAt := rec.CreatedAt
	if createdAt == "" {
		createdAt = w.Now().UTC().Format(time.RFC3339)
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO audit_records(application_id,actor_id,from_status,to_status,comment,created_at) VALUES (?,?,?,?,?,?)`,
		rec.ApplicationID, rec.ActorID, nullableStatus(rec.FromStatus), nullableStatus(rec.ToStatus), rec.Comment, createdAt)
	return err
}

// ListFor returns an application's trail newest first, with actor names
// resolved for display.
func (w Writer) ListFor(ctx context.Context, applicationID int64) ([]domain.AuditRecord, error) {
	rows, err := w.DB.QueryContext(ctx, `
		SELECT r.id, r.application_id, r.actor_id, a.firstname || ' ' || a.lastname,
		       r.from_status, r.to_status, r.comment, r.created_at
		FROM audit_records r
		JOIN admins a ON a.id = r.actor_id
		WHERE r.application_id = ?
		ORDER BY r.created_at DESC, r.id DESC`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AuditRecord
	for rows.Next() {
		var rec domain.AuditRecord
		var from, to, comment sql.NullString
		if err := rows.Scan(&rec.ID, &rec.ApplicationID, &rec.ActorID, &rec.ActorName,
			&from, &to, &comment, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if from.Valid {
			st := domain.Status(from.String)
			rec.FromStatus = &st
		}
		if to.Valid {
			st := domain.Status(to.String)
			rec.ToStatus = &st
		}
		rec.Comment = comment.String
		res = append(res, rec)
	}
	return res, rows.Err()
}

func nullableStatus(s *domain.Status) any {
	if s == nil {
		return nil
	}
	return string(*s)
}
