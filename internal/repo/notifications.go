package repo

import (
	"context"
	"database/sql"
	"strings"

	"rgbportal/internal/domain"
)

const notificationColumns = `id,applicant_id,admin_id,application_id,category,title,message,is_read,created_at,read_at`

func scanNotification(scan func(dest ...any) error) (domain.Notification, error) {
	var n domain.Notification
	var applicantID, adminID, applicationID sql.NullInt64
	var category string
	var readAt sql.NullString
	err := scan(&n.ID, &applicantID, &adminID, &applicationID, &category,
		&n.Title, &n.Message, &n.IsRead, &n.CreatedAt, &readAt)
	if err == sql.ErrNoRows {
		return n, ErrNotFound
	}
	if err != nil {
		return n, err
	}
	n.Category = domain.NotificationCategory(category)
	if applicantID.Valid {
		n.ApplicantID = &applicantID.Int64
	}
	if adminID.Valid {
		n.AdminID = &adminID.Int64
	}
	if applicationID.Valid {
		n.ApplicationID = &applicationID.Int64
	}
	if readAt.Valid {
		n.ReadAt = &readAt.String
	}
	return n, nil
}

func (r Repo) InsertNotification(ctx context.Context, n domain.Notification) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO notifications(id,applicant_id,admin_id,application_id,category,title,message,is_read,created_at,read_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		n.ID, nullableInt64Ptr(n.ApplicantID), nullableInt64Ptr(n.AdminID), nullableInt64Ptr(n.ApplicationID),
		string(n.Category), n.Title, n.Message, n.IsRead, n.CreatedAt, nullableStringPtr(n.ReadAt))
	return err
}

func (r Repo) GetNotification(ctx context.Context, id string) (domain.Notification, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id=?`, id)
	return scanNotification(row.Scan)
}

// NotificationFilters selects one recipient's notifications; exactly one
// of ApplicantID/AdminID must be set.
type NotificationFilters struct {
	ApplicantID     int64
	AdminID         int64
	UnreadOnly      bool
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListNotifications(ctx context.Context, f NotificationFilters) ([]domain.Notification, error) {
	var clauses []string
	var args []any
	if f.ApplicantID != 0 {
		clauses = append(clauses, "applicant_id=?")
		args = append(args, f.ApplicantID)
	}
	if f.AdminID != 0 {
		clauses = append(clauses, "admin_id=?")
		args = append(args, f.AdminID)
	}
	if f.UnreadOnly {
		clauses = append(clauses, "is_read=0")
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r Repo) MarkNotificationRead(ctx context.Context, id, readAt string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET is_read=1, read_at=? WHERE id=?`, readAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) MarkAllNotificationsRead(ctx context.Context, f NotificationFilters, readAt string) (int64, error) {
	var clause string
	var arg any
	switch {
	case f.ApplicantID != 0:
		clause, arg = "applicant_id=?", f.ApplicantID
	case f.AdminID != 0:
		clause, arg = "admin_id=?", f.AdminID
	default:
		return 0, nil
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET is_read=1, read_at=? WHERE `+clause+` AND is_read=0`, readAt, arg)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r Repo) DeleteNotification(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM notifications WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountUnreadNotifications(ctx context.Context, f NotificationFilters) (int, error) {
	var clause string
	var arg any
	switch {
	case f.ApplicantID != 0:
		clause, arg = "applicant_id=?", f.ApplicantID
	case f.AdminID != 0:
		clause, arg = "admin_id=?", f.AdminID
	default:
		return 0, nil
	}
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM notifications WHERE `+clause+` AND is_read=0`, arg).Scan(&n)
	return n, err
}
