package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"rgbportal/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var (
	ErrNotFound = errors.New("not found")
	// ErrStatusConflict: the conditional status update matched no row
	// because another actor already advanced the application.
	ErrStatusConflict = errors.New("application status changed concurrently")
)

const applicationColumns = `id,applicant_id,processed_by_id,organization_name,acronym,district,organization_email,organization_phone,status,submitted_at,last_modified,certificate_number,certificate_issued_at`

func scanApplication(scan func(dest ...any) error) (domain.Application, error) {
	var a domain.Application
	var processedBy sql.NullInt64
	var acronym, certNumber, certIssuedAt sql.NullString
	var status string
	err := scan(&a.ID, &a.ApplicantID, &processedBy, &a.OrganizationName, &acronym,
		&a.District, &a.OrganizationEmail, &a.OrganizationPhone, &status,
		&a.SubmittedAt, &a.LastModified, &certNumber, &certIssuedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.Status = domain.Status(status)
	if processedBy.Valid {
		a.ProcessedByID = &processedBy.Int64
	}
	if acronym.Valid {
		a.Acronym = acronym.String
	}
	if certNumber.Valid {
		a.CertificateNumber = &certNumber.String
	}
	if certIssuedAt.Valid {
		a.CertificateIssuedAt = &certIssuedAt.String
	}
	return a, nil
}

func (r Repo) InsertApplication(ctx context.Context, tx *sql.Tx, a domain.Application) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO applications(applicant_id,organization_name,acronym,district,organization_email,organization_phone,status,submitted_at,last_modified) VALUES (?,?,?,?,?,?,?,?,?)`,
		a.ApplicantID, a.OrganizationName, nullable(a.Acronym), a.District,
		a.OrganizationEmail, a.OrganizationPhone, string(a.Status), a.SubmittedAt, a.LastModified)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetApplication(ctx context.Context, id int64) (domain.Application, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id=?`, id)
	return scanApplication(row.Scan)
}

func (r Repo) GetApplicationTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Application, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id=?`, id)
	return scanApplication(row.Scan)
}

// GetApplicationByCertificate looks an application up by its certificate number.
func (r Repo) GetApplicationByCertificate(ctx context.Context, certNumber string) (domain.Application, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE certificate_number=?`, certNumber)
	return scanApplication(row.Scan)
}

// ConditionalSaveStatus applies the workflow mutation only if the row still
// carries the status observed at validation time. Zero rows affected means
// another actor won the race.
func (r Repo) ConditionalSaveStatus(ctx context.Context, tx *sql.Tx, a domain.Application, expectedPrior domain.Status) error {
	res, err := tx.ExecContext(ctx, `UPDATE applications SET status=?, processed_by_id=?, last_modified=?, certificate_number=?, certificate_issued_at=? WHERE id=? AND status=?`,
		string(a.Status), nullableInt64Ptr(a.ProcessedByID), a.LastModified,
		nullableStringPtr(a.CertificateNumber), nullableStringPtr(a.CertificateIssuedAt),
		a.ID, string(expectedPrior))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStatusConflict
	}
	return nil
}

// UpdateApplicationDetails applies applicant-side edits.
func (r Repo) UpdateApplicationDetails(ctx context.Context, tx *sql.Tx, a domain.Application) error {
	res, err := tx.ExecContext(ctx, `UPDATE applications SET organization_name=?, acronym=?, district=?, organization_email=?, organization_phone=?, status=?, last_modified=? WHERE id=?`,
		a.OrganizationName, nullable(a.Acronym), a.District, a.OrganizationEmail,
		a.OrganizationPhone, string(a.Status), a.LastModified, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type ApplicationFilters struct {
	Statuses        []domain.Status
	ApplicantID     int64
	Limit           int
	CursorSubmitted string
	CursorID        int64
}

func (r Repo) ListApplications(ctx context.Context, f ApplicationFilters) ([]domain.Application, error) {
	var clauses []string
	var args []any
	if len(f.Statuses) > 0 {
		placeholders := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		clauses = append(clauses, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if f.ApplicantID != 0 {
		clauses = append(clauses, "applicant_id=?")
		args = append(args, f.ApplicantID)
	}
	if f.CursorSubmitted != "" && f.CursorID != 0 {
		clauses = append(clauses, "(submitted_at < ? OR (submitted_at = ? AND id < ?))")
		args = append(args, f.CursorSubmitted, f.CursorSubmitted, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + applicationColumns + ` FROM applications ` + where + ` ORDER BY submitted_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// CountApplicationsByStatus returns counts for the given statuses only.
func (r Repo) CountApplicationsByStatus(ctx context.Context, statuses []domain.Status) (map[domain.Status]int, error) {
	res := map[domain.Status]int{}
	if len(statuses) == 0 {
		return res, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		placeholders[i] = "?"
		args[i] = string(s)
	}
	query := fmt.Sprintf(`SELECT status, count(*) FROM applications WHERE status IN (%s) GROUP BY status`, strings.Join(placeholders, ","))
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[domain.Status(status)] = count
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
