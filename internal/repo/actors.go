package repo

import (
	"context"
	"database/sql"

	"rgbportal/internal/domain"
)

const applicantColumns = `id,email,password_hash,firstname,lastname,phonenumber,enabled,created_at,updated_at`

func scanApplicant(scan func(dest ...any) error) (domain.Applicant, error) {
	var a domain.Applicant
	err := scan(&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
		&a.PhoneNumber, &a.Enabled, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (r Repo) InsertApplicant(ctx context.Context, a domain.Applicant) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO applicants(email,password_hash,firstname,lastname,phonenumber,enabled,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		a.Email, a.PasswordHash, a.FirstName, a.LastName, a.PhoneNumber, a.Enabled, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetApplicant(ctx context.Context, id int64) (domain.Applicant, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+applicantColumns+` FROM applicants WHERE id=?`, id)
	return scanApplicant(row.Scan)
}

func (r Repo) GetApplicantByEmail(ctx context.Context, email string) (domain.Applicant, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+applicantColumns+` FROM applicants WHERE email=?`, email)
	return scanApplicant(row.Scan)
}

func (r Repo) ListEnabledApplicants(ctx context.Context) ([]domain.Applicant, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+applicantColumns+` FROM applicants WHERE enabled=1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Applicant
	for rows.Next() {
		a, err := scanApplicant(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

const adminColumns = `id,email,password_hash,firstname,lastname,phonenumber,role,enabled,created_at,updated_at`

func scanAdmin(scan func(dest ...any) error) (domain.Admin, error) {
	var a domain.Admin
	var role string
	err := scan(&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
		&a.PhoneNumber, &role, &a.Enabled, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	a.Role = domain.Role(role)
	return a, err
}

func (r Repo) InsertAdmin(ctx context.Context, a domain.Admin) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO admins(email,password_hash,firstname,lastname,phonenumber,role,enabled,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		a.Email, a.PasswordHash, a.FirstName, a.LastName, a.PhoneNumber, string(a.Role), a.Enabled, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetAdmin(ctx context.Context, id int64) (domain.Admin, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE id=?`, id)
	return scanAdmin(row.Scan)
}

func (r Repo) GetAdminByEmail(ctx context.Context, email string) (domain.Admin, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE email=?`, email)
	return scanAdmin(row.Scan)
}

func (r Repo) ListAdmins(ctx context.Context) ([]domain.Admin, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Admin
	for rows.Next() {
		a, err := scanAdmin(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// ListEnabledAdminsByRole returns the enabled members of one role, used
// for handoff notification fanout.
func (r Repo) ListEnabledAdminsByRole(ctx context.Context, role domain.Role) ([]domain.Admin, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE role=? AND enabled=1 ORDER BY id`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Admin
	for rows.Next() {
		a, err := scanAdmin(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) ListEnabledAdmins(ctx context.Context) ([]domain.Admin, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE enabled=1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Admin
	for rows.Next() {
		a, err := scanAdmin(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) UpdateAdmin(ctx context.Context, a domain.Admin) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE admins SET email=?, firstname=?, lastname=?, phonenumber=?, role=?, enabled=?, updated_at=? WHERE id=?`,
		a.Email, a.FirstName, a.LastName, a.PhoneNumber, string(a.Role), a.Enabled, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM admins`).Scan(&n)
	return n, err
}
