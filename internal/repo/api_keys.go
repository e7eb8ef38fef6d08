package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"

	"rgbportal/internal/domain"
)

// HashAPIKey returns the hex sha256 digest stored in place of the raw key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

const apiKeyColumns = `id,admin_id,name,key_hash,created_at,last_used_at`

func scanAPIKey(scan func(dest ...any) error) (domain.APIKey, error) {
	var k domain.APIKey
	var lastUsed sql.NullString
	err := scan(&k.ID, &k.AdminID, &k.Name, &k.KeyHash, &k.CreatedAt, &lastUsed)
	if err == sql.ErrNoRows {
		return k, ErrNotFound
	}
	if err != nil {
		return k, err
	}
	if lastUsed.Valid {
		k.LastUsedAt = &lastUsed.String
	}
	return k, nil
}

func (r Repo) InsertAPIKey(ctx context.Context, k domain.APIKey) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO api_keys(id,admin_id,name,key_hash,created_at,last_used_at) VALUES (?,?,?,?,?,?)`,
		k.ID, k.AdminID, k.Name, k.KeyHash, k.CreatedAt, nullableStringPtr(k.LastUsedAt))
	return err
}

func (r Repo) GetAPIKeyByHash(ctx context.Context, hash string) (domain.APIKey, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash=?`, hash)
	return scanAPIKey(row.Scan)
}

func (r Repo) ListAPIKeys(ctx context.Context, adminID int64) ([]domain.APIKey, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE admin_id=? ORDER BY created_at DESC`, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, k)
	}
	return res, rows.Err()
}

func (r Repo) TouchAPIKey(ctx context.Context, id, usedAt string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE api_keys SET last_used_at=? WHERE id=?`, usedAt, id)
	return err
}

func (r Repo) DeleteAPIKey(ctx context.Context, id string, adminID int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM api_keys WHERE id=? AND admin_id=?`, id, adminID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
