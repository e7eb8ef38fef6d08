// Package app wires startup concerns that sit outside the request path.
package app

import (
	"context"
	"fmt"
	"time"

	"rgbportal/internal/auth"
	"rgbportal/internal/domain"
	"rgbportal/internal/engine"
)

// SeedInitialAdmin creates the first CEO account from config when the
// admin table is empty. Without it a fresh install has nobody able to
// create reviewer accounts.
func SeedInitialAdmin(ctx context.Context, e engine.Engine) (bool, error) {
	if e.Config == nil || e.Config.Bootstrap.CEOEmail == "" {
		return false, nil
	}
	count, err := e.Repo.CountAdmins(ctx)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	hash, err := auth.HashPassword(e.Config.Bootstrap.CEOPassword)
	if err != nil {
		return false, fmt.Errorf("bootstrap ceo password: %w", err)
	}
	now := e.Now().UTC().Format(time.RFC3339)
	admin := domain.Admin{
		Email:        e.Config.Bootstrap.CEOEmail,
		PasswordHash: hash,
		FirstName:    "Chief",
		LastName:     "Executive",
		Role:         domain.RoleCEO,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := e.Repo.InsertAdmin(ctx, admin); err != nil {
		return false, fmt.Errorf("insert bootstrap admin: %w", err)
	}
	return true, nil
}
