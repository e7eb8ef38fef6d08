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

func registerAuth(api huma.API, e engine.Engine, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID:   "signup",
		Method:        http.MethodPost,
		Path:          "/auth/signup",
		Summary:       "Register applicant account",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body SignupRequest `json:"body"`
	}) (*struct {
		Body TokenResponse `json:"body"`
	}, error) {
		req := input.Body
		if req.Email == "" || req.FirstName == "" || req.LastName == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "email, firstname and lastname are required", nil)
		}
		if _, err := e.Repo.GetApplicantByEmail(ctx, req.Email); err == nil {
			return nil, newAPIError(http.StatusConflict, "email_taken", "an account with this email already exists", nil)
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, handleError(err)
		}
		now := e.Now().UTC().Format(time.RFC3339)
		applicant := domain.Applicant{
			Email:        req.Email,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			PhoneNumber:  req.PhoneNumber,
			Enabled:      true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		applicant.ID, err = e.Repo.InsertApplicant(ctx, applicant)
		if err != nil {
			return nil, handleError(err)
		}
		token, err := issueToken(authCfg, applicant.ID, auth.KindApplicant, "", e.Now())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TokenResponse `json:"body"`
		}{Body: TokenResponse{Token: token, Kind: string(auth.KindApplicant), ID: applicant.ID}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in as applicant or admin",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body TokenResponse `json:"body"`
	}, error) {
		req := input.Body
		kind := auth.Kind(req.Kind)
		if kind == "" {
			kind = auth.KindApplicant
		}
		invalid := newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid email or password", nil)
		switch kind {
		case auth.KindApplicant:
			a, err := e.Repo.GetApplicantByEmail(ctx, req.Email)
			if err != nil || !auth.CheckPassword(a.PasswordHash, req.Password) {
				return nil, invalid
			}
			if !a.Enabled {
				return nil, newAPIError(http.StatusForbidden, "account_disabled", "account is disabled", nil)
			}
			token, err := issueToken(authCfg, a.ID, auth.KindApplicant, "", e.Now())
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body TokenResponse `json:"body"`
			}{Body: TokenResponse{Token: token, Kind: string(kind), ID: a.ID}}, nil
		case auth.KindAdmin:
			a, err := e.Repo.GetAdminByEmail(ctx, req.Email)
			if err != nil || !auth.CheckPassword(a.PasswordHash, req.Password) {
				return nil, invalid
			}
			if !a.Enabled {
				return nil, newAPIError(http.StatusForbidden, "account_disabled", "account is disabled", nil)
			}
			token, err := issueToken(authCfg, a.ID, auth.KindAdmin, a.Role, e.Now())
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body TokenResponse `json:"body"`
			}{Body: TokenResponse{Token: token, Kind: string(kind), ID: a.ID, Role: string(a.Role)}}, nil
		default:
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "kind must be applicant or admin", nil)
		}
	})
}

func issueToken(cfg AuthConfig, id int64, kind auth.Kind, role domain.Role, now time.Time) (string, error) {
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return auth.IssueToken(cfg.JWTSecret, id, kind, role, ttl, now)
}

// canManageAdmins: only the top two roles administer accounts, and only
// the CEO may mint accounts at those top roles.
func canManageAdmins(actor domain.Admin, targetRole domain.Role) bool {
	switch actor.Role {
	case domain.RoleCEO:
		return true
	case domain.RoleSecretaryGeneral:
		return targetRole != domain.RoleCEO && targetRole != domain.RoleSecretaryGeneral
	default:
		return false
	}
}

func registerAdmins(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-admin",
		Method:        http.MethodPost,
		Path:          "/admins",
		Summary:       "Create admin account",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateAdminRequest `json:"body"`
	}) (*struct {
		Body AdminResponse `json:"body"`
	}, error) {
		actor, authErr := requireAdmin(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		role, err := domain.ParseRole(input.Body.Role)
		if err != nil {
			return nil, handleError(err)
		}
		if !canManageAdmins(actor, role) {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "insufficient role to create this account", nil)
		}
		if _, err := e.Repo.GetAdminByEmail(ctx, input.Body.Email); err == nil {
			return nil, newAPIError(http.StatusConflict, "email_taken", "an account with this email already exists", nil)
		}
		hash, err := auth.HashPassword(input.Body.Password)
		if err != nil {
			return nil, handleError(err)
		}
		now := e.Now().UTC().Format(time.RFC3339)
		admin := domain.Admin{
			Email:        input.Body.Email,
			PasswordHash: hash,
			FirstName:    input.Body.FirstName,
			LastName:     input.Body.LastName,
			PhoneNumber:  input.Body.PhoneNumber,
			Role:         role,
			Enabled:      true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		admin.ID, err = e.Repo.InsertAdmin(ctx, admin)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AdminResponse `json:"body"`
		}{Body: adminResponse(admin)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-admins",
		Method:      http.MethodGet,
		Path:        "/admins",
		Summary:     "List admin accounts",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []AdminResponse `json:"body"`
	}, error) {
		actor, authErr := requireAdmin(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		if actor.Role != domain.RoleCEO && actor.Role != domain.RoleSecretaryGeneral {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "insufficient role to list accounts", nil)
		}
		items, err := e.Repo.ListAdmins(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []AdminResponse `json:"body"`
		}{Body: mapAdmins(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-admin-enabled",
		Method:      http.MethodPatch,
		Path:        "/admins/{admin_id}",
		Summary:     "Enable or disable an admin account",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		AdminID int64 `path:"admin_id"`
		Body    struct {
			Enabled bool `json:"enabled"`
		} `json:"body"`
	}) (*struct {
		Body AdminResponse `json:"body"`
	}, error) {
		actor, authErr := requireAdmin(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		target, err := e.Repo.GetAdmin(ctx, input.AdminID)
		if err != nil {
			return nil, handleError(err)
		}
		if !canManageAdmins(actor, target.Role) {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "insufficient role to manage this account", nil)
		}
		if target.ID == actor.ID && !input.Body.Enabled {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "cannot disable own account", nil)
		}
		target.Enabled = input.Body.Enabled
		target.UpdatedAt = e.Now().UTC().Format(time.RFC3339)
		if err := e.Repo.UpdateAdmin(ctx, target); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AdminResponse `json:"body"`
		}{Body: adminResponse(target)}, nil
	})
}

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/api-keys",
		Summary:       "Create API key",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body"`
	}) (*struct {
		Body APIKeyResponse `json:"body"`
	}, error) {
		actor, authErr := requireAdmin(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		raw := uuid.NewString()
		key := domain.APIKey{
			ID:        uuid.NewString(),
			AdminID:   actor.ID,
			Name:      input.Body.Name,
			KeyHash:   repo.HashAPIKey(raw),
			CreatedAt: e.Now().UTC().Format(time.RFC3339),
		}
		if err := e.Repo.InsertAPIKey(ctx, key); err != nil {
			return nil, handleError(err)
		}
		// The raw key is shown once at creation and never stored.
		return &struct {
			Body APIKeyResponse `json:"body"`
		}{Body: APIKeyResponse{ID: key.ID, Name: key.Name, Key: raw, CreatedAt: key.CreatedAt}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/api-keys",
		Summary:     "List own API keys",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []APIKeyResponse `json:"body"`
	}, error) {
		actor, authErr := requireAdmin(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListAPIKeys(ctx, actor.ID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]APIKeyResponse, 0, len(items))
		for _, k := range items {
			res = append(res, APIKeyResponse{ID: k.ID, Name: k.Name, CreatedAt: k.CreatedAt, LastUsedAt: k.LastUsedAt})
		}
		return &struct {
			Body []APIKeyResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-api-key",
		Method:      http.MethodDelete,
		Path:        "/api-keys/{key_id}",
		Summary:     "Delete API key",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		KeyID string `path:"key_id"`
	}) (*struct{}, error) {
		actor, authErr := requireAdmin(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteAPIKey(ctx, input.KeyID, actor.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
