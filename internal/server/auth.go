package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"rgbportal/internal/auth"
	"rgbportal/internal/domain"
	"rgbportal/internal/engine"
	"rgbportal/internal/repo"
)

type AuthConfig struct {
	JWTSecret     string
	TokenTTLHours int
}

// Principal is the authenticated caller. Role is set for admins only.
type Principal struct {
	ID     int64
	Kind   auth.Kind
	Role   domain.Role
	Source string
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// requireApplicant loads the calling applicant's current record so
// handlers see fresh enabled state, not the token snapshot.
func requireApplicant(ctx context.Context, e engine.Engine) (domain.Applicant, huma.StatusError) {
	p, ok := principalFromContext(ctx)
	if !ok || p.Kind != auth.KindApplicant {
		return domain.Applicant{}, newAPIError(http.StatusForbidden, "forbidden", "applicant account required", nil)
	}
	a, err := e.Repo.GetApplicant(ctx, p.ID)
	if err != nil {
		return domain.Applicant{}, newAPIError(http.StatusUnauthorized, "unauthorized", "account not found", nil)
	}
	return a, nil
}

func requireAdmin(ctx context.Context, e engine.Engine) (domain.Admin, huma.StatusError) {
	p, ok := principalFromContext(ctx)
	if !ok || p.Kind != auth.KindAdmin {
		return domain.Admin{}, newAPIError(http.StatusForbidden, "forbidden", "admin account required", nil)
	}
	a, err := e.Repo.GetAdmin(ctx, p.ID)
	if err != nil {
		return domain.Admin{}, newAPIError(http.StatusUnauthorized, "unauthorized", "account not found", nil)
	}
	return a, nil
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func authenticateAPIKey(ctx context.Context, r repo.Repo, key string) (Principal, error) {
	hash := repo.HashAPIKey(key)
	apiKey, err := r.GetAPIKeyByHash(ctx, hash)
	if err != nil {
		return Principal{}, err
	}
	admin, err := r.GetAdmin(ctx, apiKey.AdminID)
	if err != nil {
		return Principal{}, err
	}
	// Usage tracking only; a failed touch must not reject the request.
	_ = r.TouchAPIKey(ctx, apiKey.ID, time.Now().UTC().Format(time.RFC3339))
	return Principal{ID: admin.ID, Kind: auth.KindAdmin, Role: admin.Role, Source: "api_key"}, nil
}

func publicPaths(basePath string) map[string]struct{} {
	return map[string]struct{}{
		path.Join(basePath, "health"):       {},
		path.Join(basePath, "auth/login"):   {},
		path.Join(basePath, "auth/signup"):  {},
		path.Join(basePath, "openapi.json"): {},
		path.Join(basePath, "openapi.yaml"): {},
	}
}

func newAuthMiddleware(basePath string, cfg AuthConfig, r repo.Repo) func(http.Handler) http.Handler {
	public := publicPaths(basePath)
	verifyPrefix := path.Join(basePath, "certificates") + "/"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// Only enforce for API base path.
			if basePath != "" && !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			if _, ok := public[req.URL.Path]; ok {
				next.ServeHTTP(w, req)
				return
			}
			// Certificate verification is a public lookup.
			if strings.HasPrefix(req.URL.Path, verifyPrefix) && req.Method == http.MethodGet {
				next.ServeHTTP(w, req)
				return
			}

			authz := strings.TrimSpace(req.Header.Get("Authorization"))
			apiKeyHeader := strings.TrimSpace(req.Header.Get("X-Api-Key"))

			if authz != "" {
				token, ok := bearerToken(authz)
				if !ok {
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				identity, err := auth.VerifyToken(cfg.JWTSecret, token)
				if err != nil {
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				p := Principal{ID: identity.ID, Kind: identity.Kind, Role: identity.Role, Source: "jwt"}
				next.ServeHTTP(w, req.WithContext(withPrincipal(req.Context(), p)))
				return
			}

			if apiKeyHeader != "" {
				principal, err := authenticateAPIKey(req.Context(), r, apiKeyHeader)
				if err != nil {
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				next.ServeHTTP(w, req.WithContext(withPrincipal(req.Context(), principal)))
				return
			}

			respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}
