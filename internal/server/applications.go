package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"rgbportal/internal/auth"
	"rgbportal/internal/domain"
	"rgbportal/internal/engine"
	"rgbportal/internal/repo"
	"rgbportal/internal/workflow"
)

const defaultPageLimit = 50

func registerApplications(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-application",
		Method:        http.MethodPost,
		Path:          "/applications",
		Summary:       "Submit a new application",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body ApplicationRequest `json:"body"`
	}) (*struct {
		Body OutcomeResponse `json:"body"`
	}, error) {
		applicant, authErr := requireApplicant(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		out, err := e.CreateApplication(ctx, applicant, detailsFromRequest(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OutcomeResponse `json:"body"`
		}{Body: outcomeResponse(out, true, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-applications",
		Method:      http.MethodGet,
		Path:        "/applications",
		Summary:     "List applications visible to the caller",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status          string `query:"status"`
		Limit           int    `query:"limit"`
		CursorSubmitted string `query:"cursor_submitted"`
		CursorID        int64  `query:"cursor_id"`
	}) (*struct {
		Body []ApplicationResponse `json:"body"`
	}, error) {
		p, ok := principalFromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		filters := filtersFromQuery(input.Limit, input.CursorSubmitted, input.CursorID)
		if input.Status != "" {
			status, err := domain.ParseStatus(input.Status)
			if err != nil {
				return nil, handleError(err)
			}
			filters.Statuses = []domain.Status{status}
		}

		var res []ApplicationResponse
		switch p.Kind {
		case auth.KindApplicant:
			applicant, authErr := requireApplicant(ctx, e)
			if authErr != nil {
				return nil, authErr
			}
			filters.ApplicantID = applicant.ID
			items, err := e.Repo.ListApplications(ctx, filters)
			if err != nil {
				return nil, handleError(err)
			}
			for _, a := range items {
				res = append(res, applicationResponse(a, workflow.ApplicantCanEdit(a.Status), nil))
			}
		case auth.KindAdmin:
			admin, authErr := requireAdmin(ctx, e)
			if authErr != nil {
				return nil, authErr
			}
			viewable := workflow.ViewableStatuses(admin.Role)
			if len(filters.Statuses) > 0 {
				if !workflow.CanView(admin.Role, filters.Statuses[0]) {
					return nil, newAPIError(http.StatusForbidden, "no_permission_for_state", "role cannot view this status", nil)
				}
			} else {
				filters.Statuses = viewable
			}
			items, err := e.Repo.ListApplications(ctx, filters)
			if err != nil {
				return nil, handleError(err)
			}
			for _, a := range items {
				res = append(res, applicationResponse(a, workflow.CanEdit(admin.Role, a.Status), workflow.AllowedTargets(admin.Role, a.Status)))
			}
		}
		if res == nil {
			res = []ApplicationResponse{}
		}
		return &struct {
			Body []ApplicationResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-application",
		Method:      http.MethodGet,
		Path:        "/applications/{application_id}",
		Summary:     "Get application",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ApplicationID int64 `path:"application_id"`
	}) (*struct {
		Body ApplicationResponse `json:"body"`
	}, error) {
		_, resp, statusErr := loadVisibleApplication(ctx, e, input.ApplicationID)
		if statusErr != nil {
			return nil, statusErr
		}
		return &struct {
			Body ApplicationResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-application",
		Method:      http.MethodPut,
		Path:        "/applications/{application_id}",
		Summary:     "Edit application details",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ApplicationID int64              `path:"application_id"`
		Body          ApplicationRequest `json:"body"`
	}) (*struct {
		Body OutcomeResponse `json:"body"`
	}, error) {
		applicant, authErr := requireApplicant(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		out, err := e.UpdateApplication(ctx, applicant, input.ApplicationID, detailsFromRequest(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OutcomeResponse `json:"body"`
		}{Body: outcomeResponse(out, workflow.ApplicantCanEdit(out.Application.Status), nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-application-audit",
		Method:      http.MethodGet,
		Path:        "/applications/{application_id}/audit",
		Summary:     "Application audit trail",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ApplicationID int64 `path:"application_id"`
	}) (*struct {
		Body []domain.AuditRecord `json:"body"`
	}, error) {
		if _, _, statusErr := loadVisibleApplication(ctx, e, input.ApplicationID); statusErr != nil {
			return nil, statusErr
		}
		records, err := e.Audit.ListFor(ctx, input.ApplicationID)
		if err != nil {
			return nil, handleError(err)
		}
		if records == nil {
			records = []domain.AuditRecord{}
		}
		return &struct {
			Body []domain.AuditRecord `json:"body"`
		}{Body: records}, nil
	})
}

func registerTransitions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "update-application-status",
		Method:      http.MethodPut,
		Path:        "/applications/{application_id}/status",
		Summary:     "Apply a status transition",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ApplicationID int64             `path:"application_id"`
		Body          TransitionRequest `json:"body"`
	}) (*struct {
		Body OutcomeResponse `json:"body"`
	}, error) {
		admin, authErr := requireAdmin(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		target, err := domain.ParseStatus(input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		out, err := e.ApplyTransition(ctx, engine.TransitionOptions{
			ApplicationID: input.ApplicationID,
			Actor:         admin,
			Target:        target,
			Comment:       input.Body.Comment,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OutcomeResponse `json:"body"`
		}{Body: outcomeResponse(out, workflow.CanEdit(admin.Role, out.Application.Status), workflow.AllowedTargets(admin.Role, out.Application.Status))}, nil
	})
}

func registerComments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-application-comment",
		Method:        http.MethodPost,
		Path:          "/applications/{application_id}/comments",
		Summary:       "Add a review comment",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ApplicationID int64          `path:"application_id"`
		Body          CommentRequest `json:"body"`
	}) (*struct {
		Body OutcomeResponse `json:"body"`
	}, error) {
		admin, authErr := requireAdmin(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		out, err := e.AddComment(ctx, admin, input.ApplicationID, input.Body.Comment)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OutcomeResponse `json:"body"`
		}{Body: outcomeResponse(out, workflow.CanEdit(admin.Role, out.Application.Status), nil)}, nil
	})
}

func registerCertificates(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "verify-certificate",
		Method:      http.MethodGet,
		Path:        "/certificates/{certificate_number}",
		Summary:     "Verify a certificate number",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CertificateNumber string `path:"certificate_number"`
	}) (*struct {
		Body CertificateResponse `json:"body"`
	}, error) {
		app, err := e.VerifyCertificate(ctx, input.CertificateNumber)
		if err != nil {
			return nil, handleError(err)
		}
		resp := CertificateResponse{
			CertificateNumber: input.CertificateNumber,
			OrganizationName:  app.OrganizationName,
			District:          app.District,
		}
		if app.CertificateIssuedAt != nil {
			resp.IssuedAt = *app.CertificateIssuedAt
		}
		return &struct {
			Body CertificateResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerStats(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Pipeline statistics",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.Stats `json:"body"`
	}, error) {
		admin, authErr := requireAdmin(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		stats, err := e.GetStats(ctx, admin.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Stats `json:"body"`
		}{Body: stats}, nil
	})
}

// loadVisibleApplication fetches an application and enforces visibility:
// applicants only see their own, admins only the statuses their role may
// view.
func loadVisibleApplication(ctx context.Context, e engine.Engine, id int64) (domain.Application, ApplicationResponse, huma.StatusError) {
	p, ok := principalFromContext(ctx)
	if !ok {
		return domain.Application{}, ApplicationResponse{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
	}
	app, err := e.Repo.GetApplication(ctx, id)
	if err != nil {
		return domain.Application{}, ApplicationResponse{}, handleError(err)
	}
	switch p.Kind {
	case auth.KindApplicant:
		if app.ApplicantID != p.ID {
			return domain.Application{}, ApplicationResponse{}, newAPIError(http.StatusNotFound, "not_found", "application not found", nil)
		}
		return app, applicationResponse(app, workflow.ApplicantCanEdit(app.Status), nil), nil
	case auth.KindAdmin:
		admin, authErr := requireAdmin(ctx, e)
		if authErr != nil {
			return domain.Application{}, ApplicationResponse{}, authErr
		}
		if !workflow.CanView(admin.Role, app.Status) {
			return domain.Application{}, ApplicationResponse{}, newAPIError(http.StatusForbidden, "no_permission_for_state", "role cannot view application in this status", nil)
		}
		return app, applicationResponse(app, workflow.CanEdit(admin.Role, app.Status), workflow.AllowedTargets(admin.Role, app.Status)), nil
	default:
		return domain.Application{}, ApplicationResponse{}, newAPIError(http.StatusForbidden, "forbidden", "unknown account kind", nil)
	}
}

func detailsFromRequest(req ApplicationRequest) engine.ApplicationDetails {
	return engine.ApplicationDetails{
		OrganizationName:  req.OrganizationName,
		Acronym:           req.Acronym,
		District:          req.District,
		OrganizationEmail: req.OrganizationEmail,
		OrganizationPhone: req.OrganizationPhone,
	}
}

func filtersFromQuery(limit int, cursorSubmitted string, cursorID int64) repo.ApplicationFilters {
	if limit <= 0 || limit > 200 {
		limit = defaultPageLimit
	}
	return repo.ApplicationFilters{
		Limit:           limit,
		CursorSubmitted: cursorSubmitted,
		CursorID:        cursorID,
	}
}
