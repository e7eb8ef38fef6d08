package server

import (
	"rgbportal/internal/domain"
	"rgbportal/internal/engine"
)

// Request payloads

type SignupRequest struct {
	Email       string `json:"email" format:"email"`
	Password    string `json:"password" minLength:"8"`
	FirstName   string `json:"firstname"`
	LastName    string `json:"lastname"`
	PhoneNumber string `json:"phonenumber"`
}

type LoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
	Kind     string `json:"kind,omitempty" enum:"applicant,admin"`
}

type ApplicationRequest struct {
	OrganizationName  string `json:"organization_name"`
	Acronym           string `json:"acronym,omitempty"`
	District          string `json:"district"`
	OrganizationEmail string `json:"organization_email" format:"email"`
	OrganizationPhone string `json:"organization_phone"`
}

type TransitionRequest struct {
	Status  string `json:"status" enum:"PENDING,REVIEWING_AGAIN,FBO_REVIEW,TRANSFER_TO_DM,DM_REVIEW,TRANSFER_TO_HOD,HOD_REVIEW,TRANSFER_TO_SG,SG_REVIEW,TRANSFER_TO_CEO,CEO_REVIEW,APPROVED,REJECTED,CERTIFICATE_ISSUED"`
	Comment string `json:"comment,omitempty"`
}

type CommentRequest struct {
	Comment string `json:"comment"`
}

type BroadcastRequest struct {
	Category string `json:"category,omitempty" enum:"STATUS_CHANGE,DOCUMENT_REQUEST,APPROVAL,REJECTION,REMINDER,CERTIFICATE_READY"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

type CreateAdminRequest struct {
	Email       string `json:"email" format:"email"`
	Password    string `json:"password" minLength:"8"`
	FirstName   string `json:"firstname"`
	LastName    string `json:"lastname"`
	PhoneNumber string `json:"phonenumber"`
	Role        string `json:"role" enum:"FBO_OFFICER,DIVISION_MANAGER,HOD,SECRETARY_GENERAL,CEO"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
}

// Response payloads

type TokenResponse struct {
	Token string `json:"token"`
	Kind  string `json:"kind" enum:"applicant,admin"`
	ID    int64  `json:"id"`
	Role  string `json:"role,omitempty"`
}

type ApplicationResponse struct {
	domain.Application
	Editable        bool            `json:"editable"`
	AllowedTargets  []domain.Status `json:"allowed_targets,omitempty"`
	ProcessedByName string          `json:"processed_by_name,omitempty"`
}

type OutcomeResponse struct {
	Application ApplicationResponse `json:"application"`
	Warnings    []string            `json:"warnings,omitempty"`
}

type CertificateResponse struct {
	CertificateNumber string `json:"certificate_number"`
	OrganizationName  string `json:"organization_name"`
	District          string `json:"district"`
	IssuedAt          string `json:"issued_at" format:"date-time"`
}

type BroadcastResponse struct {
	Sent     int      `json:"sent"`
	Warnings []string `json:"warnings,omitempty"`
}

type AdminResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstname"`
	LastName    string `json:"lastname"`
	PhoneNumber string `json:"phonenumber"`
	Role        string `json:"role"`
	Enabled     bool   `json:"enabled"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type APIKeyResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name,omitempty"`
	Key        string  `json:"key,omitempty"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
	LastUsedAt *string `json:"last_used_at,omitempty" format:"date-time"`
}

func applicationResponse(a domain.Application, editable bool, targets []domain.Status) ApplicationResponse {
	return ApplicationResponse{Application: a, Editable: editable, AllowedTargets: targets}
}

func outcomeResponse(out engine.Outcome, editable bool, targets []domain.Status) OutcomeResponse {
	return OutcomeResponse{
		Application: applicationResponse(out.Application, editable, targets),
		Warnings:    out.Warnings,
	}
}

func adminResponse(a domain.Admin) AdminResponse {
	return AdminResponse{
		ID:          a.ID,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		PhoneNumber: a.PhoneNumber,
		Role:        string(a.Role),
		Enabled:     a.Enabled,
		CreatedAt:   a.CreatedAt,
	}
}

func mapAdmins(items []domain.Admin) []AdminResponse {
	res := make([]AdminResponse, 0, len(items))
	for _, a := range items {
		res = append(res, adminResponse(a))
	}
	return res
}
