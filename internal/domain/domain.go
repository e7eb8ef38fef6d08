package domain

import "fmt"

// Status is the lifecycle state of an organization application.
// The chain is mostly linear: each TRANSFER_TO_* status hands the
// application to the next role, each *_REVIEW status is that role
// working on it. REJECTED and CERTIFICATE_ISSUED are terminal.
type Status string

const (
	StatusPending           Status = "PENDING"
	StatusReviewingAgain    Status = "REVIEWING_AGAIN"
	StatusFBOReview         Status = "FBO_REVIEW"
	StatusTransferToDM      Status = "TRANSFER_TO_DM"
	StatusDMReview          Status = "DM_REVIEW"
	StatusTransferToHOD     Status = "TRANSFER_TO_HOD"
	StatusHODReview         Status = "HOD_REVIEW"
	StatusTransferToSG      Status = "TRANSFER_TO_SG"
	StatusSGReview          Status = "SG_REVIEW"
	StatusTransferToCEO     Status = "TRANSFER_TO_CEO"
	StatusCEOReview         Status = "CEO_REVIEW"
	StatusApproved          Status = "APPROVED"
	StatusRejected          Status = "REJECTED"
	StatusCertificateIssued Status = "CERTIFICATE_ISSUED"
)

var allStatuses = []Status{
	StatusPending, StatusReviewingAgain, StatusFBOReview,
	StatusTransferToDM, StatusDMReview, StatusTransferToHOD, StatusHODReview,
	StatusTransferToSG, StatusSGReview, StatusTransferToCEO, StatusCEOReview,
	StatusApproved, StatusRejected, StatusCertificateIssued,
}

// ParseStatus converts a raw string to a Status, returning an error for
// values outside the enumerated set.
func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if Status(s) == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// Statuses returns every status value in chain order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusCertificateIssued
}

// Role is an admin reviewer role, ordered by escalation.
type Role string

const (
	RoleFBOOfficer       Role = "FBO_OFFICER"
	RoleDivisionManager  Role = "DIVISION_MANAGER"
	RoleHOD              Role = "HOD"
	RoleSecretaryGeneral Role = "SECRETARY_GENERAL"
	RoleCEO              Role = "CEO"
)

var allRoles = []Role{
	RoleFBOOfficer, RoleDivisionManager, RoleHOD, RoleSecretaryGeneral, RoleCEO,
}

// ParseRole converts a raw string to a Role.
func ParseRole(s string) (Role, error) {
	for _, r := range allRoles {
		if Role(s) == r {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown admin role %q", s)
}

// Roles returns every admin role in escalation order.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// Application is the unit of work moving through the review chain.
type Application struct {
	ID                  int64   `json:"id"`
	ApplicantID         int64   `json:"applicant_id"`
	ProcessedByID       *int64  `json:"processed_by_id,omitempty"`
	OrganizationName    string  `json:"organization_name"`
	Acronym             string  `json:"acronym,omitempty"`
	District            string  `json:"district"`
	OrganizationEmail   string  `json:"organization_email"`
	OrganizationPhone   string  `json:"organization_phone"`
	Status              Status  `json:"status" enum:"PENDING,REVIEWING_AGAIN,FBO_REVIEW,TRANSFER_TO_DM,DM_REVIEW,TRANSFER_TO_HOD,HOD_REVIEW,TRANSFER_TO_SG,SG_REVIEW,TRANSFER_TO_CEO,CEO_REVIEW,APPROVED,REJECTED,CERTIFICATE_ISSUED"`
	SubmittedAt         string  `json:"submitted_at" format:"date-time"`
	LastModified        string  `json:"last_modified" format:"date-time"`
	CertificateNumber   *string `json:"certificate_number,omitempty"`
	CertificateIssuedAt *string `json:"certificate_issued_at,omitempty" format:"date-time"`
}

// Applicant owns applications and receives status notifications.
type Applicant struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FirstName    string `json:"firstname"`
	LastName     string `json:"lastname"`
	PhoneNumber  string `json:"phonenumber"`
	Enabled      bool   `json:"enabled"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

func (a Applicant) FullName() string {
	return a.FirstName + " " + a.LastName
}

// Admin is a role-tagged reviewer; only admins drive transitions.
type Admin struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FirstName    string `json:"firstname"`
	LastName     string `json:"lastname"`
	PhoneNumber  string `json:"phonenumber"`
	Role         Role   `json:"role" enum:"FBO_OFFICER,DIVISION_MANAGER,HOD,SECRETARY_GENERAL,CEO"`
	Enabled      bool   `json:"enabled"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

func (a Admin) FullName() string {
	return a.FirstName + " " + a.LastName
}

// AuditRecord is one append-only entry per applied transition or comment.
// FromStatus/ToStatus are nil for standalone comments.
type AuditRecord struct {
	ID            int64   `json:"id"`
	ApplicationID int64   `json:"application_id"`
	ActorID       int64   `json:"actor_id"`
	ActorName     string  `json:"actor_name,omitempty"`
	FromStatus    *Status `json:"from_status,omitempty"`
	ToStatus      *Status `json:"to_status,omitempty"`
	Comment       string  `json:"comment,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
}

// NotificationCategory classifies a notification for clients.
type NotificationCategory string

const (
	CategoryStatusChange     NotificationCategory = "STATUS_CHANGE"
	CategoryDocumentRequest  NotificationCategory = "DOCUMENT_REQUEST"
	CategoryApproval         NotificationCategory = "APPROVAL"
	CategoryRejection        NotificationCategory = "REJECTION"
	CategoryReminder         NotificationCategory = "REMINDER"
	CategoryCertificateReady NotificationCategory = "CERTIFICATE_READY"
)

// ParseNotificationCategory converts a raw string to a category.
func ParseNotificationCategory(s string) (NotificationCategory, error) {
	switch NotificationCategory(s) {
	case CategoryStatusChange, CategoryDocumentRequest, CategoryApproval,
		CategoryRejection, CategoryReminder, CategoryCertificateReady:
		return NotificationCategory(s), nil
	}
	return "", fmt.Errorf("unknown notification category %q", s)
}

// Notification targets exactly one of ApplicantID or AdminID.
type Notification struct {
	ID            string               `json:"id"`
	ApplicantID   *int64               `json:"applicant_id,omitempty"`
	AdminID       *int64               `json:"admin_id,omitempty"`
	ApplicationID *int64               `json:"application_id,omitempty"`
	Category      NotificationCategory `json:"category" enum:"STATUS_CHANGE,DOCUMENT_REQUEST,APPROVAL,REJECTION,REMINDER,CERTIFICATE_READY"`
	Title         string               `json:"title"`
	Message       string               `json:"message"`
	IsRead        bool                 `json:"is_read"`
	CreatedAt     string               `json:"created_at" format:"date-time"`
	ReadAt        *string              `json:"read_at,omitempty" format:"date-time"`
}

// Event is one row of the realtime/webhook event feed.
type Event struct {
	ID            int64  `json:"id"`
	TS            string `json:"ts" format:"date-time"`
	Type          string `json:"type"`
	ApplicationID int64  `json:"application_id,omitempty"`
	ActorID       string `json:"actor_id"`
	Payload       string `json:"payload_json"`
}

// APIKey is a hashed service credential bound to an admin.
type APIKey struct {
	ID         string  `json:"id"`
	AdminID    int64   `json:"admin_id"`
	Name       string  `json:"name,omitempty"`
	KeyHash    string  `json:"key_hash"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
	LastUsedAt *string `json:"last_used_at,omitempty" format:"date-time"`
}
