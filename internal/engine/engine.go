package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rgbportal/internal/audit"
	"rgbportal/internal/config"
	"rgbportal/internal/domain"
	"rgbportal/internal/events"
	"rgbportal/internal/notify"
	"rgbportal/internal/repo"
	"rgbportal/internal/workflow"
)

var (
	// ErrConcurrentModification means the application's status changed
	// between the caller's read and this write.
	ErrConcurrentModification = errors.New("application was modified concurrently")
	// ErrActorDisabled means the acting account has been disabled.
	ErrActorDisabled = errors.New("account is disabled")
	// ErrEditLocked means the application has entered review and the
	// applicant can no longer change it.
	ErrEditLocked = errors.New("application is under review and cannot be edited")
	// ErrBroadcastForbidden means the actor's role may not broadcast.
	ErrBroadcastForbidden = errors.New("role is not permitted to broadcast")
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Audit  audit.Writer
	Events events.Writer
	Notify notify.Dispatcher
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config, hub *notify.Hub) Engine {
	r := repo.Repo{DB: db}
	return Engine{
		DB:     db,
		Repo:   r,
		Audit:  audit.Writer{DB: db},
		Events: events.Writer{DB: db},
		Notify: notify.Dispatcher{Repo: r, Hub: hub},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func adminActor(id int64) string     { return fmt.Sprintf("admin:%d", id) }
func applicantActor(id int64) string { return fmt.Sprintf("applicant:%d", id) }

// TransitionOptions are parameters for moving an application to a new status.
type TransitionOptions struct {
	ApplicationID int64
	Actor         domain.Admin
	Target        domain.Status
	Comment       string
}

// Outcome is the result of a state-changing operation. Warnings carry
// notification delivery problems that did not abort the operation.
type Outcome struct {
	Application   domain.Application
	Notifications []domain.Notification
	Warnings      []string
}

// ApplyTransition validates and applies one status change on behalf of
// an admin. Validation runs against a snapshot read before the write
// transaction opens, and the write is conditional on that snapshot's
// status, so two reviewers racing on the same application resolve to
// one winner and one ErrConcurrentModification for the loser.
//
// Approval is never left at rest: when the target is APPROVED the
// certificate is issued and the application advances to
// CERTIFICATE_ISSUED within the same transaction.
func (e Engine) ApplyTransition(ctx context.Context, opts TransitionOptions) (Outcome, error) {
	if !opts.Actor.Enabled {
		return Outcome{}, ErrActorDisabled
	}

	app, err := e.Repo.GetApplication(ctx, opts.ApplicationID)
	if err != nil {
		return Outcome{}, err
	}
	observed := app.Status
	if err := workflow.Validate(opts.Actor.Role, observed, opts.Target); err != nil {
		return Outcome{}, err
	}

	now := e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return Outcome{}, err
	}
	defer tx.Rollback()

	actorID := opts.Actor.ID
	app.Status = opts.Target
	app.ProcessedByID = &actorID
	app.LastModified = now
	if err := e.Repo.ConditionalSaveStatus(ctx, tx, app, observed); err != nil {
		if errors.Is(err, repo.ErrStatusConflict) {
			return Outcome{}, ErrConcurrentModification
		}
		return Outcome{}, err
	}
	if err := e.appendTransitionRecords(ctx, tx, app, opts.Actor, observed, opts.Target, opts.Comment, now); err != nil {
		return Outcome{}, err
	}

	if opts.Target == domain.StatusApproved {
		app, err = e.issueCertificate(ctx, tx, app, opts.Actor, now)
		if err != nil {
			return Outcome{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Application: app}
	e.notifyTransition(ctx, &out, observed)
	return out, nil
}

func (e Engine) appendTransitionRecords(ctx context.Context, tx *sql.Tx, app domain.Application, actor domain.Admin, from, to domain.Status, comment, now string) error {
	rec := domain.AuditRecord{
		ApplicationID: app.ID,
		ActorID:       actor.ID,
		FromStatus:    &from,
		ToStatus:      &to,
		Comment:       comment,
		CreatedAt:     now,
	}
	if err := e.Audit.Append(ctx, tx, rec); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	payload := events.EventPayload{
		"from":              from,
		"to":                to,
		"organization_name": app.OrganizationName,
		"actor_name":        actor.FullName(),
	}
	if comment != "" {
		payload["comment"] = comment
	}
	return e.Events.Append(ctx, tx, events.TypeStatusChanged, app.ID, adminActor(actor.ID), payload)
}

// issueCertificate assigns the certificate number and moves the
// application straight to CERTIFICATE_ISSUED. Re-approving an already
// certified application keeps the original number.
func (e Engine) issueCertificate(ctx context.Context, tx *sql.Tx, app domain.Application, actor domain.Admin, now string) (domain.Application, error) {
	if app.CertificateNumber == nil {
		number := CertificateNumber(e.Config.Certificate.Prefix, e.now().UTC().Year(), app.ID)
		app.CertificateNumber = &number
		app.CertificateIssuedAt = &now
	}
	from := app.Status
	app.Status = domain.StatusCertificateIssued
	app.LastModified = now
	if err := e.Repo.ConditionalSaveStatus(ctx, tx, app, from); err != nil {
		return app, err
	}
	rec := domain.AuditRecord{
		ApplicationID: app.ID,
		ActorID:       actor.ID,
		FromStatus:    &from,
		ToStatus:      &app.Status,
		CreatedAt:     now,
	}
	if err := e.Audit.Append(ctx, tx, rec); err != nil {
		return app, fmt.Errorf("append audit record: %w", err)
	}
	err := e.Events.Append(ctx, tx, events.TypeCertificateIssued, app.ID, adminActor(actor.ID),
		events.EventPayload{"certificate_number": *app.CertificateNumber})
	return app, err
}

// notifyTransition composes and dispatches the notification set for a
// committed transition: the owner always hears, and a handoff status
// additionally alerts every enabled admin of the receiving role.
func (e Engine) notifyTransition(ctx context.Context, out *Outcome, from domain.Status) {
	app := out.Application
	owner := e.ownerNotification(app, from)
	out.Notifications = append(out.Notifications, owner)
	out.Warnings = append(out.Warnings, e.Notify.Dispatch(ctx, []domain.Notification{owner})...)

	role, ok := workflow.NextRoleFor(app.Status)
	if !ok {
		return
	}
	admins, err := e.Repo.ListEnabledAdminsByRole(ctx, role)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("list %s admins: %v", role, err))
		return
	}
	batch := make([]domain.Notification, 0, len(admins))
	for _, a := range admins {
		adminID := a.ID
		appID := app.ID
		batch = append(batch, domain.Notification{
			ID:            uuid.NewString(),
			AdminID:       &adminID,
			ApplicationID: &appID,
			Category:      domain.CategoryStatusChange,
			Title:         "Application awaiting review",
			Message:       fmt.Sprintf("Application #%d (%s) is ready for %s review.", app.ID, app.OrganizationName, role),
			CreatedAt:     e.timestamp(),
		})
	}
	out.Notifications = append(out.Notifications, batch...)
	out.Warnings = append(out.Warnings, e.Notify.DispatchToRole(ctx, role, batch)...)
}

func (e Engine) ownerNotification(app domain.Application, from domain.Status) domain.Notification {
	applicantID := app.ApplicantID
	appID := app.ID
	n := domain.Notification{
		ID:            uuid.NewString(),
		ApplicantID:   &applicantID,
		ApplicationID: &appID,
		CreatedAt:     e.timestamp(),
	}
	switch app.Status {
	case domain.StatusCertificateIssued:
		n.Category = domain.CategoryCertificateReady
		n.Title = "Certificate issued"
		n.Message = fmt.Sprintf("Your application for %s was approved. Certificate %s has been issued.", app.OrganizationName, derefString(app.CertificateNumber))
	case domain.StatusRejected:
		n.Category = domain.CategoryRejection
		n.Title = "Application rejected"
		n.Message = fmt.Sprintf("Your application for %s has been rejected.", app.OrganizationName)
	case domain.StatusReviewingAgain:
		n.Category = domain.CategoryDocumentRequest
		n.Title = "Changes requested"
		n.Message = fmt.Sprintf("Your application for %s needs changes before review can continue.", app.OrganizationName)
	default:
		n.Category = domain.CategoryStatusChange
		n.Title = "Application status updated"
		n.Message = fmt.Sprintf("Your application for %s moved from %s to %s.", app.OrganizationName, from, app.Status)
	}
	return n
}

// ApplicationDetails are the applicant-supplied fields of an application.
type ApplicationDetails struct {
	OrganizationName  string
	Acronym           string
	District          string
	OrganizationEmail string
	OrganizationPhone string
}

func (d ApplicationDetails) validate() error {
	if d.OrganizationName == "" {
		return errors.New("organization name is required")
	}
	if d.District == "" {
		return errors.New("district is required")
	}
	if d.OrganizationEmail == "" {
		return errors.New("organization email is required")
	}
	if d.OrganizationPhone == "" {
		return errors.New("organization phone is required")
	}
	return nil
}

// CreateApplication submits a new application in PENDING and alerts the
// intake role's queue.
func (e Engine) CreateApplication(ctx context.Context, applicant domain.Applicant, details ApplicationDetails) (Outcome, error) {
	if !applicant.Enabled {
		return Outcome{}, ErrActorDisabled
	}
	if err := details.validate(); err != nil {
		return Outcome{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return Outcome{}, err
	}
	defer tx.Rollback()

	now := e.timestamp()
	app := domain.Application{
		ApplicantID:       applicant.ID,
		OrganizationName:  details.OrganizationName,
		Acronym:           details.Acronym,
		District:          details.District,
		OrganizationEmail: details.OrganizationEmail,
		OrganizationPhone: details.OrganizationPhone,
		Status:            domain.StatusPending,
		SubmittedAt:       now,
		LastModified:      now,
	}
	app.ID, err = e.Repo.InsertApplication(ctx, tx, app)
	if err != nil {
		return Outcome{}, fmt.Errorf("insert application: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypeApplicationCreated, app.ID, applicantActor(applicant.ID),
		events.EventPayload{"status": app.Status, "organization_name": app.OrganizationName}); err != nil {
		return Outcome{}, err
	}
	if err := tx.Commit(); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Application: app}
	e.notifyIntake(ctx, &out, "New application submitted",
		fmt.Sprintf("Application #%d (%s) was submitted and awaits intake.", app.ID, app.OrganizationName))
	return out, nil
}

// UpdateApplication lets the owning applicant edit details while the
// application is still theirs. Editing after changes were requested
// resubmits the application to the start of the chain.
func (e Engine) UpdateApplication(ctx context.Context, applicant domain.Applicant, applicationID int64, details ApplicationDetails) (Outcome, error) {
	if !applicant.Enabled {
		return Outcome{}, ErrActorDisabled
	}
	if err := details.validate(); err != nil {
		return Outcome{}, err
	}

	app, err := e.Repo.GetApplication(ctx, applicationID)
	if err != nil {
		return Outcome{}, err
	}
	if app.ApplicantID != applicant.ID {
		return Outcome{}, repo.ErrNotFound
	}
	if !workflow.ApplicantCanEdit(app.Status) {
		return Outcome{}, ErrEditLocked
	}

	observed := app.Status
	resubmitted := observed == domain.StatusReviewingAgain
	now := e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return Outcome{}, err
	}
	defer tx.Rollback()
	app.OrganizationName = details.OrganizationName
	app.Acronym = details.Acronym
	app.District = details.District
	app.OrganizationEmail = details.OrganizationEmail
	app.OrganizationPhone = details.OrganizationPhone
	app.LastModified = now
	if resubmitted {
		app.Status = domain.StatusPending
	}
	if err := e.Repo.ConditionalSaveStatus(ctx, tx, app, observed); err != nil {
		if errors.Is(err, repo.ErrStatusConflict) {
			return Outcome{}, ErrConcurrentModification
		}
		return Outcome{}, err
	}
	if err := e.Repo.UpdateApplicationDetails(ctx, tx, app); err != nil {
		return Outcome{}, fmt.Errorf("update application details: %w", err)
	}
	payload := events.EventPayload{"resubmitted": resubmitted}
	if err := e.Events.Append(ctx, tx, events.TypeApplicationUpdated, app.ID, applicantActor(applicant.ID), payload); err != nil {
		return Outcome{}, err
	}
	if err := tx.Commit(); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Application: app}
	if resubmitted {
		e.notifyIntake(ctx, &out, "Application resubmitted",
			fmt.Sprintf("Application #%d (%s) was updated and resubmitted.", app.ID, app.OrganizationName))
	}
	return out, nil
}

// notifyIntake alerts every enabled admin of the first review role.
func (e Engine) notifyIntake(ctx context.Context, out *Outcome, title, message string) {
	role, ok := workflow.NextRoleFor(domain.StatusPending)
	if !ok {
		return
	}
	admins, err := e.Repo.ListEnabledAdminsByRole(ctx, role)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("list %s admins: %v", role, err))
		return
	}
	appID := out.Application.ID
	batch := make([]domain.Notification, 0, len(admins))
	for _, a := range admins {
		adminID := a.ID
		batch = append(batch, domain.Notification{
			ID:            uuid.NewString(),
			AdminID:       &adminID,
			ApplicationID: &appID,
			Category:      domain.CategoryStatusChange,
			Title:         title,
			Message:       message,
			CreatedAt:     e.timestamp(),
		})
	}
	out.Notifications = append(out.Notifications, batch...)
	out.Warnings = append(out.Warnings, e.Notify.DispatchToRole(ctx, role, batch)...)
}

// AddComment appends a standalone review comment to the trail and tells
// the applicant about it.
func (e Engine) AddComment(ctx context.Context, actor domain.Admin, applicationID int64, comment string) (Outcome, error) {
	if !actor.Enabled {
		return Outcome{}, ErrActorDisabled
	}
	if comment == "" {
		return Outcome{}, errors.New("comment is required")
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return Outcome{}, err
	}
	defer tx.Rollback()

	app, err := e.Repo.GetApplicationTx(ctx, tx, applicationID)
	if err != nil {
		return Outcome{}, err
	}
	if !workflow.CanView(actor.Role, app.Status) {
		return Outcome{}, workflow.DenialError{Reason: workflow.NoPermissionForState, Role: actor.Role, Current: app.Status}
	}
	now := e.timestamp()
	rec := domain.AuditRecord{
		ApplicationID: app.ID,
		ActorID:       actor.ID,
		Comment:       comment,
		CreatedAt:     now,
	}
	if err := e.Audit.Append(ctx, tx, rec); err != nil {
		return Outcome{}, fmt.Errorf("append audit record: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypeCommentAdded, app.ID, adminActor(actor.ID), nil); err != nil {
		return Outcome{}, err
	}
	if err := tx.Commit(); err != nil {
		return Outcome{}, err
	}

	applicantID := app.ApplicantID
	appID := app.ID
	n := domain.Notification{
		ID:            uuid.NewString(),
		ApplicantID:   &applicantID,
		ApplicationID: &appID,
		Category:      domain.CategoryReminder,
		Title:         "New comment on your application",
		Message:       fmt.Sprintf("%s commented on application #%d: %s", actor.FullName(), app.ID, comment),
		CreatedAt:     now,
	}
	out := Outcome{Application: app, Notifications: []domain.Notification{n}}
	out.Warnings = e.Notify.Dispatch(ctx, []domain.Notification{n})
	return out, nil
}

// Broadcast sends a notification to every enabled applicant and admin.
// Only the top of the chain may address everyone.
func (e Engine) Broadcast(ctx context.Context, actor domain.Admin, category domain.NotificationCategory, title, message string) (Outcome, error) {
	if !actor.Enabled {
		return Outcome{}, ErrActorDisabled
	}
	if actor.Role != domain.RoleCEO && actor.Role != domain.RoleSecretaryGeneral {
		return Outcome{}, ErrBroadcastForbidden
	}
	if title == "" || message == "" {
		return Outcome{}, errors.New("title and message are required")
	}

	applicants, err := e.Repo.ListEnabledApplicants(ctx)
	if err != nil {
		return Outcome{}, err
	}
	admins, err := e.Repo.ListEnabledAdmins(ctx)
	if err != nil {
		return Outcome{}, err
	}

	now := e.timestamp()
	var batch []domain.Notification
	for _, a := range applicants {
		applicantID := a.ID
		batch = append(batch, domain.Notification{
			ID:          uuid.NewString(),
			ApplicantID: &applicantID,
			Category:    category,
			Title:       title,
			Message:     message,
			CreatedAt:   now,
		})
	}
	for _, a := range admins {
		if a.ID == actor.ID {
			continue
		}
		adminID := a.ID
		batch = append(batch, domain.Notification{
			ID:        uuid.NewString(),
			AdminID:   &adminID,
			Category:  category,
			Title:     title,
			Message:   message,
			CreatedAt: now,
		})
	}
	out := Outcome{Notifications: batch}
	out.Warnings = e.Notify.Dispatch(ctx, batch)
	return out, nil
}

// VerifyCertificate resolves a certificate number to its application.
// It serves the public verification endpoint, so it exposes nothing for
// numbers that were never issued.
func (e Engine) VerifyCertificate(ctx context.Context, number string) (domain.Application, error) {
	app, err := e.Repo.GetApplicationByCertificate(ctx, number)
	if err != nil {
		return domain.Application{}, err
	}
	if app.Status != domain.StatusCertificateIssued {
		return domain.Application{}, repo.ErrNotFound
	}
	return app, nil
}

// Stats summarizes the pipeline for dashboards.
type Stats struct {
	Total      int                   `json:"total"`
	ByStatus   map[domain.Status]int `json:"by_status"`
	InProgress int                   `json:"in_progress"`
	Terminal   int                   `json:"terminal"`
}

// GetStats counts applications per status. A role narrows the counts to
// the statuses that role may view; an empty role covers the whole
// registry (operator tooling).
func (e Engine) GetStats(ctx context.Context, role domain.Role) (Stats, error) {
	statuses := domain.Statuses()
	if role != "" {
		statuses = workflow.ViewableStatuses(role)
	}
	counts, err := e.Repo.CountApplicationsByStatus(ctx, statuses)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{ByStatus: counts}
	for status, n := range counts {
		s.Total += n
		if status.IsTerminal() {
			s.Terminal += n
		} else {
			s.InProgress += n
		}
	}
	return s, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
