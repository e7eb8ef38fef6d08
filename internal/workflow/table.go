// Package workflow holds the single authoritative role/permission table
// for the application review chain and the pure transition validator
// consumed by every read and write path. No other package may compare
// statuses to decide what a role is allowed to do.
package workflow

import "rgbportal/internal/domain"

// RolePermissions describes everything one admin role may do: which
// statuses it can see, which it can act on, and the exact status moves
// it may perform from each current status.
type RolePermissions struct {
	Viewable    []domain.Status
	Editable    []domain.Status
	Transitions map[domain.Status][]domain.Status
}

// table maps each admin role to its permissions. Terminal statuses have
// no outgoing transitions for any role.
var table = map[domain.Role]RolePermissions{
	domain.RoleFBOOfficer: {
		Viewable: []domain.Status{
			domain.StatusRejected,
			domain.StatusPending,
			domain.StatusFBOReview,
			domain.StatusReviewingAgain,
			domain.StatusTransferToDM,
			domain.StatusDMReview,
			domain.StatusTransferToHOD,
			domain.StatusHODReview,
			domain.StatusTransferToSG,
			domain.StatusSGReview,
			domain.StatusTransferToCEO,
			domain.StatusCEOReview,
			domain.StatusApproved,
			domain.StatusCertificateIssued,
		},
		Editable: []domain.Status{
			domain.StatusPending,
			domain.StatusFBOReview,
			domain.StatusReviewingAgain,
		},
		Transitions: map[domain.Status][]domain.Status{
			domain.StatusPending:        {domain.StatusFBOReview, domain.StatusReviewingAgain},
			domain.StatusFBOReview:      {domain.StatusTransferToDM, domain.StatusReviewingAgain},
			domain.StatusReviewingAgain: {domain.StatusFBOReview},
		},
	},
	domain.RoleDivisionManager: {
		Viewable: []domain.Status{
			domain.StatusRejected,
			domain.StatusTransferToDM,
			domain.StatusDMReview,
			domain.StatusTransferToHOD,
			domain.StatusHODReview,
			domain.StatusTransferToSG,
			domain.StatusSGReview,
			domain.StatusTransferToCEO,
			domain.StatusCEOReview,
			domain.StatusApproved,
			domain.StatusCertificateIssued,
		},
		Editable: []domain.Status{
			domain.StatusTransferToDM,
			domain.StatusDMReview,
		},
		Transitions: map[domain.Status][]domain.Status{
			domain.StatusTransferToDM: {domain.StatusDMReview},
			domain.StatusDMReview:     {domain.StatusTransferToHOD, domain.StatusReviewingAgain},
		},
	},
	domain.RoleHOD: {
		Viewable: []domain.Status{
			domain.StatusRejected,
			domain.StatusTransferToHOD,
			domain.StatusHODReview,
			domain.StatusTransferToSG,
			domain.StatusSGReview,
			domain.StatusTransferToCEO,
			domain.StatusCEOReview,
			domain.StatusApproved,
			domain.StatusCertificateIssued,
		},
		Editable: []domain.Status{
			domain.StatusTransferToHOD,
			domain.StatusHODReview,
		},
		Transitions: map[domain.Status][]domain.Status{
			domain.StatusTransferToHOD: {domain.StatusHODReview},
			domain.StatusHODReview:     {domain.StatusTransferToSG, domain.StatusReviewingAgain},
		},
	},
	domain.RoleSecretaryGeneral: {
		Viewable: []domain.Status{
			domain.StatusRejected,
			domain.StatusTransferToSG,
			domain.StatusSGReview,
			domain.StatusTransferToCEO,
			domain.StatusCEOReview,
			domain.StatusApproved,
			domain.StatusCertificateIssued,
		},
		Editable: []domain.Status{
			domain.StatusTransferToSG,
			domain.StatusSGReview,
		},
		Transitions: map[domain.Status][]domain.Status{
			domain.StatusTransferToSG: {domain.StatusSGReview},
			domain.StatusSGReview:     {domain.StatusTransferToCEO, domain.StatusReviewingAgain, domain.StatusRejected},
		},
	},
	domain.RoleCEO: {
		Viewable: []domain.Status{
			domain.StatusRejected,
			domain.StatusTransferToCEO,
			domain.StatusCEOReview,
			domain.StatusApproved,
			domain.StatusCertificateIssued,
		},
		Editable: []domain.Status{
			domain.StatusTransferToCEO,
			domain.StatusCEOReview,
		},
		Transitions: map[domain.Status][]domain.Status{
			domain.StatusTransferToCEO: {domain.StatusCEOReview},
			domain.StatusCEOReview:     {domain.StatusApproved, domain.StatusReviewingAgain, domain.StatusRejected},
		},
	},
}

// handoffNextRole maps each handoff status to the role whose members are
// notified when an application lands there. PENDING is the initial
// handoff: a fresh submission notifies front-line officers.
var handoffNextRole = map[domain.Status]domain.Role{
	domain.StatusPending:       domain.RoleFBOOfficer,
	domain.StatusTransferToDM:  domain.RoleDivisionManager,
	domain.StatusTransferToHOD: domain.RoleHOD,
	domain.StatusTransferToSG:  domain.RoleSecretaryGeneral,
	domain.StatusTransferToCEO: domain.RoleCEO,
}

// PermissionsFor returns the permission set for a role.
func PermissionsFor(role domain.Role) (RolePermissions, bool) {
	p, ok := table[role]
	return p, ok
}

// ViewableStatuses returns the statuses a role may list and open.
func ViewableStatuses(role domain.Role) []domain.Status {
	return table[role].Viewable
}

// CanView reports whether a role may see applications in the status.
func CanView(role domain.Role, status domain.Status) bool {
	return contains(table[role].Viewable, status)
}

// CanEdit reports whether a role may act on applications in the status.
func CanEdit(role domain.Role, status domain.Status) bool {
	return contains(table[role].Editable, status)
}

// AllowedTargets returns the statuses a role may move an application into
// from the current status. Empty for terminal statuses and for roles with
// no entry for the current status.
func AllowedTargets(role domain.Role, current domain.Status) []domain.Status {
	return table[role].Transitions[current]
}

// NextRoleFor returns the role to notify when an application enters a
// handoff status, or false if the status is not a handoff.
func NextRoleFor(status domain.Status) (domain.Role, bool) {
	r, ok := handoffNextRole[status]
	return r, ok
}

// ApplicantCanEdit reports whether the owning applicant may still modify
// the application. Control sits with the applicant only before front-line
// intake and after a send-back.
func ApplicantCanEdit(status domain.Status) bool {
	return status == domain.StatusPending || status == domain.StatusReviewingAgain
}

func contains(set []domain.Status, s domain.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
