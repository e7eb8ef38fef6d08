package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgbportal/internal/domain"
)

func TestEveryRoleHasPermissions(t *testing.T) {
	for _, role := range domain.Roles() {
		p, ok := PermissionsFor(role)
		require.True(t, ok, "role %s missing from table", role)
		assert.NotEmpty(t, p.Viewable, "role %s has no viewable statuses", role)
		assert.NotEmpty(t, p.Transitions, "role %s has no transitions", role)
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	for _, role := range domain.Roles() {
		assert.Empty(t, AllowedTargets(role, domain.StatusRejected))
		assert.Empty(t, AllowedTargets(role, domain.StatusCertificateIssued))
	}
}

func TestTransitionTargetsAreEditable(t *testing.T) {
	// A role can only act from statuses it can also see.
	for _, role := range domain.Roles() {
		p, _ := PermissionsFor(role)
		for from := range p.Transitions {
			assert.True(t, CanView(role, from), "role %s transitions from %s but cannot view it", role, from)
			assert.True(t, CanEdit(role, from), "role %s transitions from %s but cannot edit it", role, from)
		}
	}
}

func TestEscalationChain(t *testing.T) {
	// Each role hands off to exactly the next role in the chain.
	steps := []struct {
		role    domain.Role
		review  domain.Status
		handoff domain.Status
	}{
		{domain.RoleFBOOfficer, domain.StatusFBOReview, domain.StatusTransferToDM},
		{domain.RoleDivisionManager, domain.StatusDMReview, domain.StatusTransferToHOD},
		{domain.RoleHOD, domain.StatusHODReview, domain.StatusTransferToSG},
		{domain.RoleSecretaryGeneral, domain.StatusSGReview, domain.StatusTransferToCEO},
	}
	for _, step := range steps {
		assert.Contains(t, AllowedTargets(step.role, step.review), step.handoff,
			"%s cannot hand off from %s", step.role, step.review)
	}
	assert.Contains(t, AllowedTargets(domain.RoleCEO, domain.StatusCEOReview), domain.StatusApproved)
}

func TestSendBackAvailableFromEveryReview(t *testing.T) {
	reviews := map[domain.Role]domain.Status{
		domain.RoleFBOOfficer:       domain.StatusFBOReview,
		domain.RoleDivisionManager:  domain.StatusDMReview,
		domain.RoleHOD:              domain.StatusHODReview,
		domain.RoleSecretaryGeneral: domain.StatusSGReview,
		domain.RoleCEO:              domain.StatusCEOReview,
	}
	for role, review := range reviews {
		assert.Contains(t, AllowedTargets(role, review), domain.StatusReviewingAgain,
			"%s cannot send back from %s", role, review)
	}
}

func TestRejectionRestrictedToTopRoles(t *testing.T) {
	assert.Contains(t, AllowedTargets(domain.RoleSecretaryGeneral, domain.StatusSGReview), domain.StatusRejected)
	assert.Contains(t, AllowedTargets(domain.RoleCEO, domain.StatusCEOReview), domain.StatusRejected)
	for _, role := range []domain.Role{domain.RoleFBOOfficer, domain.RoleDivisionManager, domain.RoleHOD} {
		p, _ := PermissionsFor(role)
		for from, targets := range p.Transitions {
			assert.NotContains(t, targets, domain.StatusRejected,
				"%s may reject from %s", role, from)
		}
	}
}

func TestNextRoleForHandoffs(t *testing.T) {
	expect := map[domain.Status]domain.Role{
		domain.StatusPending:       domain.RoleFBOOfficer,
		domain.StatusTransferToDM:  domain.RoleDivisionManager,
		domain.StatusTransferToHOD: domain.RoleHOD,
		domain.StatusTransferToSG:  domain.RoleSecretaryGeneral,
		domain.StatusTransferToCEO: domain.RoleCEO,
	}
	for status, role := range expect {
		got, ok := NextRoleFor(status)
		require.True(t, ok, "no next role for %s", status)
		assert.Equal(t, role, got)
	}
	_, ok := NextRoleFor(domain.StatusFBOReview)
	assert.False(t, ok)
	_, ok = NextRoleFor(domain.StatusRejected)
	assert.False(t, ok)
}

func TestApplicantCanEdit(t *testing.T) {
	assert.True(t, ApplicantCanEdit(domain.StatusPending))
	assert.True(t, ApplicantCanEdit(domain.StatusReviewingAgain))
	for _, status := range domain.Statuses() {
		if status == domain.StatusPending || status == domain.StatusReviewingAgain {
			continue
		}
		assert.False(t, ApplicantCanEdit(status), "applicant may edit in %s", status)
	}
}
