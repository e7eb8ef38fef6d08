package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgbportal/internal/domain"
)

func TestValidateAllowsTableEntries(t *testing.T) {
	for _, role := range domain.Roles() {
		p, _ := PermissionsFor(role)
		for from, targets := range p.Transitions {
			for _, to := range targets {
				assert.NoError(t, Validate(role, from, to), "%s: %s -> %s", role, from, to)
			}
		}
	}
}

func TestValidateDeniesOutsideTable(t *testing.T) {
	err := Validate(domain.RoleFBOOfficer, domain.StatusPending, domain.StatusApproved)
	var denial DenialError
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, IllegalTransition, denial.Reason)
	assert.Equal(t, domain.RoleFBOOfficer, denial.Role)
}

func TestValidateDeniesForeignState(t *testing.T) {
	// DM has no transitions from PENDING at all.
	err := Validate(domain.RoleDivisionManager, domain.StatusPending, domain.StatusDMReview)
	var denial DenialError
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, NoPermissionForState, denial.Reason)
}

func TestValidateDeniesNoOp(t *testing.T) {
	err := Validate(domain.RoleFBOOfficer, domain.StatusPending, domain.StatusPending)
	var denial DenialError
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, IllegalTransition, denial.Reason)
}

func TestValidateDeniesFromTerminal(t *testing.T) {
	for _, role := range domain.Roles() {
		for _, terminal := range []domain.Status{domain.StatusRejected, domain.StatusCertificateIssued} {
			err := Validate(role, terminal, domain.StatusPending)
			var denial DenialError
			require.True(t, errors.As(err, &denial), "%s from %s: got %v", role, terminal, err)
			assert.Equal(t, NoPermissionForState, denial.Reason)
		}
	}
}

func TestSkippingLevelsDenied(t *testing.T) {
	// FBO review cannot jump straight to the secretary general.
	err := Validate(domain.RoleFBOOfficer, domain.StatusFBOReview, domain.StatusTransferToSG)
	var denial DenialError
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, IllegalTransition, denial.Reason)
}
