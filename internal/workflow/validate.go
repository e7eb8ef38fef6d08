package workflow

import (
	"fmt"

	"rgbportal/internal/domain"
)

// DenialReason discriminates why a transition was refused.
type DenialReason string

const (
	// NoPermissionForState: the role has no transitions from the current status.
	NoPermissionForState DenialReason = "no_permission_for_state"
	// IllegalTransition: the role acts on this status but not toward the target.
	IllegalTransition DenialReason = "illegal_transition"
)

// DenialError is returned by Validate when a transition is not allowed.
type DenialError struct {
	Reason  DenialReason
	Role    domain.Role
	Current domain.Status
	Target  domain.Status
}

func (e DenialError) Error() string {
	switch e.Reason {
	case NoPermissionForState:
		return fmt.Sprintf("role %s cannot act on application in %s status", e.Role, e.Current)
	default:
		return fmt.Sprintf("invalid status transition %s -> %s for role %s", e.Current, e.Target, e.Role)
	}
}

// Validate decides whether role may move an application from current to
// target. Pure: consults only the table. No-op transitions are always
// denied so the audit trail stays meaningful.
func Validate(role domain.Role, current, target domain.Status) error {
	allowed := AllowedTargets(role, current)
	if len(allowed) == 0 {
		return DenialError{Reason: NoPermissionForState, Role: role, Current: current, Target: target}
	}
	if target == current {
		return DenialError{Reason: IllegalTransition, Role: role, Current: current, Target: target}
	}
	for _, s := range allowed {
		if s == target {
			return nil
		}
	}
	return DenialError{Reason: IllegalTransition, Role: role, Current: current, Target: target}
}
