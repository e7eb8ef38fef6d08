package notify

import (
	"context"
	"fmt"

	"rgbportal/internal/domain"
	"rgbportal/internal/repo"
)

// Dispatcher persists notifications and then pushes them to live
// subscribers. Persistence failures surface as warnings on the caller's
// result; they never abort the operation that produced the records.
type Dispatcher struct {
	Repo repo.Repo
	Hub  *Hub
}

// Dispatch stores each notification and publishes it to the recipient's
// direct channel. Role channel fanout is the caller's concern since only
// it knows whether the batch is a role handoff.
func (d Dispatcher) Dispatch(ctx context.Context, batch []domain.Notification) []string {
	var warnings []string
	for _, n := range batch {
		if err := d.Repo.InsertNotification(ctx, n); err != nil {
			warnings = append(warnings, fmt.Sprintf("persist notification %s: %v", n.ID, err))
			continue
		}
		d.publish(n)
	}
	return warnings
}

// DispatchToRole additionally publishes each notification on the role's
// shared channel so clients watching the queue see new arrivals.
func (d Dispatcher) DispatchToRole(ctx context.Context, role domain.Role, batch []domain.Notification) []string {
	var warnings []string
	for _, n := range batch {
		if err := d.Repo.InsertNotification(ctx, n); err != nil {
			warnings = append(warnings, fmt.Sprintf("persist notification %s: %v", n.ID, err))
			continue
		}
		d.publish(n)
		if d.Hub != nil {
			d.Hub.Publish(RoleChannel(role), n)
		}
	}
	return warnings
}

func (d Dispatcher) publish(n domain.Notification) {
	if d.Hub == nil {
		return
	}
	switch {
	case n.ApplicantID != nil:
		d.Hub.Publish(ApplicantChannel(*n.ApplicantID), n)
	case n.AdminID != nil:
		d.Hub.Publish(AdminChannel(*n.AdminID), n)
	}
}
