// Package policy decides which actor may move a booking to which status.
// It only reads its arguments; the booking engine enforces the result.
package policy

import (
	"fmt"

	"cabdispatch/internal/domain"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// Related reports whether the actor has any standing on the booking: an
// administrator, the passenger who owns it, or the driver assigned to it.
func Related(actor domain.Actor, booking *domain.Booking) bool {
	if actor.HasRole(domain.RoleAdmin) {
		return true
	}
	if actor.HasRole(domain.RolePassenger) && booking.PassengerID == actor.ID {
		return true
	}
	if actor.HasRole(domain.RoleDriver) && booking.DriverID != "" && booking.DriverID == actor.ID {
		return true
	}
	return false
}

// Decide reports whether actor may request target on booking. An actor
// holding several roles is allowed when any one of them allows the request.
// Whether the edge exists in the lifecycle graph is checked separately.
func Decide(actor domain.Actor, booking *domain.Booking, target domain.BookingStatus) Decision {
	if booking.Status.IsTerminal() {
		return deny("booking is %s", booking.Status)
	}
	if len(actor.Roles) == 0 {
		return deny("actor %q has no roles", actor.ID)
	}

	var first Decision
	for i, role := range actor.Roles {
		d := decideForRole(role, actor, booking, target.Canonical())
		if d.Allowed {
			return d
		}
		if i == 0 {
			first = d
		}
	}
	return first
}

func decideForRole(role domain.Role, actor domain.Actor, booking *domain.Booking, target domain.BookingStatus) Decision {
	switch role {
	case domain.RoleAdmin:
		return allow()

	case domain.RolePassenger:
		if booking.PassengerID != actor.ID {
			return deny("passenger does not own booking")
		}
		if target != domain.BookingStatusCancelled {
			return deny("passengers may only cancel")
		}
		if !booking.Status.Cancellable() {
			return deny("booking can no longer be cancelled from %s", booking.Status)
		}
		return allow()

	case domain.RoleDriver:
		if booking.DriverID == "" || booking.DriverID != actor.ID {
			return deny("driver is not assigned to booking")
		}
		if target != domain.BookingStatusRejected {
			return deny("drivers may only reject; rides are started and completed explicitly")
		}
		return allow()

	default:
		return deny("unknown role %q", role)
	}
}

// CanAssign reports whether actor may assign driverID to a booking.
// Administrators may assign anyone; a driver may only take a booking for themselves.
func CanAssign(actor domain.Actor, driverID string) Decision {
	if actor.HasRole(domain.RoleAdmin) {
		return allow()
	}
	if actor.HasRole(domain.RoleDriver) && actor.ID == driverID {
		return allow()
	}
	return deny("only administrators or the driver themselves may assign")
}

// CanView reports whether actor may read booking.
func CanView(actor domain.Actor, booking *domain.Booking) Decision {
	if Related(actor, booking) {
		return allow()
	}
	return deny("actor is not related to booking")
}
