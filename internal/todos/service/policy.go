package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
	"github.com/aussiebroadwan/tabtodo/internal/todos/metrics"
	"github.com/aussiebroadwan/tabtodo/pkg/slogx"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allow  bool
	Reason string
}

// Err is nil when the decision allows, ErrForbidden otherwise.
func (d Decision) Err() error {
	if d.Allow {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
}

// Authorize decides whether id may act on a resource owned by ownerID that
// needs at least the required role. Administrators may act on anything,
// ADMIN-only resources are closed to everyone else, and otherwise the
// caller must own the resource.
func Authorize(id domain.Identity, ownerID int64, required domain.Role) Decision {
	switch {
	case id.IsAdmin():
		return Decision{Allow: true, Reason: "admin"}
	case required == domain.RoleAdmin:
		return Decision{Reason: "admin role required"}
	case id.SubjectID == ownerID:
		return Decision{Allow: true, Reason: "owner"}
	default:
		return Decision{Reason: "not the owner"}
	}
}

// RequireRole is Authorize without an owned resource. Requiring USER admits
// any authenticated caller.
func RequireRole(id domain.Identity, role domain.Role) Decision {
	switch {
	case id.IsAdmin():
		return Decision{Allow: true, Reason: "admin"}
	case role == domain.RoleAdmin:
		return Decision{Reason: "admin role required"}
	case id.Role.Valid():
		return Decision{Allow: true, Reason: "role"}
	default:
		return Decision{Reason: "unknown role"}
	}
}

// enforce records d and turns a deny into an error.
func enforce(ctx context.Context, m *metrics.Metrics, d Decision) error {
	m.Authorization(d.Allow)
	if !d.Allow {
		slogx.FromContext(ctx).Info("authorization denied", slog.String("reason", d.Reason))
	}
	return d.Err()
}
