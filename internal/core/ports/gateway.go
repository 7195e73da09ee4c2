package ports

import (
	"context"

	"github.com/rolegate/portal-client/internal/core/domain"
)

// Gateway is the only path to the backend. Every error it returns is a
// *domain.Error.
type Gateway interface {
	Info(ctx context.Context) (domain.APIInfo, error)
	// Login persists the returned session through the credential store
	// before returning it.
	Login(ctx context.Context, userID, password string) (domain.Session, error)
	Register(ctx context.Context, profile domain.RegistrationProfile) (string, error)
	ListUsers(ctx context.Context) ([]domain.RosterEntry, error)
	ChangeRole(ctx context.Context, userID string, role domain.Role) (domain.MutationResult, error)
	ToggleStatus(ctx context.Context, userID string) (domain.MutationResult, error)
	// Logout discards the stored session. No request is made.
	Logout() error
}
