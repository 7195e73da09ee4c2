package ports

import (
	"context"

	"github.com/rolegate/portal-client/internal/core/domain"
)

// SessionService is the session controller as seen by the shell server and
// the CLI.
type SessionService interface {
	State() domain.AuthState
	Login(ctx context.Context, userID, password string) (domain.User, error)
	Register(ctx context.Context, profile domain.RegistrationProfile) (string, error)
	Logout() error
}

// AccessService holds the corrected current view.
type AccessService interface {
	Navigate(requested domain.View) domain.View
	Current() domain.View
	AfterLogin() domain.View
	AfterRegistration() domain.View
	AfterLogout() domain.View
}

// RosterService is the admin roster cache.
type RosterService interface {
	Entries() []domain.RosterEntry
	Refresh(ctx context.Context) ([]domain.RosterEntry, error)
	ChangeRole(ctx context.Context, userID string, role domain.Role) (domain.MutationResult, error)
	ToggleStatus(ctx context.Context, userID string) (domain.MutationResult, error)
}
