package service

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/rolegate/portal-client/internal/core/domain"
	"github.com/rolegate/portal-client/internal/core/ports"
	"github.com/rolegate/portal-client/internal/metrics"
)

// ResolveView returns the view that may be shown for requested. Only the
// admin view is restricted; it resolves to home for anyone but an admin.
func ResolveView(requested domain.View, auth domain.AuthState) domain.View {
	switch requested {
	case domain.ViewHome, domain.ViewLogin, domain.ViewRegister:
		return requested
	case domain.ViewAdmin:
		role, ok := auth.Role()
		if !ok {
			return domain.ViewHome
		}
		switch role {
		case domain.RoleAdmin:
			return domain.ViewAdmin
		case domain.RoleModerator, domain.RoleUser:
			return domain.ViewHome
		}
	}
	return domain.ViewHome
}

// SessionGuard is the part of the session controller the access controller
// depends on.
type SessionGuard interface {
	State() domain.AuthState
	Invalidate(generation uint64, err error) bool
}

// AccessController holds the current view. The stored value is always the
// corrected one; there is no separate "requested" view.
type AccessController struct {
	session SessionGuard
	log     zerolog.Logger

	mu      sync.Mutex
	current domain.View
}

var _ ports.AccessService = (*AccessController)(nil)

func NewAccessController(session SessionGuard, log zerolog.Logger) *AccessController {
	return &AccessController{session: session, log: log, current: domain.ViewHome}
}

// Navigate resolves requested against the live auth state and stores the
// result.
func (a *AccessController) Navigate(requested domain.View) domain.View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settle(requested)
}

// Current re-resolves the stored view, so a session lost while on the admin
// view lands on home.
func (a *AccessController) Current() domain.View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settle(a.current)
}

func (a *AccessController) AfterLogin() domain.View        { return a.Navigate(domain.ViewHome) }
func (a *AccessController) AfterRegistration() domain.View { return a.Navigate(domain.ViewLogin) }
func (a *AccessController) AfterLogout() domain.View       { return a.Navigate(domain.ViewHome) }

// Observe feeds an error from an authenticated call back into the session.
// generation is the session generation the call was sent under.
func (a *AccessController) Observe(generation uint64, err error) {
	if err == nil {
		return
	}
	if a.session.Invalidate(generation, err) {
		a.Current()
	}
}

func (a *AccessController) settle(requested domain.View) domain.View {
	resolved := ResolveView(requested, a.session.State())
	if resolved != requested {
		metrics.ViewRedirectsTotal.WithLabelValues(string(requested), string(resolved)).Inc()
		a.log.Debug().Str("requested", string(requested)).Str("resolved", string(resolved)).Msg("view corrected")
	}
	a.current = resolved
	return resolved
}
