package service

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rolegate/portal-client/internal/core/domain"
	"github.com/rolegate/portal-client/internal/core/ports"
	"github.com/rolegate/portal-client/internal/metrics"
)

const loginPendingKey = "session:login"

// SessionController owns the in-memory auth state. It is the only writer of
// that state; the credential store is written through the gateway.
//
// Every transition bumps a generation counter. Callers record it before an
// authenticated request so a late rejection can only end the session it
// was sent under.
type SessionController struct {
	gateway ports.Gateway
	pending ports.PendingRegistry
	log     zerolog.Logger

	// transition is held across every store write and the state change
	// that goes with it, so the store and state never disagree.
	transition sync.Mutex

	mu         sync.Mutex
	state      domain.AuthState
	generation uint64
}

var _ ports.SessionService = (*SessionController)(nil)

// NewSessionController derives the initial state from the store. A nil
// pending registry falls back to an in-memory one.
func NewSessionController(store ports.CredentialStore, gateway ports.Gateway, pending ports.PendingRegistry, log zerolog.Logger) *SessionController {
	if pending == nil {
		pending = NewMemoryPending()
	}
	state := domain.Anonymous()
	if session, ok := store.Load(); ok {
		state = domain.Authenticated(session.User)
	}
	log.Debug().Stringer("state", state).Msg("session restored")
	return &SessionController{gateway: gateway, pending: pending, log: log, state: state}
}

func (s *SessionController) State() domain.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Generation identifies the current session. It changes on every login,
// logout and invalidation.
func (s *SessionController) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// commit sets the state. The caller holds s.transition.
func (s *SessionController) commit(state domain.AuthState) {
	s.mu.Lock()
	s.state = state
	s.generation++
	s.mu.Unlock()
}

// Login authenticates and adopts the user the gateway returned. On failure
// the previous state is kept.
func (s *SessionController) Login(ctx context.Context, userID, password string) (domain.User, error) {
	if strings.TrimSpace(userID) == "" || password == "" {
		return domain.User{}, domain.Validation("User ID and password are required")
	}

	release, err := markPending(ctx, s.pending, loginPendingKey, s.log)
	if err != nil {
		return domain.User{}, err
	}
	defer release()

	s.transition.Lock()
	defer s.transition.Unlock()

	session, err := s.gateway.Login(ctx, userID, password)
	if err != nil {
		return domain.User{}, err
	}
	s.commit(domain.Authenticated(session.User))

	metrics.SessionTransitionsTotal.WithLabelValues("authenticated", "login").Inc()
	s.log.Info().Str("userid", session.User.UserID).Str("role", string(session.User.Role)).Msg("logged in")
	return session.User, nil
}

// Register creates an account. It never changes the auth state.
func (s *SessionController) Register(ctx context.Context, profile domain.RegistrationProfile) (string, error) {
	if strings.TrimSpace(profile.Username) == "" || strings.TrimSpace(profile.Email) == "" || profile.Password == "" {
		return "", domain.Validation("Username, email, and password are required")
	}
	return s.gateway.Register(ctx, profile)
}

// Logout discards the session. The state is Anonymous afterwards even when
// the store could not be cleared; that error is still returned. A login in
// flight finishes first.
func (s *SessionController) Logout() error {
	s.transition.Lock()
	defer s.transition.Unlock()

	err := s.gateway.Logout()
	s.commit(domain.Anonymous())

	metrics.SessionTransitionsTotal.WithLabelValues("anonymous", "logout").Inc()
	if err != nil {
		s.log.Error().Err(err).Msg("logout: clear credential store")
		return err
	}
	s.log.Info().Msg("logged out")
	return nil
}

// Invalidate drops the session when err shows the server no longer honours
// it. generation is the value read before the failed request was sent; a
// rejection of an older session is ignored. It reports whether a transition
// happened.
func (s *SessionController) Invalidate(generation uint64, err error) bool {
	if !domain.IsSessionInvalidating(err) {
		return false
	}

	s.transition.Lock()
	defer s.transition.Unlock()

	prev, current := s.State(), s.Generation()
	if !prev.Authenticated() {
		return false
	}
	if current != generation {
		s.log.Debug().Uint64("sent", generation).Uint64("current", current).Msg("ignoring rejection of an earlier session")
		return false
	}

	if clearErr := s.gateway.Logout(); clearErr != nil {
		s.log.Error().Err(clearErr).Msg("invalidate: clear credential store")
	}
	s.commit(domain.Anonymous())

	metrics.SessionTransitionsTotal.WithLabelValues("anonymous", "invalidated").Inc()
	s.log.Warn().Stringer("previous", prev).Str("cause", domain.Message(err)).Msg("session invalidated")
	return true
}
