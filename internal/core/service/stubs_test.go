package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rolegate/portal-client/internal/core/domain"
	"github.com/rolegate/portal-client/internal/core/ports"
	"github.com/rolegate/portal-client/internal/infrastructure/store"
)

var discardLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// Stub gateway
// ---------------------------------------------------------------------------

// stubGateway behaves like the HTTP gateway towards the store: Login saves
// the session and Logout clears it. Everything else is scripted.
type stubGateway struct {
	store ports.CredentialStore

	loginFn        func(ctx context.Context, userID, password string) (domain.Session, error)
	registerFn     func(ctx context.Context, p domain.RegistrationProfile) (string, error)
	listUsersFn    func(ctx context.Context) ([]domain.RosterEntry, error)
	changeRoleFn   func(ctx context.Context, userID string, role domain.Role) (domain.MutationResult, error)
	toggleStatusFn func(ctx context.Context, userID string) (domain.MutationResult, error)

	mu    sync.Mutex
	calls map[string]int
}

var _ ports.Gateway = (*stubGateway)(nil)

func newStubGateway(st ports.CredentialStore) *stubGateway {
	return &stubGateway{store: st, calls: make(map[string]int)}
}

func (g *stubGateway) count(op string) {
	g.mu.Lock()
	g.calls[op]++
	g.mu.Unlock()
}

func (g *stubGateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *stubGateway) Info(context.Context) (domain.APIInfo, error) {
	g.count("info")
	return domain.APIInfo{Status: "success"}, nil
}

func (g *stubGateway) Login(ctx context.Context, userID, password string) (domain.Session, error) {
	g.count("login")
	if g.loginFn == nil {
		return domain.Session{}, errors.New("login not scripted")
	}
	s, err := g.loginFn(ctx, userID, password)
	if err != nil {
		return domain.Session{}, err
	}
	if err := g.store.Save(s); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

func (g *stubGateway) Register(ctx context.Context, p domain.RegistrationProfile) (string, error) {
	g.count("register")
	if g.registerFn == nil {
		return "registered", nil
	}
	return g.registerFn(ctx, p)
}

func (g *stubGateway) ListUsers(ctx context.Context) ([]domain.RosterEntry, error) {
	g.count("list_users")
	if g.listUsersFn == nil {
		return nil, domain.NewError(domain.KindForbidden, 403, "Access denied. Admin privileges required.")
	}
	return g.listUsersFn(ctx)
}

func (g *stubGateway) ChangeRole(ctx context.Context, userID string, role domain.Role) (domain.MutationResult, error) {
	g.count("change_role")
	if g.changeRoleFn == nil {
		return domain.MutationResult{Success: true, Message: "User role updated to " + string(role) + " successfully"}, nil
	}
	return g.changeRoleFn(ctx, userID, role)
}

func (g *stubGateway) ToggleStatus(ctx context.Context, userID string) (domain.MutationResult, error) {
	g.count("toggle_status")
	if g.toggleStatusFn == nil {
		return domain.MutationResult{Success: true, Message: "User deactivated successfully"}, nil
	}
	return g.toggleStatusFn(ctx, userID)
}

func (g *stubGateway) Logout() error {
	g.count("logout")
	return g.store.Clear()
}

// ---------------------------------------------------------------------------
// Stub store with a failing Clear
// ---------------------------------------------------------------------------

type brokenClearStore struct {
	*store.MemoryStore
}

func (brokenClearStore) Clear() error { return errors.New("disk full") }

// ---------------------------------------------------------------------------
// Stub snapshot
// ---------------------------------------------------------------------------

type stubSnapshot struct {
	mu       sync.Mutex
	entries  []domain.RosterEntry
	upserts  []domain.RosterEntry
	writeErr error
}

func (s *stubSnapshot) Load(context.Context) ([]domain.RosterEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RosterEntry(nil), s.entries...), nil
}

func (s *stubSnapshot) Replace(_ context.Context, entries []domain.RosterEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.entries = append([]domain.RosterEntry(nil), entries...)
	return nil
}

func (s *stubSnapshot) Upsert(_ context.Context, e domain.RosterEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.upserts = append(s.upserts, e)
	return nil
}

// ---------------------------------------------------------------------------
// Stub pending registry that always fails
// ---------------------------------------------------------------------------

type failingPending struct{}

func (failingPending) Acquire(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}
func (failingPending) Release(context.Context, string) error { return nil }

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func user(id, userID string, role domain.Role) domain.User {
	return domain.User{
		ID:        id,
		UserID:    userID,
		Username:  userID,
		Email:     userID + "@example.com",
		Role:      role,
		IsActive:  true,
		CreatedAt: domain.Timestamp{Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
	}
}

func session(token string, u domain.User) domain.Session {
	return domain.Session{Token: token, User: u}
}

func acceptLogin(s domain.Session) func(context.Context, string, string) (domain.Session, error) {
	return func(context.Context, string, string) (domain.Session, error) { return s, nil }
}

// ---------------------------------------------------------------------------
// Stub store whose Clear blocks until released
// ---------------------------------------------------------------------------

type blockingClearStore struct {
	*store.MemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingClearStore() *blockingClearStore {
	return &blockingClearStore{
		MemoryStore: store.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (b *blockingClearStore) Clear() error {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return b.MemoryStore.Clear()
}
