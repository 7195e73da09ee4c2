package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rolegate/portal-client/internal/core/domain"
	"github.com/rolegate/portal-client/internal/core/ports"
	"github.com/rolegate/portal-client/internal/metrics"
)

// Identity reports who is signed in and which session that is.
type Identity interface {
	State() domain.AuthState
	Generation() uint64
}

// ErrorObserver receives errors from authenticated calls, together with the
// session generation the call was sent under.
type ErrorObserver interface {
	Observe(generation uint64, err error)
}

// RosterService caches the admin user list. Entries change only after the
// server confirms a mutation, and the cache belongs to the session that
// filled it: once the session changes it reads as empty.
type RosterService struct {
	gateway  ports.Gateway
	identity Identity
	observer ErrorObserver
	pending  ports.PendingRegistry
	snapshot ports.RosterSnapshot
	log      zerolog.Logger

	mu         sync.Mutex
	entries    []domain.RosterEntry
	generation uint64
}

var _ ports.RosterService = (*RosterService)(nil)

// NewRosterService wires the roster. observer and snapshot may be nil; a nil
// pending registry falls back to an in-memory one.
func NewRosterService(
	gateway ports.Gateway,
	identity Identity,
	observer ErrorObserver,
	pending ports.PendingRegistry,
	snapshot ports.RosterSnapshot,
	log zerolog.Logger,
) *RosterService {
	if pending == nil {
		pending = NewMemoryPending()
	}
	return &RosterService{
		gateway:  gateway,
		identity: identity,
		observer: observer,
		pending:  pending,
		snapshot: snapshot,
		log:      log,
	}
}

// Entries returns a copy of the cache.
func (r *RosterService) Entries() []domain.RosterEntry {
	generation := r.identity.Generation()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropStale(generation)
	return append([]domain.RosterEntry(nil), r.entries...)
}

// dropStale empties a cache filled under another session. r.mu is held.
func (r *RosterService) dropStale(generation uint64) {
	if r.generation != generation {
		r.entries = nil
		r.generation = generation
	}
}

// fill replaces the cache unless the session changed since generation was
// read. r.mu is held.
func (r *RosterService) fill(generation uint64, entries []domain.RosterEntry) bool {
	if current := r.identity.Generation(); current != generation {
		r.dropStale(current)
		return false
	}
	r.entries = entries
	r.generation = generation
	return true
}

// Refresh replaces the cache with the server's list. On failure the cache is
// left as it was.
func (r *RosterService) Refresh(ctx context.Context) ([]domain.RosterEntry, error) {
	generation := r.identity.Generation()
	users, err := r.gateway.ListUsers(ctx)
	if err != nil {
		r.observe(generation, err)
		return nil, err
	}

	r.mu.Lock()
	kept := r.fill(generation, append([]domain.RosterEntry(nil), users...))
	r.mu.Unlock()
	if !kept {
		r.log.Debug().Msg("session changed during refresh; result not cached")
		return append([]domain.RosterEntry(nil), users...), nil
	}
	metrics.RosterSize.Set(float64(len(users)))

	if r.snapshot != nil {
		if err := r.snapshot.Replace(ctx, users); err != nil {
			r.log.Warn().Err(err).Msg("roster snapshot replace")
		}
	}
	r.log.Debug().Int("entries", len(users)).Msg("roster refreshed")
	return append([]domain.RosterEntry(nil), users...), nil
}

// Warm fills the cache from the snapshot, if one is configured.
func (r *RosterService) Warm(ctx context.Context) error {
	if r.snapshot == nil {
		return nil
	}
	generation := r.identity.Generation()
	entries, err := r.snapshot.Load(ctx)
	if err != nil {
		return fmt.Errorf("load roster snapshot: %w", err)
	}

	r.mu.Lock()
	r.fill(generation, entries)
	r.mu.Unlock()
	metrics.RosterSize.Set(float64(len(entries)))
	return nil
}

func (r *RosterService) ChangeRole(ctx context.Context, userID string, role domain.Role) (domain.MutationResult, error) {
	const action = "change_role"
	if userID == "" {
		return domain.MutationResult{}, r.rejected(action, domain.Validation("User ID is required"))
	}
	if !role.Valid() {
		return domain.MutationResult{}, r.rejected(action, domain.Validation("Invalid role"))
	}
	if r.isSelf(userID) && role != domain.RoleAdmin {
		return domain.MutationResult{}, r.rejected(action, domain.Validation("Cannot change your own admin role"))
	}

	return r.mutate(ctx, action, userID, func() (domain.MutationResult, error) {
		return r.gateway.ChangeRole(ctx, userID, role)
	}, func(e *domain.RosterEntry) {
		e.Role = role
	})
}

func (r *RosterService) ToggleStatus(ctx context.Context, userID string) (domain.MutationResult, error) {
	const action = "toggle_status"
	if userID == "" {
		return domain.MutationResult{}, r.rejected(action, domain.Validation("User ID is required"))
	}
	if r.isSelf(userID) {
		return domain.MutationResult{}, r.rejected(action, domain.Validation("Cannot deactivate your own account"))
	}

	return r.mutate(ctx, action, userID, func() (domain.MutationResult, error) {
		return r.gateway.ToggleStatus(ctx, userID)
	}, func(e *domain.RosterEntry) {
		e.IsActive = !e.IsActive
	})
}

// mutate runs send under the target's pending marker and applies the change
// to the cached entry only after the server confirms it.
func (r *RosterService) mutate(
	ctx context.Context,
	action, userID string,
	send func() (domain.MutationResult, error),
	apply func(*domain.RosterEntry),
) (domain.MutationResult, error) {
	release, err := markPending(ctx, r.pending, "roster:"+userID, r.log)
	if err != nil {
		metrics.RosterMutationsTotal.WithLabelValues(action, "pending").Inc()
		return domain.MutationResult{}, err
	}
	defer release()

	generation := r.identity.Generation()
	res, err := send()
	if err != nil {
		metrics.RosterMutationsTotal.WithLabelValues(action, "failed").Inc()
		r.observe(generation, err)
		return domain.MutationResult{}, err
	}

	var (
		updated domain.RosterEntry
		found   bool
	)
	r.mu.Lock()
	r.dropStale(r.identity.Generation())
	for i := range r.entries {
		if r.entries[i].ID == userID {
			apply(&r.entries[i])
			updated, found = r.entries[i], true
			break
		}
	}
	r.mu.Unlock()

	metrics.RosterMutationsTotal.WithLabelValues(action, "applied").Inc()
	r.log.Info().Str("action", action).Str("user_id", userID).Msg(res.Message)

	if found && r.snapshot != nil {
		if err := r.snapshot.Upsert(ctx, updated); err != nil {
			r.log.Warn().Err(err).Str("user_id", userID).Msg("roster snapshot upsert")
		}
	}
	return res, nil
}

func (r *RosterService) isSelf(userID string) bool {
	u, ok := r.identity.State().User()
	return ok && u.ID == userID
}

func (r *RosterService) rejected(action string, err *domain.Error) error {
	metrics.RosterMutationsTotal.WithLabelValues(action, "rejected").Inc()
	return err
}

func (r *RosterService) observe(generation uint64, err error) {
	if r.observer != nil {
		r.observer.Observe(generation, err)
	}
}
