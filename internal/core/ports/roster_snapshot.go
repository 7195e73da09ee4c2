package ports

import (
	"context"

	"github.com/rolegate/portal-client/internal/core/domain"
)

// RosterSnapshot keeps the last confirmed roster so a new process can show
// it before the first refresh.
type RosterSnapshot interface {
	Load(ctx context.Context) ([]domain.RosterEntry, error)
	Replace(ctx context.Context, entries []domain.RosterEntry) error
	Upsert(ctx context.Context, entry domain.RosterEntry) error
}
