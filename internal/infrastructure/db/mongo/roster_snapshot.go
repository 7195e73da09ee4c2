package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rolegate/portal-client/internal/core/domain"
	"github.com/rolegate/portal-client/internal/core/ports"
)

const rosterCollection = "roster_entries"

// RosterSnapshot keeps the last confirmed roster in MongoDB, one document
// per account keyed by the server id.
type RosterSnapshot struct {
	coll *mongo.Collection
}

var _ ports.RosterSnapshot = (*RosterSnapshot)(nil)

func NewRosterSnapshot(db *mongo.Database) *RosterSnapshot {
	return &RosterSnapshot{coll: db.Collection(rosterCollection)}
}

type rosterDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userid"`
	Username  string    `bson:"username"`
	Email     string    `bson:"email"`
	Mobile    string    `bson:"mobile"`
	Role      string    `bson:"role"`
	IsActive  bool      `bson:"is_active"`
	CreatedAt time.Time `bson:"created_at"`
	SyncedAt  time.Time `bson:"synced_at"`
}

func toDoc(e domain.RosterEntry, now time.Time) rosterDoc {
	return rosterDoc{
		ID:        e.ID,
		UserID:    e.UserID,
		Username:  e.Username,
		Email:     e.Email,
		Mobile:    e.Mobile,
		Role:      string(e.Role),
		IsActive:  e.IsActive,
		CreatedAt: e.CreatedAt.Time,
		SyncedAt:  now,
	}
}

func (d rosterDoc) entry() (domain.RosterEntry, error) {
	role, err := domain.ParseRole(d.Role)
	if err != nil {
		return domain.RosterEntry{}, fmt.Errorf("roster entry %s: %w", d.ID, err)
	}
	created := d.CreatedAt
	if !created.IsZero() {
		created = created.UTC()
	}
	return domain.RosterEntry{
		ID:        d.ID,
		UserID:    d.UserID,
		Username:  d.Username,
		Email:     d.Email,
		Mobile:    d.Mobile,
		Role:      role,
		IsActive:  d.IsActive,
		CreatedAt: domain.Timestamp{Time: created},
	}, nil
}

// Load returns the stored entries ordered by creation time.
func (s *RosterSnapshot) Load(ctx context.Context) ([]domain.RosterEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "userid", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find roster: %w", err)
	}
	defer cur.Close(ctx)

	var docs []rosterDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}

	entries := make([]domain.RosterEntry, 0, len(docs))
	for _, d := range docs {
		e, err := d.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Replace makes the collection hold exactly entries.
func (s *RosterSnapshot) Replace(ctx context.Context, entries []domain.RosterEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	ids := make([]string, 0, len(entries))
	now := time.Now().UTC()
	for _, e := range entries {
		if err := s.upsert(ctx, toDoc(e, now)); err != nil {
			return err
		}
		ids = append(ids, e.ID)
	}

	if _, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$nin": ids}}); err != nil {
		return fmt.Errorf("prune roster: %w", err)
	}
	return nil
}

// Upsert stores one confirmed entry.
func (s *RosterSnapshot) Upsert(ctx context.Context, entry domain.RosterEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return s.upsert(ctx, toDoc(entry, time.Now().UTC()))
}

func (s *RosterSnapshot) upsert(ctx context.Context, doc rosterDoc) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert roster entry %s: %w", doc.ID, err)
	}
	return nil
}
