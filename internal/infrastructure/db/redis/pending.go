package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rolegate/portal-client/internal/core/ports"
)

const defaultPendingTTL = time.Minute

// releaseScript deletes the marker only when this registry set it, so a
// marker that expired and was re-acquired elsewhere survives.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// PendingRegistry shares in-flight markers between processes through Redis.
// Key format: pending:<target>
//
// A marker outlives a crashed holder by at most the TTL.
type PendingRegistry struct {
	client *redis.Client
	ttl    time.Duration
	owner  string
}

var _ ports.PendingRegistry = (*PendingRegistry)(nil)

// NewPendingRegistry wraps client. A non-positive ttl uses one minute.
func NewPendingRegistry(client *redis.Client, ttl time.Duration) *PendingRegistry {
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	return &PendingRegistry{client: client, ttl: ttl, owner: uuid.NewString()}
}

// Acquire sets the marker unless another holder already has it.
func (p *PendingRegistry) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := p.client.SetNX(ctx, p.key(key), p.owner, p.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("pending acquire: %w", err)
	}
	return ok, nil
}

func (p *PendingRegistry) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, p.client, []string{p.key(key)}, p.owner).Err(); err != nil {
		return fmt.Errorf("pending release: %w", err)
	}
	return nil
}

func (p *PendingRegistry) key(k string) string {
	return "pending:" + k
}
