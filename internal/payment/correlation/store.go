package correlation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/nilemart/storefront/internal/payment/domain"
	redis "github.com/redis/go-redis/v9"
)

const defaultTTL = 30 * time.Minute

// Store stashes an order id against a random session token for the
// synchronous redirect path. Tokens are read once: Consume removes the
// entry, so a replayed redirect finds nothing.
type Store interface {
	Issue(ctx context.Context, orderID snowflake.ID) (string, error)
	Consume(ctx context.Context, token string) (snowflake.ID, error)
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client, ttl: defaultTTL}
}

func (s *redisStore) Issue(ctx context.Context, orderID snowflake.ID) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, key(token), orderID.String(), s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *redisStore) Consume(ctx context.Context, token string) (snowflake.ID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, domain.ErrCorrelationExpired
	}
	raw, err := s.client.GetDel(ctx, key(token)).Result()
	if err == redis.Nil {
		return 0, domain.ErrCorrelationExpired
	}
	if err != nil {
		return 0, err
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, domain.ErrCorrelationExpired
	}
	return id, nil
}

func key(token string) string {
	return "payment:session:" + token
}

type memoryEntry struct {
	orderID   snowflake.ID
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

// NewMemoryStore backs redis-less deployments and tests.
func NewMemoryStore() Store {
	return &memoryStore{entries: map[string]memoryEntry{}, ttl: defaultTTL}
}

func (s *memoryStore) Issue(ctx context.Context, orderID snowflake.ID) (string, error) {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for existing, entry := range s.entries {
		if entry.expiresAt.Before(now) {
			delete(s.entries, existing)
		}
	}
	s.entries[token] = memoryEntry{orderID: orderID, expiresAt: now.Add(s.ttl)}
	return token, nil
}

func (s *memoryStore) Consume(ctx context.Context, token string) (snowflake.ID, error) {
	token = strings.TrimSpace(token)
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	if !ok {
		return 0, domain.ErrCorrelationExpired
	}
	delete(s.entries, token)
	if entry.expiresAt.Before(time.Now()) {
		return 0, domain.ErrCorrelationExpired
	}
	return entry.orderID, nil
}
