package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const chatKeyPrefix = "assignments:chat:"

// cacheClient is the part of redis.Client the cache uses
type cacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedStore keeps per-chat listings in Redis in front of another store. It
// owns the cached keys and drops a chat's key on every write to that chat.
// GetAll always goes to the underlying store.
//
// Every write to a chat also bumps the chat's generation. An entry is served
// only if it was written under the current generation of this process, so a
// listing read before a write can't be served after it, even when the write
// lands between the read and the cache fill or the key can't be dropped.
type CachedStore struct {
	Store
	client cacheClient
	ttl    time.Duration
	logger *zap.SugaredLogger

	epoch string
	mux   sync.Mutex
	gens  map[int64]uint64
}

// cacheEntry is what a chat key holds.
type cacheEntry struct {
	Epoch string                `json:"epoch"`
	Gen   uint64                `json:"gen"`
	Set   map[string]Assignment `json:"set"`
}

func NewCachedStore(s Store, client cacheClient, ttl time.Duration, l *zap.SugaredLogger) *CachedStore {
	if l == nil {
		l = zap.NewNop().Sugar()
	}
	return &CachedStore{
		Store:  s,
		client: client,
		ttl:    ttl,
		logger: l,
		epoch:  uuid.NewString(),
		gens:   make(map[int64]uint64),
	}
}

func chatKey(chatID int64) string {
	return fmt.Sprintf("%s%d", chatKeyPrefix, chatID)
}

func (c *CachedStore) Create(ctx context.Context, a *Assignment) (string, error) {
	id, err := c.Store.Create(ctx, a)
	if err != nil {
		return "", err
	}

	c.invalidate(ctx, a.ChatID)
	return id, nil
}

// GetByField serves chat listings from the cache; other fields go to the
// underlying store.
func (c *CachedStore) GetByField(ctx context.Context, field string, value any) (map[string]Assignment, error) {
	chatID, ok := value.(int64)
	if field != FieldChatID || !ok {
		return c.Store.GetByField(ctx, field, value)
	}

	key := chatKey(chatID)
	gen := c.gen(chatID)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var e cacheEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			c.logger.Warnw("dropping malformed cache entry", "key", key)
			break
		}
		if e.Epoch == c.epoch && e.Gen == gen {
			return e.Set, nil
		}
	case !errors.Is(err, redis.Nil):
		c.logger.Warnw("failed reading cache", "key", key, "err", err)
	}

	set, err := c.Store.GetByField(ctx, field, value)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cacheEntry{Epoch: c.epoch, Gen: gen, Set: set})
	if err != nil {
		c.logger.Warnw("failed encoding cache entry", "key", key, "err", err)
		return set, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warnw("failed writing cache", "key", key, "err", err)
	}

	return set, nil
}

func (c *CachedStore) Update(ctx context.Context, id string, d Details) error {
	a, err := c.Store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := c.Store.Update(ctx, id, d); err != nil {
		return err
	}

	c.invalidate(ctx, a.ChatID)
	return nil
}

func (c *CachedStore) Delete(ctx context.Context, id string) error {
	a, err := c.Store.Get(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Store.Delete(ctx, id)
	case err != nil:
		return err
	}

	if err := c.Store.Delete(ctx, id); err != nil {
		return err
	}

	c.invalidate(ctx, a.ChatID)
	return nil
}

func (c *CachedStore) gen(chatID int64) uint64 {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.gens[chatID]
}

// invalidate makes entries written so far stale and drops the chat key. A
// failed drop only leaves a stale entry behind until it expires.
func (c *CachedStore) invalidate(ctx context.Context, chatID int64) {
	c.mux.Lock()
	c.gens[chatID]++
	c.mux.Unlock()

	if err := c.client.Del(ctx, chatKey(chatID)).Err(); err != nil {
		c.logger.Warnw("failed invalidating cache", "chat", chatID, "err", err)
	}
}
