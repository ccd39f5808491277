package catalog

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	reel      Reel
	expiresAt time.Time
}

// CachedStore is a read-through TTL cache in front of another Store. Writes
// go straight to the backing store and evict the cached copy.
type CachedStore struct {
	next Store
	ttl  time.Duration
	now  func() time.Time

	mu    sync.Mutex
	items map[string]cacheEntry
}

func NewCachedStore(next Store, ttl time.Duration) *CachedStore {
	return &CachedStore{next: next, ttl: ttl, now: time.Now, items: make(map[string]cacheEntry)}
}

func (c *CachedStore) Reel(ctx context.Context, id string) (Reel, error) {
	if r, ok := c.get(id, c.now()); ok {
		return r, nil
	}
	r, err := c.next.Reel(ctx, id)
	if err != nil {
		return Reel{}, err
	}
	c.set(id, r, c.now())
	return r, nil
}

func (c *CachedStore) SaveReel(ctx context.Context, reel Reel) (Reel, error) {
	saved, err := c.next.SaveReel(ctx, reel)
	c.evict(reel.ID)
	if err != nil {
		return Reel{}, err
	}
	c.evict(saved.ID)
	return saved, nil
}

func (c *CachedStore) DeleteReel(ctx context.Context, id string) error {
	err := c.next.DeleteReel(ctx, id)
	c.evict(id)
	return err
}

func (c *CachedStore) get(id string, now time.Time) (Reel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.items[id]
	if !ok {
		return Reel{}, false
	}
	if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
		delete(c.items, id)
		return Reel{}, false
	}
	return cloneReel(entry.reel), true
}

func (c *CachedStore) set(id string, r Reel, now time.Time) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.items[id] = cacheEntry{reel: cloneReel(r), expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
}

func (c *CachedStore) evict(id string) {
	c.mu.Lock()
	delete(c.items, id)
	c.mu.Unlock()
}
