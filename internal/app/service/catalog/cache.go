package catalog

import (
	"sync"
	"time"

	"github.com/lumostore/topup/internal/models"
)

// Snapshot is a point-in-time view of a game's purchasable products, handed
// to the pricing engine. Loading always happens before the transaction it
// prices is created, so a cached entry can never postdate the order.
type Snapshot struct {
	GameID   uint
	LoadedAt time.Time
	Products map[uint]*models.Product
}

// snapshotCache is a per-game TTL cache. Catalog data is read-mostly;
// serving a snapshot at most ttl old is acceptable.
type snapshotCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uint]*Snapshot
}

func newSnapshotCache(ttl time.Duration) *snapshotCache {
	return &snapshotCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uint]*Snapshot),
	}
}

func (c *snapshotCache) get(gameID uint) *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.entries[gameID]
	if !ok || c.now().Sub(snap.LoadedAt) > c.ttl {
		return nil
	}
	return snap
}

func (c *snapshotCache) put(snap *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[snap.GameID] = snap
}

func (c *snapshotCache) invalidate(gameID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, gameID)
}
