package directory

import (
	"context"
	"sync"
)

// Lister is the read-only directory contract the cache refreshes from.
type Lister interface {
	ListMentionableUsers(ctx context.Context) ([]User, error)
}

// Cache holds a per-session snapshot of the directory for the suggestion
// engine. Refresh failures keep the previous snapshot intact: a stale or
// empty directory degrades suggestion quality but never breaks composition.
// Self-exclusion lives here so every consumer sees the same policy.
type Cache struct {
	mu       sync.RWMutex
	source   Lister
	selfID   string
	snapshot []User
}

// NewCache constructs a cache bound to the session owner's identity.
func NewCache(source Lister, selfID string) *Cache {
	return &Cache{source: source, selfID: selfID}
}

// Refresh replaces the snapshot from the directory source. On error the
// existing snapshot is retained and the error is returned for logging only.
func (c *Cache) Refresh(ctx context.Context) error {
	users, err := c.source.ListMentionableUsers(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.snapshot = users
	c.mu.Unlock()
	return nil
}

// Snapshot returns the cached directory with the session owner excluded.
func (c *Cache) Snapshot() []User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	filtered := make([]User, 0, len(c.snapshot))
	for _, user := range c.snapshot {
		if user.ID == c.selfID {
			continue
		}
		filtered = append(filtered, user)
	}
	return filtered
}

// SelfID reports the identity the cache excludes from snapshots.
func (c *Cache) SelfID() string {
	return c.selfID
}
