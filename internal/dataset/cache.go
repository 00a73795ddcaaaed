package dataset

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes snapshots by source so the parse cost is paid once per
// process no matter how many sessions ask for the data. singleflight
// collapses concurrent first loads into a single file read.
type Cache struct {
	sf    singleflight.Group
	mu    sync.RWMutex
	snaps map[string]*Snapshot
}

// NewCache returns an empty snapshot cache.
func NewCache() *Cache {
	return &Cache{snaps: make(map[string]*Snapshot)}
}

// Load returns the memoized snapshot for src, loading it on first use.
// Subsequent calls with the same source perform no file I/O and return
// the same *Snapshot.
func (c *Cache) Load(ctx context.Context, src Source) (*Snapshot, error) {
	key := cacheKey(src)

	c.mu.RLock()
	snap, ok := c.snaps[key]
	c.mu.RUnlock()
	if ok {
		return snap, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		c.mu.RLock()
		snap, ok := c.snaps[key]
		c.mu.RUnlock()
		if ok {
			return snap, nil
		}

		loaded, err := Load(ctx, src)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.snaps[key] = loaded
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func cacheKey(src Source) string {
	return strings.Join(src.Parts, "\x00") + "\x00" + src.ActivityLookup
}
