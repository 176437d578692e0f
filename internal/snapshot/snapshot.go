// Package snapshot holds the canonical dataset built from the scouting store and rebuilds it
// when the store changes.
package snapshot

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pable/go-scout-metrics/internal/logger"
	"github.com/pable/go-scout-metrics/internal/model"
	"github.com/pable/go-scout-metrics/internal/normalize"
)

// Source is the backing store of raw scouting rows.
type Source interface {
	// ModTime reports the store's last modification; exists is false before anything was written.
	ModTime() (mod time.Time, exists bool, err error)
	Load() ([]model.RawRecord, error)
}

// Observer is notified of cache activity. Implementations must be safe for concurrent use.
type Observer interface {
	CacheHit()
	Rebuilt(ds *model.Dataset, st normalize.Stats, took time.Duration)
	RebuildFailed(err error)
}

// Config carries the optional collaborators of a Cache.
type Config struct {
	Log       *logger.Logger
	Now       func() time.Time
	Observers []Observer
}

type entry struct {
	ds  *model.Dataset
	mod time.Time
}

// Cache serves the current dataset. Readers never block on each other; at most one rebuild
// runs at a time and its result is published with a single pointer swap.
type Cache struct {
	src   Source
	log   *logger.Logger
	now   func() time.Time
	obs   []Observer
	group singleflight.Group

	cur   atomic.Pointer[entry]
	dirty atomic.Bool
}

func New(src Source, cfg Config) *Cache {
	c := &Cache{src: src, log: cfg.Log, now: cfg.Now, obs: cfg.Observers}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Get returns the current dataset, rebuilding it first when the store has changed since the
// last build, when Invalidate was called, or when force is set. A store that does not exist
// yet yields an empty dataset.
//
// If a rebuild fails while an earlier snapshot exists, the earlier snapshot is served.
func (c *Cache) Get(force bool) (*model.Dataset, error) {
	mod, exists, err := c.src.ModTime()
	if err != nil {
		if prev := c.cur.Load(); prev != nil {
			c.log.Warn("stat scouting store failed, serving previous snapshot", "error", err)
			return prev.ds, nil
		}
		return nil, fmt.Errorf("stat scouting store: %w", err)
	}
	if !exists {
		c.cur.Store(nil)
		return model.Empty(), nil
	}

	if prev := c.cur.Load(); prev != nil && !force && !c.dirty.Load() && prev.mod.Equal(mod) {
		for _, o := range c.obs {
			o.CacheHit()
		}
		return prev.ds, nil
	}

	v, err, _ := c.group.Do("rebuild", func() (any, error) {
		return c.rebuild(mod)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Dataset), nil
}

// Invalidate forces the next Get to rebuild, for writers whose change may not move the
// store's modification time (coarse filesystem timestamps).
func (c *Cache) Invalidate() {
	c.dirty.Store(true)
}

// Current returns the last built dataset without touching the store; nil before the first build.
func (c *Cache) Current() *model.Dataset {
	if e := c.cur.Load(); e != nil {
		return e.ds
	}
	return nil
}

func (c *Cache) rebuild(mod time.Time) (*model.Dataset, error) {
	start := c.now()
	c.dirty.Store(false)

	raws, err := c.src.Load()
	if err != nil {
		c.dirty.Store(true)
		for _, o := range c.obs {
			o.RebuildFailed(err)
		}
		if prev := c.cur.Load(); prev != nil {
			c.log.Warn("snapshot rebuild failed, serving previous snapshot", "error", err, "records", prev.ds.Len())
			return prev.ds, nil
		}
		return nil, fmt.Errorf("load scouting store: %w", err)
	}

	recs, st := normalize.Normalize(raws, c.log)
	recs = normalize.Deduplicate(recs)
	ds := model.NewDataset(recs, mod, c.now())
	c.cur.Store(&entry{ds: ds, mod: mod})

	took := c.now().Sub(start)
	c.log.Info("snapshot rebuilt",
		"rows", st.Rows, "records", ds.Len(), "dropped", st.Dropped,
		"malformed_cells", st.MalformedCells, "took", took)
	for _, o := range c.obs {
		o.Rebuilt(ds, st, took)
	}
	return ds, nil
}
