package client

import (
	"cmp"
	"slices"

	"github.com/erazemk/ecopickup/internal/model"
)

// cache is the engine's local copy of the pickups a session can see.
// Every read carries the request number it was issued under; a read
// never overwrites a pickup with data from an older request, and a
// pickup's status never moves backwards.
type cache struct {
	pickups map[int64]model.Pickup
	readSeq map[int64]uint64

	analytics    *model.Analytics
	analyticsSeq uint64
}

func newCache() *cache {
	return &cache{
		pickups: make(map[int64]model.Pickup),
		readSeq: make(map[int64]uint64),
	}
}

// put stores p read under seq and reports whether the cache changed.
func (c *cache) put(seq uint64, p model.Pickup) bool {
	if seq < c.readSeq[p.ID] {
		return false
	}
	c.readSeq[p.ID] = seq
	old, ok := c.pickups[p.ID]
	if ok && model.StatusRank(p.Status) < model.StatusRank(old.Status) {
		return false
	}
	if ok && old.Status == p.Status && old.UpdatedAt.Equal(p.UpdatedAt) {
		return false
	}
	c.pickups[p.ID] = p
	return true
}

// drop removes a pickup that a read under seq no longer returned.
func (c *cache) drop(seq uint64, id int64) bool {
	if seq < c.readSeq[id] {
		return false
	}
	c.readSeq[id] = seq
	if _, ok := c.pickups[id]; !ok {
		return false
	}
	delete(c.pickups, id)
	return true
}

// putList applies a full visible-set read.
func (c *cache) putList(seq uint64, list []model.Pickup) bool {
	changed := false
	seen := make(map[int64]bool, len(list))
	for _, p := range list {
		seen[p.ID] = true
		if c.put(seq, p) {
			changed = true
		}
	}
	for id := range c.pickups {
		if !seen[id] && c.drop(seq, id) {
			changed = true
		}
	}
	return changed
}

func (c *cache) putAnalytics(seq uint64, a *model.Analytics) bool {
	if a == nil || seq < c.analyticsSeq {
		return false
	}
	c.analyticsSeq = seq
	if c.analytics != nil && *c.analytics == *a {
		return false
	}
	copied := *a
	c.analytics = &copied
	return true
}

func (c *cache) has(id int64) bool {
	_, ok := c.pickups[id]
	return ok
}

// list returns the cached pickups, newest first.
func (c *cache) list() []model.Pickup {
	out := make([]model.Pickup, 0, len(c.pickups))
	for _, p := range c.pickups {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.Pickup) int {
		if n := b.CreatedAt.Compare(a.CreatedAt); n != 0 {
			return n
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}
