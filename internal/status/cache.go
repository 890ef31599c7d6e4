// Package status holds the latest poll result per address and reports
// visible state transitions.
package status

import (
	"sync"
	"time"

	"mcwatch/internal/domain"

	"github.com/google/uuid"
)

type entry struct {
	mu          sync.Mutex
	result      domain.StatusResult
	completedAt time.Time
	set         bool
	// dead entries were forgotten and accept no more results.
	dead bool
}

// Cache stores one result per address. Each address has its own lock; the
// map lock only guards lookups and inserts. Entries never expire.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Update stores result if it completed no earlier than the stored one and
// returns a ChangeEvent when the visible state moved. Stale results are
// dropped and return nil.
func (c *Cache) Update(address string, result domain.StatusResult, completedAt time.Time) *domain.ChangeEvent {
	var ev *domain.ChangeEvent
	c.Commit(address, result, completedAt, nil, func(e *domain.ChangeEvent) { ev = e })
	return ev
}

// Commit is Update with a membership guard. keep is consulted under the
// address lock, so a result cannot land after a concurrent Forget of a
// removed address. When the result is stored, accepted runs under the same
// lock with the ChangeEvent, or nil when nothing visible changed; callbacks
// for one address therefore run in commit order. Commit reports whether the
// result was stored. A nil keep accepts every address.
func (c *Cache) Commit(address string, result domain.StatusResult, completedAt time.Time,
	keep func(address string) bool, accepted func(ev *domain.ChangeEvent)) bool {
	for {
		e := c.lookup(address, true)
		e.mu.Lock()
		if e.dead {
			// Forgotten between lookup and lock; retry against the live entry.
			e.mu.Unlock()
			continue
		}
		stored := c.commitLocked(e, address, result, completedAt, keep, accepted)
		e.mu.Unlock()
		return stored
	}
}

func (c *Cache) commitLocked(e *entry, address string, result domain.StatusResult, completedAt time.Time,
	keep func(string) bool, accepted func(*domain.ChangeEvent)) bool {
	if keep != nil && !keep(address) {
		if !e.set {
			c.drop(address, e)
		}
		return false
	}
	if e.set && completedAt.Before(e.completedAt) {
		return false
	}

	var old *domain.StatusResult
	changed := !e.set
	if e.set {
		prev := e.result
		old = &prev
		changed = prev.Differs(result)
	}

	e.result = result.Clone()
	e.completedAt = completedAt
	e.set = true

	var ev *domain.ChangeEvent
	if changed {
		ev = &domain.ChangeEvent{
			ID:      uuid.NewString(),
			Address: address,
			Old:     old,
			New:     result.Clone(),
			At:      completedAt,
		}
	}
	if accepted != nil {
		accepted(ev)
	}
	return true
}

func (c *Cache) Get(address string) (domain.StatusResult, time.Time, bool) {
	e := c.lookup(address, false)
	if e == nil {
		return domain.StatusResult{}, time.Time{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.set || e.dead {
		return domain.StatusResult{}, time.Time{}, false
	}
	return e.result.Clone(), e.completedAt, true
}

// Forget drops the stored result for address. It waits for a commit in
// progress on the same address to finish.
func (c *Cache) Forget(address string) {
	e := c.lookup(address, false)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	c.drop(address, e)
}

// drop unlinks e from the index. The caller holds e.mu.
func (c *Cache) drop(address string, e *entry) {
	e.dead = true
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[address] == e {
		delete(c.entries, address)
	}
}

func (c *Cache) Snapshot() map[string]domain.StatusResult {
	c.mu.RLock()
	addresses := make([]string, 0, len(c.entries))
	for a := range c.entries {
		addresses = append(addresses, a)
	}
	c.mu.RUnlock()

	out := make(map[string]domain.StatusResult, len(addresses))
	for _, a := range addresses {
		if res, _, ok := c.Get(a); ok {
			out[a] = res
		}
	}
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// lookup returns the entry for address, creating it when create is set.
func (c *Cache) lookup(address string, create bool) *entry {
	c.mu.RLock()
	e, ok := c.entries[address]
	c.mu.RUnlock()
	if ok || !create {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[address]; ok {
		return e
	}
	e = &entry{}
	c.entries[address] = e
	return e
}
