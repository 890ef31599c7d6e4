// Package registry keeps the ordered list of tracked server addresses.
package registry

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"mcwatch/internal/domain"
	"mcwatch/internal/logger"
)

// StatusSource supplies the last completed poll for an address.
type StatusSource interface {
	Get(address string) (domain.StatusResult, time.Time, bool)
}

type record struct {
	address     string
	displayName string
	addedAt     time.Time
}

// Registry is an insertion-ordered set of server addresses. Mutations are
// written through to the AddressRepository before they return; a failing
// store is logged and the registry carries on in memory.
type Registry struct {
	store    domain.AddressRepository
	statuses StatusSource
	now      func() time.Time

	mu      sync.RWMutex
	order   []string
	records map[string]*record

	// persistMu keeps store writes in mutation order.
	persistMu sync.Mutex
}

func New(store domain.AddressRepository, statuses StatusSource) *Registry {
	return &Registry{
		store:    store,
		statuses: statuses,
		now:      time.Now,
		records:  make(map[string]*record),
	}
}

// Load replaces the in-memory list with the stored one. On a store error the
// registry is left empty and the error is returned for the caller to report.
func (r *Registry) Load() error {
	if r.store == nil {
		return nil
	}

	stored, err := r.store.LoadAddresses()
	if err != nil {
		logger.Warn("Could not load server list, starting empty", "error", err)
		return fmt.Errorf("load addresses: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = r.order[:0]
	clear(r.records)
	now := r.now()
	for _, rec := range stored {
		address := domain.NormalizeAddress(rec.Address)
		if err := domain.ValidateAddress(address); err != nil {
			logger.Warn("Skipping stored address", "address", rec.Address, "error", err)
			continue
		}
		if _, exists := r.records[address]; exists {
			logger.Warn("Skipping duplicate stored address", "address", address)
			continue
		}
		r.records[address] = &record{address: address, displayName: displayNameOr(rec.DisplayName, address), addedAt: now}
		r.order = append(r.order, address)
	}

	logger.Info("Server list loaded", "count", len(r.order))
	return nil
}

// Add registers address under its own name. It reports false when the
// address is invalid or already present.
func (r *Registry) Add(address string) bool {
	_, err := r.Register(address, "")
	return err == nil
}

func (r *Registry) Register(address, displayName string) (domain.ServerEntry, error) {
	address = domain.NormalizeAddress(address)
	if err := domain.ValidateAddress(address); err != nil {
		return domain.ServerEntry{}, err
	}

	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	if _, exists := r.records[address]; exists {
		r.mu.Unlock()
		return domain.ServerEntry{}, fmt.Errorf("%w: %s", domain.ErrDuplicateAddress, address)
	}
	rec := &record{address: address, displayName: displayNameOr(displayName, address), addedAt: r.now()}
	r.records[address] = rec
	r.order = append(r.order, address)
	snapshot := r.snapshotLocked()
	added := *rec
	r.mu.Unlock()

	r.persist(snapshot)
	return r.entry(added), nil
}

func (r *Registry) Remove(address string) bool {
	address = domain.NormalizeAddress(address)

	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	if _, exists := r.records[address]; !exists {
		r.mu.Unlock()
		return false
	}
	delete(r.records, address)
	r.order = slices.DeleteFunc(r.order, func(a string) bool { return a == address })
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.persist(snapshot)
	return true
}

// Rename changes the display name; an empty name resets it to the address.
func (r *Registry) Rename(address, displayName string) bool {
	address = domain.NormalizeAddress(address)

	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	rec, exists := r.records[address]
	if !exists {
		r.mu.Unlock()
		return false
	}
	rec.displayName = displayNameOr(displayName, address)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.persist(snapshot)
	return true
}

func (r *Registry) Get(address string) (domain.ServerEntry, bool) {
	address = domain.NormalizeAddress(address)

	r.mu.RLock()
	rec, ok := r.records[address]
	var snap record
	if ok {
		snap = *rec
	}
	r.mu.RUnlock()

	if !ok {
		return domain.ServerEntry{}, false
	}
	return r.entry(snap), true
}

// List returns the entries in insertion order.
func (r *Registry) List() []domain.ServerEntry {
	r.mu.RLock()
	recs := make([]record, 0, len(r.order))
	for _, address := range r.order {
		recs = append(recs, *r.records[address])
	}
	r.mu.RUnlock()

	entries := make([]domain.ServerEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, r.entry(rec))
	}
	return entries
}

func (r *Registry) Addresses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

func (r *Registry) Contains(address string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[domain.NormalizeAddress(address)]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// entry reads the status through the cache. It must be called without r.mu
// held: the cache consults Contains under its per-address lock.
func (r *Registry) entry(rec record) domain.ServerEntry {
	entry := domain.ServerEntry{
		Address:     rec.address,
		DisplayName: rec.displayName,
		AddedAt:     rec.addedAt,
	}
	if r.statuses != nil {
		if res, at, ok := r.statuses.Get(rec.address); ok {
			entry.LastStatus = &res
			entry.LastPolledAt = &at
		}
	}
	return entry
}

func (r *Registry) snapshotLocked() []domain.AddressRecord {
	out := make([]domain.AddressRecord, 0, len(r.order))
	for _, address := range r.order {
		out = append(out, domain.AddressRecord{Address: address, DisplayName: r.records[address].displayName})
	}
	return out
}

func (r *Registry) persist(snapshot []domain.AddressRecord) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveAddresses(snapshot); err != nil {
		logger.Warn("Could not persist server list, continuing in memory", "error", err, "count", len(snapshot))
	}
}

func displayNameOr(name, address string) string {
	if name == "" {
		return address
	}
	return name
}
