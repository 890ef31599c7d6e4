package server

import (
	"fmt"

	"mcwatch/internal/domain"
	"mcwatch/internal/poller"
	"mcwatch/internal/registry"
	"mcwatch/internal/status"
)

// Manager is the entry point used by the API and the CLI. It keeps the
// registry, the status cache and the scheduler consistent with each other.
type Manager struct {
	Registry  *registry.Registry
	Cache     *status.Cache
	Scheduler *poller.Scheduler
}

func NewManager(reg *registry.Registry, cache *status.Cache, scheduler *poller.Scheduler) *Manager {
	return &Manager{
		Registry:  reg,
		Cache:     cache,
		Scheduler: scheduler,
	}
}

// Add registers address and polls it right away. It reports false for an
// invalid or duplicate address.
func (m *Manager) Add(address string) bool {
	_, err := m.AddNamed(address, "")
	return err == nil
}

func (m *Manager) AddNamed(address, displayName string) (domain.ServerEntry, error) {
	entry, err := m.Registry.Register(address, displayName)
	if err != nil {
		return domain.ServerEntry{}, err
	}

	// A previous incarnation of the same address may have left a result.
	m.Cache.Forget(entry.Address)
	m.Scheduler.RefreshOne(entry.Address)
	return entry, nil
}

func (m *Manager) Remove(address string) error {
	address = domain.NormalizeAddress(address)
	if !m.Registry.Remove(address) {
		return fmt.Errorf("%w: %s", domain.ErrServerNotFound, address)
	}
	m.Cache.Forget(address)
	return nil
}

func (m *Manager) Rename(address, displayName string) (domain.ServerEntry, error) {
	if !m.Registry.Rename(address, displayName) {
		return domain.ServerEntry{}, fmt.Errorf("%w: %s", domain.ErrServerNotFound, address)
	}
	return m.Get(address)
}

func (m *Manager) List() []domain.ServerEntry {
	return m.Registry.List()
}

func (m *Manager) Get(address string) (domain.ServerEntry, error) {
	entry, ok := m.Registry.Get(address)
	if !ok {
		return domain.ServerEntry{}, fmt.Errorf("%w: %s", domain.ErrServerNotFound, address)
	}
	return entry, nil
}

// Detail returns the entry and schedules a poll when it has never been
// polled, so the caller gets fresh data on its next read.
func (m *Manager) Detail(address string) (domain.ServerEntry, error) {
	entry, err := m.Get(address)
	if err != nil {
		return entry, err
	}
	if entry.LastStatus == nil {
		m.Scheduler.RefreshOne(entry.Address)
	}
	return entry, nil
}

func (m *Manager) RefreshAll() bool {
	return m.Scheduler.RefreshAll()
}

func (m *Manager) RefreshOne(address string) error {
	address = domain.NormalizeAddress(address)
	if !m.Registry.Contains(address) {
		return fmt.Errorf("%w: %s", domain.ErrServerNotFound, address)
	}
	m.Scheduler.RefreshOne(address)
	return nil
}
