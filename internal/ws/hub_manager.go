package ws

import (
	"sync"

	"mcwatch/internal/domain"
)

// AllServers is the hub key for the feed carrying every address.
const AllServers = "*"

// HubManager keeps one hub for the global feed and one per address that a
// client has asked to follow.
type HubManager struct {
	hubs        map[string]*Hub
	mu          sync.Mutex
	historySize int
}

func NewHubManager(historySize int) *HubManager {
	return &HubManager{
		hubs:        make(map[string]*Hub),
		historySize: historySize,
	}
}

func (m *HubManager) GetHub(address string) *Hub {
	if address == "" {
		address = AllServers
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[address]; ok {
		return hub
	}

	hub := NewHub(m.historySize)
	go hub.Run()
	m.hubs[address] = hub
	return hub
}

// Publish sends ev to the global feed and to the address feed if one exists.
func (m *HubManager) Publish(ev domain.ChangeEvent) {
	m.GetHub(AllServers).Publish(ev)

	m.mu.Lock()
	hub := m.hubs[ev.Address]
	m.mu.Unlock()
	if hub != nil {
		hub.Publish(ev)
	}
}

func (m *HubManager) RemoveHub(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[address]; ok {
		hub.Stop()
		delete(m.hubs, address)
	}
}

func (m *HubManager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for address, hub := range m.hubs {
		hub.Stop()
		delete(m.hubs, address)
	}
}
