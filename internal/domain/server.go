package domain

import "time"

type ServerEntry struct {
	Address      string        `json:"address"`
	DisplayName  string        `json:"displayName"`
	LastStatus   *StatusResult `json:"lastStatus,omitempty"`
	LastPolledAt *time.Time    `json:"lastPolledAt,omitempty"`
	AddedAt      time.Time     `json:"addedAt"`
}

// State reports the lifecycle state of the entry, StateUnknown until the
// first poll completes.
func (e ServerEntry) State() State {
	if e.LastStatus == nil {
		return StateUnknown
	}
	return e.LastStatus.State
}

// AddressRecord is the persisted form of a registry entry.
type AddressRecord struct {
	Address     string `json:"address" yaml:"address"`
	DisplayName string `json:"displayName" yaml:"name"`
}
