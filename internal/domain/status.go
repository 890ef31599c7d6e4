package domain

import (
	"slices"
	"time"
)

type State string

const (
	StateUnknown State = "unknown"
	StateOnline  State = "online"
	StateOffline State = "offline"
)

type ErrorKind string

const (
	ErrorUnreachable    ErrorKind = "unreachable"
	ErrorTimeout        ErrorKind = "timeout"
	ErrorProtocol       ErrorKind = "protocol_error"
	ErrorInvalidAddress ErrorKind = "invalid_address"
)

// StatusResult is the outcome of one poll. Online fields are only
// meaningful when State is StateOnline, Reason and Detail only when it is
// StateOffline. Values are treated as immutable once built.
type StatusResult struct {
	State State `json:"state"`

	Version       string        `json:"version,omitempty"`
	Protocol      int           `json:"protocol,omitempty"`
	PlayersOnline int           `json:"playersOnline"`
	PlayersMax    int           `json:"playersMax"`
	SamplePlayers []string      `json:"samplePlayers,omitempty"`
	MOTD          string        `json:"motd,omitempty"`
	Latency       time.Duration `json:"latency,omitempty"`

	Reason ErrorKind `json:"reason,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

func Online(version string, playersOnline, playersMax int, sample []string) StatusResult {
	players := make([]string, len(sample))
	copy(players, sample)
	return StatusResult{
		State:         StateOnline,
		Version:       version,
		PlayersOnline: playersOnline,
		PlayersMax:    playersMax,
		SamplePlayers: players,
	}
}

func Offline(reason ErrorKind, detail string) StatusResult {
	return StatusResult{
		State:  StateOffline,
		Reason: reason,
		Detail: detail,
	}
}

func (r StatusResult) IsOnline() bool {
	return r.State == StateOnline
}

// Differs reports whether moving from r to next is a visible transition:
// a state change, or for online servers a change of version or player counts.
func (r StatusResult) Differs(next StatusResult) bool {
	if r.State != next.State {
		return true
	}
	if r.State != StateOnline {
		return false
	}
	return r.Version != next.Version ||
		r.PlayersOnline != next.PlayersOnline ||
		r.PlayersMax != next.PlayersMax
}

// Clone returns a copy that shares no slices with r.
func (r StatusResult) Clone() StatusResult {
	r.SamplePlayers = slices.Clone(r.SamplePlayers)
	return r
}

type ChangeEvent struct {
	ID      string        `json:"id"`
	Address string        `json:"address"`
	Old     *StatusResult `json:"old,omitempty"`
	New     StatusResult  `json:"new"`
	At      time.Time     `json:"at"`
}

// OldState is StateUnknown for the first result of an address.
func (e ChangeEvent) OldState() State {
	if e.Old == nil {
		return StateUnknown
	}
	return e.Old.State
}
