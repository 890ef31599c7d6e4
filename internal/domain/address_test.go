package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		host    string
		port    int
		hasPort bool
	}{
		{name: "host only", raw: "play.example.com", host: "play.example.com", port: DefaultPort},
		{name: "host and port", raw: "play.example.com:25570", host: "play.example.com", port: 25570, hasPort: true},
		{name: "surrounding whitespace", raw: "  mc.local  ", host: "mc.local", port: DefaultPort},
		{name: "ipv4", raw: "10.0.0.5:1234", host: "10.0.0.5", port: 1234, hasPort: true},
		{name: "bracketed ipv6", raw: "[::1]:25566", host: "::1", port: 25566, hasPort: true},
		{name: "bracketed ipv6 without port", raw: "[::1]", host: "::1", port: DefaultPort},
		{name: "bare ipv6", raw: "fe80::1", host: "fe80::1", port: DefaultPort},
		{name: "case preserved", raw: "Play.Example.COM", host: "Play.Example.COM", port: DefaultPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParseAddress(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.host, addr.Host)
			assert.Equal(t, tt.port, addr.Port)
			assert.Equal(t, tt.hasPort, addr.HasPort)
		})
	}
}

func TestParseAddressRejects(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"bad address",
		"tab\there",
		"host:",
		":25565",
		"host:0",
		"host:65536",
		"host:port",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseAddress(raw)
			assert.ErrorIs(t, err, ErrInvalidAddress)
		})
	}
}

func TestAddressString(t *testing.T) {
	addr, err := ParseAddress("[::1]")
	require.NoError(t, err)
	assert.Equal(t, "[::1]:25565", addr.String())
}

func TestStatusResultDiffers(t *testing.T) {
	base := Online("1.20.1", 5, 20, []string{"Alice"})

	assert.False(t, base.Differs(Online("1.20.1", 5, 20, []string{"Bob"})), "sample changes are not transitions")
	assert.True(t, base.Differs(Online("1.20.2", 5, 20, nil)))
	assert.True(t, base.Differs(Online("1.20.1", 6, 20, nil)))
	assert.True(t, base.Differs(Online("1.20.1", 5, 30, nil)))
	assert.True(t, base.Differs(Offline(ErrorTimeout, "")))

	offline := Offline(ErrorUnreachable, "refused")
	assert.False(t, offline.Differs(Offline(ErrorTimeout, "deadline")))
}

func TestOnlineCopiesSample(t *testing.T) {
	sample := []string{"Alice", "Bob"}
	r := Online("1.20.1", 2, 10, sample)
	sample[0] = "Mallory"
	assert.Equal(t, []string{"Alice", "Bob"}, r.SamplePlayers)

	clone := r.Clone()
	clone.SamplePlayers[1] = "Eve"
	assert.Equal(t, "Bob", r.SamplePlayers[1])
}

func TestChangeEventOldState(t *testing.T) {
	ev := ChangeEvent{Address: "a", New: Online("1", 0, 1, nil)}
	assert.Equal(t, StateUnknown, ev.OldState())

	old := Offline(ErrorTimeout, "")
	ev.Old = &old
	assert.Equal(t, StateOffline, ev.OldState())
}
