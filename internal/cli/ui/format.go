package ui

import (
	"fmt"
	"time"

	"mcwatch/internal/domain"
	"mcwatch/pkg/sdk"
)

func StatusIcon(state domain.State) string {
	switch state {
	case domain.StateOnline:
		return "🟢"
	case domain.StateOffline:
		return "🔴"
	default:
		return "⚪"
	}
}

// StatusSummary renders a result on one line: version and players when
// online, the failure kind otherwise.
func StatusSummary(res domain.StatusResult) string {
	switch res.State {
	case domain.StateOnline:
		s := fmt.Sprintf("%s %d/%d players", res.Version, res.PlayersOnline, res.PlayersMax)
		if res.Latency > 0 {
			s += fmt.Sprintf(" %s", res.Latency.Round(time.Millisecond))
		}
		return s
	case domain.StateOffline:
		if res.Detail != "" {
			return fmt.Sprintf("%s (%s)", res.Reason, res.Detail)
		}
		return string(res.Reason)
	default:
		return "waiting for first poll"
	}
}

func Summary(s sdk.Server) string {
	if s.LastStatus == nil {
		return StatusSummary(domain.StatusResult{State: domain.StateUnknown})
	}
	return StatusSummary(*s.LastStatus)
}

func playersColumn(s sdk.Server) string {
	if s.LastStatus == nil || !s.LastStatus.IsOnline() {
		return "-"
	}
	return fmt.Sprintf("%d/%d", s.LastStatus.PlayersOnline, s.LastStatus.PlayersMax)
}

func versionColumn(s sdk.Server) string {
	if s.LastStatus == nil || !s.LastStatus.IsOnline() {
		return "-"
	}
	return s.LastStatus.Version
}

func polledColumn(s sdk.Server, now time.Time) string {
	if s.LastPolledAt == nil {
		return "never"
	}
	ago := now.Sub(*s.LastPolledAt).Round(time.Second)
	if ago < time.Second {
		return "just now"
	}
	return ago.String() + " ago"
}
