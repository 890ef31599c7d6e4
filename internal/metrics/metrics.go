// Package metrics exposes current server status to Prometheus.
package metrics

import (
	"time"

	"mcwatch/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ServerOnline = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mcwatch_server_online",
			Help: "Whether the last poll of the server succeeded (1) or not (0)",
		},
		[]string{"address"},
	)

	ServerPlayers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mcwatch_server_players",
			Help: "Players online at the last poll",
		},
		[]string{"address"},
	)

	ServerPlayerLimit = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mcwatch_server_player_limit",
			Help: "Maximum players reported at the last poll",
		},
		[]string{"address"},
	)

	ServerLatency = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mcwatch_server_latency_seconds",
			Help: "Ping round trip at the last poll, 0 when unknown",
		},
		[]string{"address"},
	)

	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcwatch_polls_total",
			Help: "Completed polls by outcome (online or an error kind)",
		},
		[]string{"outcome"},
	)

	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mcwatch_poll_duration_seconds",
			Help:    "Wall time of a single poll including connect",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	RefreshCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mcwatch_refresh_coalesced_total",
			Help: "Refresh requests dropped because a cycle was already running",
		},
	)

	StateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcwatch_state_changes_total",
			Help: "Change events emitted, by new state",
		},
		[]string{"state"},
	)

	ServersTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mcwatch_servers_tracked",
			Help: "Number of addresses in the registry",
		},
	)
)

// Recorder feeds the package metrics from the scheduler and the notifier.
type Recorder struct{}

func (Recorder) PollCompleted(address string, res domain.StatusResult, took time.Duration) {
	PollDuration.Observe(took.Seconds())

	if res.IsOnline() {
		PollsTotal.WithLabelValues(string(domain.StateOnline)).Inc()
		ServerOnline.WithLabelValues(address).Set(1)
		ServerPlayers.WithLabelValues(address).Set(float64(res.PlayersOnline))
		ServerPlayerLimit.WithLabelValues(address).Set(float64(res.PlayersMax))
		ServerLatency.WithLabelValues(address).Set(res.Latency.Seconds())
		return
	}

	PollsTotal.WithLabelValues(string(res.Reason)).Inc()
	ServerOnline.WithLabelValues(address).Set(0)
	ServerPlayers.WithLabelValues(address).Set(0)
	ServerLatency.WithLabelValues(address).Set(0)
}

func (Recorder) CycleCoalesced() {
	RefreshCoalesced.Inc()
}

// ChangeObserved is a status.Handler.
func (Recorder) ChangeObserved(ev domain.ChangeEvent) {
	StateChanges.WithLabelValues(string(ev.New.State)).Inc()
}

// Forget drops the per-address series of a removed server.
func (Recorder) Forget(address string) {
	ServerOnline.DeleteLabelValues(address)
	ServerPlayers.DeleteLabelValues(address)
	ServerPlayerLimit.DeleteLabelValues(address)
	ServerLatency.DeleteLabelValues(address)
}

func (Recorder) SetTracked(n int) {
	ServersTracked.Set(float64(n))
}
