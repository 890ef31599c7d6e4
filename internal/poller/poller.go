// Package poller refreshes the status of every registered server on a fixed
// interval and on demand.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"mcwatch/internal/domain"
	"mcwatch/internal/logger"

	"golang.org/x/sync/semaphore"
)

const (
	DefaultInterval      = 30 * time.Second
	DefaultTimeout       = 5 * time.Second
	DefaultMaxConcurrent = 20
)

type Querier interface {
	Query(ctx context.Context, address string, timeout time.Duration) domain.StatusResult
}

// AddressSource is the registry as seen by the scheduler.
type AddressSource interface {
	Addresses() []string
	Contains(address string) bool
}

// ResultStore keeps the latest result per address. Commit must consult keep
// and run accepted under the same per-address lock, so removal and result
// writes for one address never interleave.
type ResultStore interface {
	Commit(address string, result domain.StatusResult, completedAt time.Time,
		keep func(address string) bool, accepted func(ev *domain.ChangeEvent)) bool
}

type Publisher interface {
	Publish(event domain.ChangeEvent)
}

// Observer receives poll outcomes, e.g. for metrics. Calls happen on poll
// goroutines.
type Observer interface {
	PollCompleted(address string, result domain.StatusResult, took time.Duration)
	CycleCoalesced()
}

type Config struct {
	Interval      time.Duration
	Timeout       time.Duration
	MaxConcurrent int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	return c
}

// Scheduler fans polls out across the registry. At most MaxConcurrent
// queries run at once across full cycles and single refreshes; a RefreshAll
// issued while a cycle is still running is dropped.
type Scheduler struct {
	querier   Querier
	servers   AddressSource
	results   ResultStore
	events    Publisher
	observer  Observer
	cfg       Config
	sem       *semaphore.Weighted
	now       func() time.Time
	cycleBusy atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	loopWG sync.WaitGroup
	taskWG sync.WaitGroup
}

func New(querier Querier, servers AddressSource, results ResultStore, events Publisher, cfg Config) *Scheduler {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		querier: querier,
		servers: servers,
		results: results,
		events:  events,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Scheduler) SetObserver(o Observer) {
	s.observer = o
}

func (s *Scheduler) Config() Config {
	return s.cfg
}

// Start runs a cycle immediately and then every Interval until ctx is done
// or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.loopWG.Add(1)
	go s.loop(ctx)
	logger.Info("Poll scheduler started",
		"interval", s.cfg.Interval, "timeout", s.cfg.Timeout, "max_concurrent", s.cfg.MaxConcurrent)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.loopWG.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.RefreshAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.RefreshAll()
		}
	}
}

// Stop cancels in-flight polls and waits for every goroutine to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	s.loopWG.Wait()
	s.taskWG.Wait()
	logger.Info("Poll scheduler stopped")
}

// Wait blocks until all cycles and single refreshes started so far finish.
func (s *Scheduler) Wait() {
	s.taskWG.Wait()
}

// RefreshAll starts a cycle over the registry snapshot and returns at once.
// It reports false when a cycle was already running and this one was dropped.
func (s *Scheduler) RefreshAll() bool {
	if !s.cycleBusy.CompareAndSwap(false, true) {
		logger.Debug("Refresh already in progress, skipping")
		if s.observer != nil {
			s.observer.CycleCoalesced()
		}
		return false
	}

	s.taskWG.Add(1)
	go func() {
		defer s.taskWG.Done()
		defer s.cycleBusy.Store(false)
		s.runCycle(s.ctx)
	}()
	return true
}

// RefreshOne polls a single address in the background.
func (s *Scheduler) RefreshOne(address string) {
	s.taskWG.Add(1)
	go func() {
		defer s.taskWG.Done()
		s.poll(s.ctx, address)
	}()
}

// Refreshing reports whether a full cycle is in flight.
func (s *Scheduler) Refreshing() bool {
	return s.cycleBusy.Load()
}

func (s *Scheduler) runCycle(ctx context.Context) {
	addresses := s.servers.Addresses()
	if len(addresses) == 0 {
		return
	}

	start := time.Now()
	var wg sync.WaitGroup
	for _, address := range addresses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.poll(ctx, address)
		}()
	}
	wg.Wait()

	logger.Debug("Refresh cycle finished", "servers", len(addresses), "took", time.Since(start))
}

// poll runs one bounded query. The slot is released at the deadline even if
// the querier ignores cancellation.
func (s *Scheduler) poll(ctx context.Context, address string) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer s.sem.Release(1)

	taskCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan domain.StatusResult, 1)
	go func() {
		done <- s.querier.Query(taskCtx, address, s.cfg.Timeout)
	}()

	var res domain.StatusResult
	select {
	case res = <-done:
	case <-taskCtx.Done():
		select {
		case res = <-done:
		default:
			res = domain.Offline(domain.ErrorTimeout, "poll exceeded "+s.cfg.Timeout.String())
		}
	}
	completedAt := s.now()
	took := time.Since(start)

	if ctx.Err() != nil {
		return
	}

	stored := s.results.Commit(address, res, completedAt, s.servers.Contains, func(ev *domain.ChangeEvent) {
		if s.observer != nil {
			s.observer.PollCompleted(address, res, took)
		}
		if ev == nil {
			return
		}
		logger.Info("Server state changed",
			"address", address, "from", ev.OldState(), "to", ev.New.State, "reason", ev.New.Reason)
		if s.events != nil {
			s.events.Publish(*ev)
		}
	})
	if !stored {
		logger.Debug("Dropping result", "address", address, "tracked", s.servers.Contains(address))
	}
}
