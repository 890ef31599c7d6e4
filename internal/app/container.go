package app

import (
	"context"

	"mcwatch/internal/config"
	"mcwatch/internal/domain"
	"mcwatch/internal/logger"
	"mcwatch/internal/metrics"
	"mcwatch/internal/poller"
	"mcwatch/internal/registry"
	"mcwatch/internal/server"
	"mcwatch/internal/slp"
	"mcwatch/internal/status"
	"mcwatch/internal/storage"
	"mcwatch/internal/ws"
)

type Container struct {
	Store         domain.Repository
	Registry      *registry.Registry
	Cache         *status.Cache
	Notifier      *status.Notifier
	Scheduler     *poller.Scheduler
	ServerManager *server.Manager
	HubManager    *ws.HubManager
	Metrics       metrics.Recorder

	unsubscribe []func()
}

// New wires the daemon around an already opened store. querier may be nil,
// in which case a default SLP client is used.
func New(cfg *config.Config, store domain.Repository, querier poller.Querier) *Container {
	if querier == nil {
		querier = slp.NewClient()
	}

	cache := status.NewCache()
	notifier := status.NewNotifier()
	reg := registry.New(store, cache)
	scheduler := poller.New(querier, reg, cache, notifier, poller.Config{
		Interval:      cfg.PollInterval.Std(),
		Timeout:       cfg.PollTimeout.Std(),
		MaxConcurrent: cfg.MaxConcurrent,
	})

	c := &Container{
		Store:         store,
		Registry:      reg,
		Cache:         cache,
		Notifier:      notifier,
		Scheduler:     scheduler,
		ServerManager: server.NewManager(reg, cache, scheduler),
		HubManager:    ws.NewHubManager(cfg.EventHistory),
	}

	scheduler.SetObserver(c.Metrics)
	c.unsubscribe = append(c.unsubscribe,
		notifier.Subscribe(c.HubManager.Publish),
		notifier.Subscribe(c.Metrics.ChangeObserved),
	)
	return c
}

// Open opens the configured store and builds the container on top of it.
// A store that cannot be opened is reported and the daemon runs on an
// in-memory store for this session.
func Open(cfg *config.Config) *Container {
	return New(cfg, openStore(cfg), nil)
}

func openStore(cfg *config.Config) domain.Repository {
	store, err := storage.Open(cfg.StoreBackend, cfg.StoreLocation())
	if err != nil {
		logger.Warn("Store unavailable, changes will not be saved this session",
			"backend", cfg.StoreBackend, "error", err)
		return storage.NewMemoryStore()
	}
	return store
}

// Start loads the server list and starts polling. A list that cannot be
// loaded is reported and polling starts with an empty registry.
func (c *Container) Start(ctx context.Context) {
	if err := c.Registry.Load(); err != nil {
		logger.Error("Starting with an empty server list", "error", err)
	}
	c.Metrics.SetTracked(c.Registry.Len())
	c.Scheduler.Start(ctx)
}

func (c *Container) Close() error {
	c.Scheduler.Stop()
	for _, unsub := range c.unsubscribe {
		unsub()
	}
	c.HubManager.StopAll()

	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}
