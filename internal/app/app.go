package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bassista/go_cast/internal/cache"
	"github.com/bassista/go_cast/internal/config"
	"github.com/bassista/go_cast/internal/logger"
	"github.com/bassista/go_cast/internal/metrics"
	"github.com/bassista/go_cast/internal/mutation"
	"github.com/bassista/go_cast/internal/notify"
	"github.com/bassista/go_cast/internal/query"
	"github.com/bassista/go_cast/internal/repository"
)

// API is the governance API used by queries and mutations.
type API interface {
	query.API
	mutation.API
}

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config    *config.Config
	Repo      repository.Repository
	Cache     *cache.Store
	Sink      *notify.Sink
	Queries   *query.Service
	Mutations *mutation.Coordinator

	BaseCtx context.Context
	Cancel  context.CancelFunc

	unsubscribe []func()
}

func New(cfg *config.Config, repo repository.Repository, api API, sink *notify.Sink) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if repo == nil {
		return nil, errors.New("repo is nil")
	}
	if api == nil {
		return nil, errors.New("api client is nil")
	}
	if sink == nil {
		return nil, errors.New("error sink is nil")
	}

	store := cache.NewStore(cfg.API.PageSize, sink)
	query.RegisterFetchers(store, api)

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		Config:    cfg,
		Repo:      repo,
		Cache:     store,
		Sink:      sink,
		Queries:   query.NewService(store),
		Mutations: mutation.NewCoordinator(api, store, sink),
		BaseCtx:   ctx,
		Cancel:    cancel,
	}
	a.Subscribe(notify.LogSubscriber(logger.WithComponent("error-sink")))
	a.Subscribe(func(error) { metrics.RecordReportedError() })
	return a, nil
}

// Subscribe attaches fn to the error sink for the lifetime of the app.
func (a *App) Subscribe(fn notify.Subscriber) {
	a.unsubscribe = append(a.unsubscribe, a.Sink.Subscribe(fn))
}

func (a *App) Shutdown() {
	if a == nil || a.Cancel == nil {
		return
	}
	for _, u := range a.unsubscribe {
		u()
	}
	a.unsubscribe = nil
	a.Cancel()
}

// StartWatchers watches the session file. When the connected wallet changes,
// the previous user's community list is dropped from the cache.
func (a *App) StartWatchers() error {
	if err := a.Repo.StartWatcher(a.BaseCtx, a.OnSessionChange); err != nil {
		return fmt.Errorf("cannot start session file watcher: %w", err)
	}
	return nil
}

// OnSessionChange invalidates the cached communities of the previous user.
func (a *App) OnSessionChange(prev, next repository.Session) {
	if !prev.LoggedIn() {
		return
	}
	cleared := a.Cache.Invalidate(query.UserCommunitiesKey(prev.Addr))
	logger.WithComponent("app").Debugf("session changed to '%s', cleared %d entries", next.Addr, cleared)
}
