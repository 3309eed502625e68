// Package app wires config, store and engine for a workspace.
package app

import (
	"context"
	"log"
	"strings"

	"streakline/internal/config"
	"streakline/internal/engine"
	"streakline/internal/metrics"
	"streakline/internal/store"
)

type Options struct {
	Workspace string
	// Backend overrides store.backend from streakline.yml when set.
	Backend string
	Logger  *log.Logger
	// Verbose also hands Logger to the engine, which then logs each
	// mutation with its operation id.
	Verbose bool
	Metrics *metrics.Metrics
}

type App struct {
	Workspace string
	Config    *config.Config
	Engine    *engine.Engine
	Metrics   *metrics.Metrics

	closeStore func() error
}

// ResolveConfig loads streakline.yml (or defaults when absent) and applies the
// backend override.
func ResolveConfig(workspace, backend string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if b := strings.ToLower(strings.TrimSpace(backend)); b != "" {
		cfg.Store.Backend = b
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Open resolves config and opens the store and engine for the workspace.
func Open(ctx context.Context, opts Options) (*App, error) {
	cfg, err := ResolveConfig(opts.Workspace, opts.Backend)
	if err != nil {
		return nil, err
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	s, closeFn, err := store.Open(ctx, opts.Workspace, cfg, store.Options{
		Logger:  opts.Logger,
		OnReset: m.StoreReset,
	})
	if err != nil {
		return nil, err
	}
	e := engine.New(s, m)
	if opts.Verbose {
		e.Logger = opts.Logger
	}
	return &App{
		Workspace:  opts.Workspace,
		Config:     cfg,
		Engine:     e,
		Metrics:    m,
		closeStore: closeFn,
	}, nil
}

func (a *App) Close() error {
	if a == nil || a.closeStore == nil {
		return nil
	}
	return a.closeStore()
}
