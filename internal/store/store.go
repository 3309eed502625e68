// Package store persists the full challenge set. Every backend loads and
// saves the whole set; there is no partial or append mode.
package store

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"streakline/internal/config"
	"streakline/internal/db"
	"streakline/internal/domain"
	"streakline/internal/events"
	"streakline/internal/migrate"
)

type Store interface {
	// Load returns the persisted set. A missing or corrupt store yields an
	// empty set, not an error.
	Load(ctx context.Context) ([]domain.Challenge, error)
	// Save overwrites the persisted set.
	Save(ctx context.Context, records []domain.Challenge) error
}

// Journal is implemented by stores that keep an event log next to the
// records and can write both atomically.
type Journal interface {
	SaveWithEvents(ctx context.Context, records []domain.Challenge, evts []events.Pending) error
	LatestEvents(ctx context.Context, f events.Filter) ([]domain.Event, error)
}

// IOError is a read or write failure of the underlying store. It matches
// domain.ErrStorageIO.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error {
	return []error{domain.ErrStorageIO, e.Err}
}

type Options struct {
	Logger *log.Logger
	// OnReset runs after a corrupt store was reset to empty.
	OnReset func()
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}

// Open builds the backend selected by cfg. The returned close func releases
// any handle the backend holds.
func Open(ctx context.Context, workspace string, cfg *config.Config, opts Options) (Store, func() error, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	dataDir, err := db.EnsureWorkspace(workspace)
	if err != nil {
		return nil, nil, &IOError{Op: "init", Path: workspace, Err: err}
	}
	noop := func() error { return nil }
	switch cfg.Store.Backend {
	case config.BackendJSON:
		return NewJSONFile(resolve(dataDir, cfg.StorePath()), opts), noop, nil
	case config.BackendYAML:
		return NewYAMLFile(resolve(dataDir, cfg.StorePath()), opts), noop, nil
	case config.BackendSQLite:
		conn, err := db.Open(db.Config{Workspace: workspace, Path: cfg.StorePath()})
		if err != nil {
			return nil, nil, &IOError{Op: "open", Path: cfg.StorePath(), Err: err}
		}
		if err := migrate.MigrateContext(ctx, conn); err != nil {
			conn.Close()
			return nil, nil, &IOError{Op: "migrate", Path: cfg.StorePath(), Err: err}
		}
		return NewSQLite(conn), conn.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown store backend %q", domain.ErrInvalidInput, cfg.Store.Backend)
	}
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
