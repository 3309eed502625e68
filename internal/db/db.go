package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	dataDirName   = ".streakline"
	defaultDBName = "streakline.db"
)

type Config struct {
	Workspace string
	// Path overrides the database file location. Relative paths resolve
	// against the workspace data dir.
	Path string
}

func (c Config) path() string {
	if c.Path == "" {
		return filepath.Join(DataDir(c.Workspace), defaultDBName)
	}
	if filepath.IsAbs(c.Path) {
		return c.Path
	}
	return filepath.Join(DataDir(c.Workspace), c.Path)
}

// DataDir is the per-workspace directory holding stores and the database.
func DataDir(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, dataDirName)
}

// EnsureWorkspace creates the data directory if missing.
func EnsureWorkspace(workspace string) (string, error) {
	path := DataDir(workspace)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// Open opens the SQLite database with foreign keys on.
func Open(cfg Config) (*sql.DB, error) {
	path := cfg.path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	return conn, nil
}

// Path returns the db path for the config.
func Path(cfg Config) string {
	return cfg.path()
}
