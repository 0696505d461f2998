package sources

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"bespoke/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// snapshotVersion is bumped whenever schema.sql changes shape.
const snapshotVersion = 1

// SnapshotStore serves sources from a SQLite file captured by WriteSnapshot.
type SnapshotStore struct {
	db   *sql.DB
	path string
}

// OpenSnapshot opens an existing snapshot for reading.
func OpenSnapshot(path string) (*SnapshotStore, error) {
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "store", "open snapshot", "snapshot path is empty", nil)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "store", "open snapshot", path, err)
		}
		return nil, services.Wrap(services.ErrStore, "store", "open snapshot", path, err)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	store := &SnapshotStore{db: db, path: path}
	if err := store.checkVersion(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "open sqlite db", path, err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrStore, "store", "apply pragma", pragma, execErr)
		}
	}
	return db, nil
}

func (s *SnapshotStore) checkVersion(ctx context.Context) error {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return services.Wrap(services.ErrStore, "store", "read snapshot version", s.path, err)
	}
	if version != snapshotVersion {
		return services.Wrap(
			services.ErrStore,
			"store",
			"read snapshot version",
			fmt.Sprintf("snapshot has version %d, expected %d (recreate it with 'bespoke-doc snapshot')", version, snapshotVersion),
			nil,
		)
	}
	return nil
}

// Path returns the snapshot file location.
func (s *SnapshotStore) Path() string {
	return s.path
}

// ListKey returns the list key the snapshot was captured from.
func (s *SnapshotStore) ListKey(ctx context.Context) (string, error) {
	var key string
	if err := s.db.QueryRowContext(ctx, "SELECT list_key FROM snapshot_meta LIMIT 1").Scan(&key); err != nil {
		return "", services.Wrap(services.ErrStore, "store", "read snapshot meta", s.path, err)
	}
	return key, nil
}

func (s *SnapshotStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT source_key FROM sources ORDER BY position")
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "list sources", s.path, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, services.Wrap(services.ErrStore, "store", "scan source", s.path, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "list sources", s.path, err)
	}
	return keys, nil
}

func (s *SnapshotStore) Fields(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, value FROM source_fields WHERE source_key = ?", key)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "fetch fields", key, err)
	}
	defer rows.Close()

	fields := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, services.Wrap(services.ErrStore, "store", "scan field", key, err)
		}
		fields[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "fetch fields", key, err)
	}
	return fields, nil
}

// Ping checks the snapshot database is readable.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return services.Wrap(services.ErrStore, "store", "ping", s.path, err)
	}
	return nil
}

func (s *SnapshotStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WriteSnapshot copies the source list and every source's fields from src into
// a fresh SQLite file at path, replacing any existing snapshot. It returns the
// number of sources written.
func WriteSnapshot(ctx context.Context, path, listKey string, src Store) (int, error) {
	if src == nil {
		return 0, services.Wrap(services.ErrConfiguration, "snapshot", "write", "source store unavailable", nil)
	}
	keys, err := src.List(ctx)
	if err != nil {
		return 0, err
	}
	fields := make([]map[string]string, len(keys))
	for i, key := range keys {
		f, err := src.Fields(ctx, key)
		if err != nil {
			return 0, err
		}
		fields[i] = f
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, services.Wrap(services.ErrValidation, "snapshot", "create directory", dir, err)
		}
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, services.Wrap(services.ErrValidation, "snapshot", "remove previous snapshot", path+suffix, err)
		}
	}

	db, err := openDB(path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrStore, "snapshot", "begin tx", path, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return 0, services.Wrap(services.ErrStore, "snapshot", "create schema", path, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", snapshotVersion); err != nil {
		return 0, services.Wrap(services.ErrStore, "snapshot", "record version", path, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO snapshot_meta (list_key, created_at) VALUES (?, ?)",
		listKey, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return 0, services.Wrap(services.ErrStore, "snapshot", "record meta", path, err)
	}

	for i, key := range keys {
		if _, err := tx.ExecContext(ctx, "INSERT INTO sources (position, source_key) VALUES (?, ?)", i, key); err != nil {
			return 0, services.Wrap(services.ErrStore, "snapshot", "insert source", key, err)
		}
		for name, value := range fields[i] {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO source_fields (source_key, name, value) VALUES (?, ?, ?)",
				key, name, value,
			); err != nil {
				return 0, services.Wrap(services.ErrStore, "snapshot", "insert field", key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, services.Wrap(services.ErrStore, "snapshot", "commit", path, err)
	}
	return len(keys), nil
}
