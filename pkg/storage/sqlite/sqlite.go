package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ahmmedrejowan/chargify/pkg/storage"
)

// Store implements storage.SessionStore on a SQLite file.
type Store struct {
	db *sql.DB
}

var _ storage.SessionStore = &Store{}

// Open opens the database at path and applies pending migrations.
func Open(path string) (*Store, error) {
	if err := storage.EnsureDir(path); err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Insert(ctx context.Context, session storage.ChargingSession) (storage.ChargingSession, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO charging_sessions (
			start_time, end_time, start_level, end_level,
			is_charging, power_source, average_current_ma, average_temp_celsius
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.StartTime, session.EndTime, session.StartLevel, session.EndLevel,
		session.IsCharging, session.PowerSource, session.AverageCurrentMa, session.AverageTempC,
	)
	if err != nil {
		return storage.ChargingSession{}, fmt.Errorf("failed to insert session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return storage.ChargingSession{}, fmt.Errorf("failed to get session id: %w", err)
	}
	session.ID = id
	return session, nil
}

func (s *Store) QueryRecent(ctx context.Context, limit int) ([]storage.ChargingSession, error) {
	if limit <= 0 {
		return []storage.ChargingSession{}, nil
	}
	return s.query(ctx, selectSessions+` ORDER BY start_time DESC, id DESC LIMIT ?`, limit)
}

func (s *Store) QueryAll(ctx context.Context) ([]storage.ChargingSession, error) {
	return s.query(ctx, selectSessions+` ORDER BY start_time DESC, id DESC`)
}

func (s *Store) QuerySince(ctx context.Context, since time.Time) ([]storage.ChargingSession, error) {
	return s.query(ctx, selectSessions+` WHERE start_time >= ? ORDER BY start_time DESC, id DESC`, since.UnixMilli())
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM charging_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session %d: %w", id, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM charging_sessions`); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	return nil
}

const selectSessions = `
	SELECT id, start_time, end_time, start_level, end_level,
		is_charging, power_source, average_current_ma, average_temp_celsius
	FROM charging_sessions`

func (s *Store) query(ctx context.Context, q string, args ...any) ([]storage.ChargingSession, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]storage.ChargingSession, 0)
	for rows.Next() {
		var c storage.ChargingSession
		if err := rows.Scan(
			&c.ID, &c.StartTime, &c.EndTime, &c.StartLevel, &c.EndLevel,
			&c.IsCharging, &c.PowerSource, &c.AverageCurrentMa, &c.AverageTempC,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL UNIQUE,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	migrations := getMigrations()
	versions := make([]int, 0, len(migrations))
	for v := range migrations {
		versions = append(versions, v)
	}
	sort.Ints(versions)

	for _, version := range versions {
		if version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(migrations[version]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}
	}

	return nil
}

func getMigrations() map[int]string {
	return map[int]string{
		1: migration001ChargingSessions,
	}
}

const migration001ChargingSessions = `
CREATE TABLE IF NOT EXISTS charging_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	start_time INTEGER NOT NULL,
	end_time INTEGER NOT NULL,
	start_level INTEGER NOT NULL,
	end_level INTEGER NOT NULL,
	is_charging INTEGER NOT NULL,
	power_source TEXT NOT NULL DEFAULT '',
	average_current_ma REAL NOT NULL DEFAULT 0,
	average_temp_celsius REAL NOT NULL DEFAULT 0
);

CREATE INDEX idx_charging_sessions_start_time ON charging_sessions(start_time);
`
