package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"evhub/internal/ev"
)

// SQLiteStorage implements storage.Storage using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage instance
func New(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	storage := &SQLiteStorage{db: db}

	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return storage, nil
}

// migrate creates the database schema
func (s *SQLiteStorage) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS connections (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			vehicle_id TEXT NOT NULL,
			manufacturer TEXT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT,
			token_expires_at DATETIME NOT NULL,
			token_type TEXT,
			scope TEXT,
			vehicle_snapshot TEXT,
			status TEXT NOT NULL,
			connected_at DATETIME NOT NULL,
			last_refreshed DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, vehicle_id)
		);

		CREATE INDEX IF NOT EXISTS idx_connections_user ON connections(user_id);
		CREATE INDEX IF NOT EXISTS idx_connections_manufacturer ON connections(manufacturer);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveConnection inserts or replaces the record for a (user, vehicle) pair
func (s *SQLiteStorage) SaveConnection(ctx context.Context, conn *ev.Connection) error {
	now := time.Now()

	var snapshotJSON sql.NullString
	if conn.Vehicle != nil {
		data, err := json.Marshal(conn.Vehicle)
		if err != nil {
			return fmt.Errorf("failed to marshal vehicle snapshot: %w", err)
		}
		snapshotJSON = sql.NullString{String: string(data), Valid: true}
	}

	var lastRefreshed sql.NullTime
	if conn.LastRefreshed != nil {
		lastRefreshed = sql.NullTime{Time: *conn.LastRefreshed, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO connections (id, user_id, vehicle_id, manufacturer,
			access_token, refresh_token, token_expires_at, token_type, scope,
			vehicle_snapshot, status, connected_at, last_refreshed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, vehicle_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expires_at = excluded.token_expires_at,
			token_type = excluded.token_type,
			scope = excluded.scope,
			vehicle_snapshot = excluded.vehicle_snapshot,
			status = excluded.status,
			last_refreshed = excluded.last_refreshed,
			updated_at = excluded.updated_at
	`, conn.ID, conn.UserID, conn.VehicleID, string(conn.Manufacturer),
		conn.Token.AccessToken, conn.Token.RefreshToken, conn.Token.ExpiresAt,
		conn.Token.TokenType, conn.Token.Scope,
		snapshotJSON, string(conn.Status), conn.ConnectedAt, lastRefreshed, now, now)

	return err
}

// GetConnection retrieves the record for a (user, vehicle) pair
func (s *SQLiteStorage) GetConnection(ctx context.Context, userID, vehicleID string) (*ev.Connection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, vehicle_id, manufacturer,
			access_token, refresh_token, token_expires_at, token_type, scope,
			vehicle_snapshot, status, connected_at, last_refreshed
		FROM connections WHERE user_id = ? AND vehicle_id = ?
	`, userID, vehicleID)

	conn, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return nil, ev.ErrConnectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// ListConnections retrieves every stored connection
func (s *SQLiteStorage) ListConnections(ctx context.Context) ([]*ev.Connection, error) {
	return s.listByCondition(ctx, "1=1")
}

// ListConnectionsByUser retrieves all connections for a user
func (s *SQLiteStorage) ListConnectionsByUser(ctx context.Context, userID string) ([]*ev.Connection, error) {
	return s.listByCondition(ctx, "user_id = ?", userID)
}

// DeleteConnection removes the record for a (user, vehicle) pair
func (s *SQLiteStorage) DeleteConnection(ctx context.Context, userID, vehicleID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM connections WHERE user_id = ? AND vehicle_id = ?", userID, vehicleID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ev.ErrConnectionNotFound
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Helper functions

func (s *SQLiteStorage) listByCondition(ctx context.Context, condition string, args ...interface{}) ([]*ev.Connection, error) {
	query := `
		SELECT id, user_id, vehicle_id, manufacturer,
			access_token, refresh_token, token_expires_at, token_type, scope,
			vehicle_snapshot, status, connected_at, last_refreshed
		FROM connections WHERE ` + condition + ` ORDER BY connected_at
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []*ev.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}

	return conns, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConnection(row rowScanner) (*ev.Connection, error) {
	var conn ev.Connection
	var manufacturer, status string
	var refreshToken, tokenType, scope, snapshotJSON sql.NullString
	var lastRefreshed sql.NullTime

	err := row.Scan(&conn.ID, &conn.UserID, &conn.VehicleID, &manufacturer,
		&conn.Token.AccessToken, &refreshToken, &conn.Token.ExpiresAt, &tokenType, &scope,
		&snapshotJSON, &status, &conn.ConnectedAt, &lastRefreshed)
	if err != nil {
		return nil, err
	}

	conn.Manufacturer = ev.Manufacturer(manufacturer)
	conn.Status = ev.ConnectionStatus(status)
	conn.Token.RefreshToken = refreshToken.String
	conn.Token.TokenType = tokenType.String
	conn.Token.Scope = scope.String

	if lastRefreshed.Valid {
		conn.LastRefreshed = &lastRefreshed.Time
	}
	if snapshotJSON.Valid {
		var snapshot ev.VehicleSnapshot
		if err := json.Unmarshal([]byte(snapshotJSON.String), &snapshot); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vehicle snapshot: %w", err)
		}
		conn.Vehicle = &snapshot
	}

	return &conn, nil
}
