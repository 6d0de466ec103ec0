package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"evhub/internal/ev"
)

const writeTimeout = 5 * time.Second

// Listener mirrors connection store changes into persistent storage. The
// in-memory store stays authoritative at runtime; persistence failures are
// logged, never surfaced to the operation that triggered the write.
type Listener struct {
	storage Storage
	logger  *slog.Logger
}

// NewListener creates a write-through persistence listener
func NewListener(storage Storage, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{storage: storage, logger: logger}
}

// ConnectionSaved persists a created or updated connection
func (l *Listener) ConnectionSaved(conn *ev.Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := l.storage.SaveConnection(ctx, conn); err != nil {
		l.logger.Error("Failed to persist connection",
			"component", "storage",
			"user_id", conn.UserID,
			"vehicle_id", conn.VehicleID,
			"error", err,
		)
	}
}

// ConnectionRemoved deletes a connection from storage
func (l *Listener) ConnectionRemoved(userID, vehicleID string) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err := l.storage.DeleteConnection(ctx, userID, vehicleID)
	if err != nil && !errors.Is(err, ev.ErrConnectionNotFound) {
		l.logger.Error("Failed to delete persisted connection",
			"component", "storage",
			"user_id", userID,
			"vehicle_id", vehicleID,
			"error", err,
		)
	}
}

// Ensure the listener satisfies the store's interface
var _ ev.ConnectionListener = (*Listener)(nil)
