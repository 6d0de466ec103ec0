package storage

import (
	"context"

	"evhub/internal/ev"
)

// Storage defines the interface for connection persistence
type Storage interface {
	// Connections
	SaveConnection(ctx context.Context, conn *ev.Connection) error
	GetConnection(ctx context.Context, userID, vehicleID string) (*ev.Connection, error)
	ListConnections(ctx context.Context) ([]*ev.Connection, error)
	ListConnectionsByUser(ctx context.Context, userID string) ([]*ev.Connection, error)
	DeleteConnection(ctx context.Context, userID, vehicleID string) error

	// Lifecycle
	Close() error
}
