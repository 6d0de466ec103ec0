package ev

import (
	"fmt"
	"sync"
	"time"
)

// ConnectionListener observes store mutations, typically to persist them.
// Listener failures are the listener's problem; the store never blocks on
// them beyond the synchronous call.
type ConnectionListener interface {
	ConnectionSaved(conn *Connection)
	ConnectionRemoved(userID, vehicleID string)
}

type storedConnection struct {
	conn  *Connection
	state *lifecycle
}

// ConnectionStore holds the per-(user, vehicle) session state: token, cached
// vehicle reference, and connection metadata. It is the only mutable state
// in the hub; all writes go through its methods.
type ConnectionStore struct {
	mu          sync.RWMutex
	connections map[string]*storedConnection
	listener    ConnectionListener
}

// NewConnectionStore creates an empty store
func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{
		connections: make(map[string]*storedConnection),
	}
}

// SetListener attaches a mutation observer. Call before concurrent use.
func (s *ConnectionStore) SetListener(listener ConnectionListener) {
	s.listener = listener
}

// Add inserts a new connection keyed by (userID, vehicleID)
func (s *ConnectionStore) Add(conn *Connection) error {
	s.mu.Lock()

	key := conn.Key()
	if _, exists := s.connections[key]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrConnectionExists, key)
	}

	if conn.Status == "" {
		conn.Status = StatusConnected
	}

	stored := &storedConnection{
		conn:  conn,
		state: newLifecycle(conn.Status),
	}
	s.connections[key] = stored
	saved := cloneConnection(conn)
	s.mu.Unlock()

	s.notifySaved(saved)
	return nil
}

// Get returns a copy of the connection for the pair, or ErrConnectionNotFound
func (s *ConnectionStore) Get(userID, vehicleID string) (*Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.connections[ConnectionKey(userID, vehicleID)]
	if !ok {
		return nil, fmt.Errorf("%w: user=%s vehicle=%s", ErrConnectionNotFound, userID, vehicleID)
	}
	return cloneConnection(stored.conn), nil
}

// ListByUser returns copies of all of a user's connections
func (s *ConnectionStore) ListByUser(userID string) []*Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var conns []*Connection
	for _, stored := range s.connections {
		if stored.conn.UserID == userID {
			conns = append(conns, cloneConnection(stored.conn))
		}
	}
	return conns
}

// UpdateToken persists a refreshed token into the connection
func (s *ConnectionStore) UpdateToken(userID, vehicleID string, token AuthToken, refreshedAt time.Time) error {
	s.mu.Lock()

	stored, ok := s.connections[ConnectionKey(userID, vehicleID)]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: user=%s vehicle=%s", ErrConnectionNotFound, userID, vehicleID)
	}

	stored.conn.Token = token
	stored.conn.LastRefreshed = &refreshedAt
	saved := cloneConnection(stored.conn)
	s.mu.Unlock()

	s.notifySaved(saved)
	return nil
}

// SetVehicleSnapshot backfills the cached vehicle reference
func (s *ConnectionStore) SetVehicleSnapshot(userID, vehicleID string, snapshot *VehicleSnapshot) error {
	s.mu.Lock()

	stored, ok := s.connections[ConnectionKey(userID, vehicleID)]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: user=%s vehicle=%s", ErrConnectionNotFound, userID, vehicleID)
	}

	stored.conn.Vehicle = snapshot
	saved := cloneConnection(stored.conn)
	s.mu.Unlock()

	s.notifySaved(saved)
	return nil
}

// ResolveVehicle re-keys a pending connection onto its real vehicle id once
// the first vehicle-list call has identified it, and moves the lifecycle to
// connected
func (s *ConnectionStore) ResolveVehicle(userID string, manufacturer Manufacturer, snapshot *VehicleSnapshot) (*Connection, error) {
	s.mu.Lock()

	pendingID := PendingVehicle(manufacturer)
	pendingKey := ConnectionKey(userID, pendingID)
	stored, ok := s.connections[pendingKey]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no pending %s connection for user %s", ErrConnectionNotFound, manufacturer, userID)
	}

	if err := stored.state.trigger(transitionConnect); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	delete(s.connections, pendingKey)
	stored.conn.VehicleID = snapshot.ID
	stored.conn.Vehicle = snapshot
	stored.conn.Status = stored.state.current()
	s.connections[stored.conn.Key()] = stored
	saved := cloneConnection(stored.conn)
	s.mu.Unlock()

	s.notifyRemoved(userID, pendingID)
	s.notifySaved(saved)
	return cloneConnection(saved), nil
}

// Remove disconnects and deletes the connection. Disconnection is terminal;
// re-adding later creates a fresh Connection.
func (s *ConnectionStore) Remove(userID, vehicleID string) error {
	s.mu.Lock()

	key := ConnectionKey(userID, vehicleID)
	stored, ok := s.connections[key]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: user=%s vehicle=%s", ErrConnectionNotFound, userID, vehicleID)
	}

	if err := stored.state.trigger(transitionDisconnect); err != nil {
		s.mu.Unlock()
		return err
	}
	stored.conn.Status = stored.state.current()
	delete(s.connections, key)
	s.mu.Unlock()

	s.notifyRemoved(userID, vehicleID)
	return nil
}

// Len returns the number of live connections
func (s *ConnectionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

func (s *ConnectionStore) notifySaved(conn *Connection) {
	if s.listener != nil {
		s.listener.ConnectionSaved(conn)
	}
}

func (s *ConnectionStore) notifyRemoved(userID, vehicleID string) {
	if s.listener != nil {
		s.listener.ConnectionRemoved(userID, vehicleID)
	}
}

func cloneConnection(conn *Connection) *Connection {
	c := *conn
	if conn.Vehicle != nil {
		v := *conn.Vehicle
		c.Vehicle = &v
	}
	if conn.LastRefreshed != nil {
		t := *conn.LastRefreshed
		c.LastRefreshed = &t
	}
	return &c
}
