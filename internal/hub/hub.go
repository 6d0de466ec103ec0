// Package hub composes the adapter registry, connection store, caches,
// retry executor, and event sink behind the single API the rest of the
// application calls. Adapters are never invoked from outside this package.
package hub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"evhub/internal/adapters"
	"evhub/internal/cache"
	"evhub/internal/clock"
	"evhub/internal/ev"
	"evhub/internal/events"
	"evhub/internal/idgen"
	"evhub/internal/retry"
)

// Cache and retry defaults. Wake-up is the canonical flaky operation and
// gets a higher retry ceiling than ordinary commands.
const (
	DefaultVehicleCacheTTL = 30 * time.Second
	DefaultBatteryCacheTTL = 30 * time.Second
	DefaultStationCacheTTL = 5 * time.Minute

	defaultCacheSize        = 1000
	defaultStationCacheSize = 500

	DefaultCommandRetries = 2
	DefaultWakeUpRetries  = 4
	DefaultRetryBaseDelay = time.Second

	DefaultWakeUpPollInterval = 5 * time.Second
	DefaultWakeUpMaxAttempts  = 6
)

// Registry is the adapter lookup surface the hub depends on
type Registry interface {
	Get(manufacturer ev.Manufacturer) adapters.Adapter
	Has(manufacturer ev.Manufacturer) bool
	List() []ev.Manufacturer
}

// Config holds the hub's injected dependencies and tuning. Zero values fall
// back to the defaults above, so tests can construct isolated hubs cheaply.
type Config struct {
	Registry Registry
	Store    *ev.ConnectionStore
	Sink     events.Sink
	Clock    clock.Clock
	Logger   *slog.Logger

	VehicleCacheTTL time.Duration
	BatteryCacheTTL time.Duration
	StationCacheTTL time.Duration

	CommandRetries     int
	WakeUpRetries      int
	RetryBaseDelay     time.Duration
	WakeUpPollInterval time.Duration
	WakeUpMaxAttempts  int
}

// Hub is the orchestrator over all manufacturer integrations
type Hub struct {
	registry Registry
	store    *ev.ConnectionStore
	sink     events.Sink
	clock    clock.Clock
	logger   *slog.Logger

	vehicleCache *cache.Cache[*ev.VehicleSnapshot]
	batteryCache *cache.Cache[*ev.BatteryState]
	stationCache *cache.Cache[[]ev.ChargingStation]

	commandRetries     int
	wakeUpRetries      int
	retryBaseDelay     time.Duration
	wakeUpPollInterval time.Duration
	wakeUpMaxAttempts  int
}

// New creates a hub from explicit dependencies
func New(cfg Config) *Hub {
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Sink == nil {
		cfg.Sink = events.NopSink{}
	}
	if cfg.Store == nil {
		cfg.Store = ev.NewConnectionStore()
	}
	if cfg.VehicleCacheTTL <= 0 {
		cfg.VehicleCacheTTL = DefaultVehicleCacheTTL
	}
	if cfg.BatteryCacheTTL <= 0 {
		cfg.BatteryCacheTTL = DefaultBatteryCacheTTL
	}
	if cfg.StationCacheTTL <= 0 {
		cfg.StationCacheTTL = DefaultStationCacheTTL
	}
	if cfg.CommandRetries <= 0 {
		cfg.CommandRetries = DefaultCommandRetries
	}
	if cfg.WakeUpRetries <= 0 {
		cfg.WakeUpRetries = DefaultWakeUpRetries
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if cfg.WakeUpPollInterval <= 0 {
		cfg.WakeUpPollInterval = DefaultWakeUpPollInterval
	}
	if cfg.WakeUpMaxAttempts <= 0 {
		cfg.WakeUpMaxAttempts = DefaultWakeUpMaxAttempts
	}

	return &Hub{
		registry:           cfg.Registry,
		store:              cfg.Store,
		sink:               cfg.Sink,
		clock:              cfg.Clock,
		logger:             cfg.Logger,
		vehicleCache:       cache.New[*ev.VehicleSnapshot](cfg.VehicleCacheTTL, defaultCacheSize, cfg.Clock),
		batteryCache:       cache.New[*ev.BatteryState](cfg.BatteryCacheTTL, defaultCacheSize, cfg.Clock),
		stationCache:       cache.New[[]ev.ChargingStation](cfg.StationCacheTTL, defaultStationCacheSize, cfg.Clock),
		commandRetries:     cfg.CommandRetries,
		wakeUpRetries:      cfg.WakeUpRetries,
		retryBaseDelay:     cfg.RetryBaseDelay,
		wakeUpPollInterval: cfg.WakeUpPollInterval,
		wakeUpMaxAttempts:  cfg.WakeUpMaxAttempts,
	}
}

// GetAuthorizationURL delegates to the manufacturer adapter; no side effects
func (h *Hub) GetAuthorizationURL(manufacturer ev.Manufacturer, state string) string {
	return h.registry.Get(manufacturer).GetAuthorizationURL(state)
}

// CompleteOAuth exchanges an authorization code and creates a pending
// connection. The vehicle id stays a placeholder until the next vehicle-list
// call resolves it.
func (h *Hub) CompleteOAuth(ctx context.Context, manufacturer ev.Manufacturer, code, userID string) (*ev.AuthResult, error) {
	if !manufacturer.Valid() {
		return nil, fmt.Errorf("%w: %s", ev.ErrManufacturerUnknown, manufacturer)
	}

	adapter := h.registry.Get(manufacturer)
	token, err := adapter.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code for %s: %w", manufacturer, err)
	}

	conn := &ev.Connection{
		ID:           idgen.NewConnection(),
		UserID:       userID,
		VehicleID:    ev.PendingVehicle(manufacturer),
		Manufacturer: manufacturer,
		Token:        token,
		Status:       ev.StatusPendingAuth,
		ConnectedAt:  h.clock.Now(),
	}
	if err := h.store.Add(conn); err != nil {
		return nil, err
	}

	h.sink.Emit(events.VehicleConnected, map[string]any{
		"user_id":      userID,
		"manufacturer": manufacturer,
		"vehicle_id":   conn.VehicleID,
	})

	return &ev.AuthResult{Connection: conn, Token: token}, nil
}

// GetUserVehicles fans out across the user's connections, one adapter call
// per manufacturer. A single manufacturer failing is logged and skipped so
// the other manufacturers' vehicles still come back.
func (h *Hub) GetUserVehicles(ctx context.Context, userID string) ([]ev.VehicleSnapshot, error) {
	conns := h.store.ListByUser(userID)

	// One representative connection per manufacturer
	byManufacturer := make(map[ev.Manufacturer]*ev.Connection)
	for _, conn := range conns {
		if !conn.Active() {
			continue
		}
		if _, seen := byManufacturer[conn.Manufacturer]; !seen {
			byManufacturer[conn.Manufacturer] = conn
		}
	}

	var vehicles []ev.VehicleSnapshot
	for manufacturer, conn := range byManufacturer {
		adapter := h.registry.Get(manufacturer)
		token := h.freshToken(ctx, adapter, conn)

		listed, err := adapter.GetVehicles(ctx, token)
		if err != nil {
			h.logger.Warn("Vehicle list failed, skipping manufacturer",
				"component", "hub",
				"user_id", userID,
				"manufacturer", manufacturer,
				"error", err,
			)
			continue
		}

		for i := range listed {
			h.backfillSnapshot(userID, manufacturer, &listed[i])
		}
		vehicles = append(vehicles, listed...)
	}

	return vehicles, nil
}

// backfillSnapshot attaches a listed vehicle to its connection record,
// resolving a pending connection when the vehicle is new
func (h *Hub) backfillSnapshot(userID string, manufacturer ev.Manufacturer, snapshot *ev.VehicleSnapshot) {
	if _, err := h.store.Get(userID, snapshot.ID); err == nil {
		if err := h.store.SetVehicleSnapshot(userID, snapshot.ID, snapshot); err != nil {
			h.logger.Warn("Snapshot backfill failed",
				"component", "hub",
				"user_id", userID,
				"vehicle_id", snapshot.ID,
				"error", err,
			)
		}
		return
	}

	if _, err := h.store.Get(userID, ev.PendingVehicle(manufacturer)); err != nil {
		return
	}
	if _, err := h.store.ResolveVehicle(userID, manufacturer, snapshot); err != nil {
		h.logger.Warn("Pending connection resolution failed",
			"component", "hub",
			"user_id", userID,
			"vehicle_id", snapshot.ID,
			"error", err,
		)
	}
}

// GetVehicle is a cache-through read of one vehicle snapshot
func (h *Hub) GetVehicle(ctx context.Context, userID, vehicleID string) (*ev.VehicleSnapshot, error) {
	key := ev.ConnectionKey(userID, vehicleID)
	if snapshot, ok := h.vehicleCache.Get(key); ok {
		return snapshot, nil
	}

	conn, err := h.store.Get(userID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("%w: user=%s vehicle=%s", ev.ErrVehicleNotFound, userID, vehicleID)
	}

	adapter := h.registry.Get(conn.Manufacturer)
	token := h.freshToken(ctx, adapter, conn)

	snapshot, err := adapter.GetVehicle(ctx, token, vehicleID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, fmt.Errorf("%w: user=%s vehicle=%s", ev.ErrVehicleNotFound, userID, vehicleID)
	}

	h.vehicleCache.Set(key, snapshot)
	if err := h.store.SetVehicleSnapshot(userID, vehicleID, snapshot); err != nil {
		h.logger.Warn("Snapshot backfill failed",
			"component", "hub",
			"user_id", userID,
			"vehicle_id", vehicleID,
			"error", err,
		)
	}
	return snapshot, nil
}

// WakeUpVehicle sends a wake command and polls until the vehicle reports
// online. It returns false, never an error, when the poll budget runs out.
func (h *Hub) WakeUpVehicle(ctx context.Context, userID, vehicleID string) (bool, error) {
	conn, err := h.store.Get(userID, vehicleID)
	if err != nil {
		return false, err
	}

	adapter := h.registry.Get(conn.Manufacturer)
	token := h.freshToken(ctx, adapter, conn)

	_, err = retry.Do(ctx, h.retryPolicy(h.wakeUpRetries), func() (struct{}, error) {
		return struct{}{}, adapter.WakeUpVehicle(ctx, token, vehicleID)
	})
	if err != nil {
		h.logger.Warn("Wake-up dispatch failed",
			"component", "hub",
			"user_id", userID,
			"vehicle_id", vehicleID,
			"error", err,
		)
		return false, nil
	}

	for attempt := 0; attempt < h.wakeUpMaxAttempts; attempt++ {
		h.clock.Sleep(h.wakeUpPollInterval)

		vehicles, err := adapter.GetVehicles(ctx, token)
		if err != nil {
			h.logger.Debug("Wake-up poll failed",
				"component", "hub",
				"vehicle_id", vehicleID,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}
		for i := range vehicles {
			if vehicles[i].ID == vehicleID && vehicles[i].Online {
				h.vehicleCache.Set(ev.ConnectionKey(userID, vehicleID), &vehicles[i])
				return true, nil
			}
		}
	}

	return false, nil
}

// GetBatteryState reads the battery snapshot through the battery cache and
// emits a status update on every cache miss
func (h *Hub) GetBatteryState(ctx context.Context, userID, vehicleID string) (*ev.BatteryState, error) {
	key := ev.ConnectionKey(userID, vehicleID)
	if state, ok := h.batteryCache.Get(key); ok {
		return state, nil
	}

	conn, err := h.store.Get(userID, vehicleID)
	if err != nil {
		return nil, err
	}

	adapter := h.registry.Get(conn.Manufacturer)
	token := h.freshToken(ctx, adapter, conn)

	state, err := adapter.GetBatteryState(ctx, token, vehicleID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("%w: user=%s vehicle=%s", ev.ErrVehicleNotFound, userID, vehicleID)
	}

	h.batteryCache.Set(key, state)
	h.sink.Emit(events.VehicleStatusUpdated, map[string]any{
		"user_id":         userID,
		"vehicle_id":      vehicleID,
		"state_of_charge": state.StateOfCharge,
		"charging_state":  state.ChargingState,
	})
	return state, nil
}

// GetClimateState reads the climate snapshot. Never cached: freshness
// matters more than the cost of the call.
func (h *Hub) GetClimateState(ctx context.Context, userID, vehicleID string) (*ev.ClimateState, error) {
	conn, err := h.store.Get(userID, vehicleID)
	if err != nil {
		return nil, err
	}

	adapter := h.registry.Get(conn.Manufacturer)
	token := h.freshToken(ctx, adapter, conn)
	return adapter.GetClimateState(ctx, token, vehicleID)
}

// GetLocation reads the location snapshot. Never cached.
func (h *Hub) GetLocation(ctx context.Context, userID, vehicleID string) (*ev.LocationState, error) {
	conn, err := h.store.Get(userID, vehicleID)
	if err != nil {
		return nil, err
	}

	adapter := h.registry.Get(conn.Manufacturer)
	token := h.freshToken(ctx, adapter, conn)
	return adapter.GetLocation(ctx, token, vehicleID)
}

// SendCommand dispatches a command with retry. Expected failures come back
// as a failed CommandResult; the error return is reserved for missing
// connections. On success, state-mutating commands invalidate the battery
// cache entry for the pair.
func (h *Hub) SendCommand(ctx context.Context, userID, vehicleID, name string, params map[string]any) (ev.CommandResult, error) {
	conn, err := h.store.Get(userID, vehicleID)
	if err != nil {
		return ev.CommandResult{}, err
	}

	adapter := h.registry.Get(conn.Manufacturer)
	token := h.freshToken(ctx, adapter, conn)
	cmd := ev.Command{Name: name, VehicleID: vehicleID, Params: params}
	commandID := idgen.NewCommand()

	h.sink.Emit(events.VehicleCommandSent, map[string]any{
		"user_id":    userID,
		"vehicle_id": vehicleID,
		"command":    name,
		"command_id": commandID,
	})

	retries := h.commandRetries
	if name == ev.CommandWakeUp {
		retries = h.wakeUpRetries
	}

	result, err := retry.Do(ctx, h.retryPolicy(retries), func() (ev.CommandResult, error) {
		res, err := adapter.SendCommand(ctx, token, cmd)
		if err != nil {
			return res, adapter.TransformError(err)
		}
		if !res.Success && res.Retryable {
			// Drive the retry loop off the tagged result. The error on a
			// failed result is optional, so synthesize one when absent.
			failure := res.Err
			if failure == nil {
				failure = ev.NewProviderError(ev.CodeCommandFailed, "command failed")
				res.Err = failure
			}
			return res, failure
		}
		return res, nil
	})
	if err != nil {
		result = ev.FailedResult(ev.AsProviderError(err))
	}
	if result.CommandID == "" {
		result.CommandID = commandID
	}

	h.sink.Emit(events.VehicleCommandCompleted, map[string]any{
		"user_id":    userID,
		"vehicle_id": vehicleID,
		"command":    name,
		"command_id": result.CommandID,
		"success":    result.Success,
	})

	if result.Success {
		if cmd.MutatesChargeState() {
			h.batteryCache.Delete(ev.ConnectionKey(userID, vehicleID))
		}
		switch name {
		case ev.CommandStartCharging:
			h.sink.Emit(events.ChargingStarted, map[string]any{"user_id": userID, "vehicle_id": vehicleID})
		case ev.CommandStopCharging:
			h.sink.Emit(events.ChargingStopped, map[string]any{"user_id": userID, "vehicle_id": vehicleID})
		}
	}

	return result, nil
}

// FindChargingStations searches near a coordinate through the station cache.
// Adapters without the capability yield an empty list, not an error.
func (h *Hub) FindChargingStations(ctx context.Context, userID, vehicleID string, lat, lon, radiusKm float64) ([]ev.ChargingStation, error) {
	conn, err := h.store.Get(userID, vehicleID)
	if err != nil {
		return nil, err
	}

	adapter := h.registry.Get(conn.Manufacturer)
	if !adapter.Capabilities().Has(ev.CapabilityChargingStations) {
		return []ev.ChargingStation{}, nil
	}

	key := stationCacheKey(lat, lon, radiusKm)
	if stations, ok := h.stationCache.Get(key); ok {
		return stations, nil
	}

	token := h.freshToken(ctx, adapter, conn)
	stations, err := adapter.FindChargingStations(ctx, token, lat, lon, radiusKm)
	if err != nil {
		return nil, err
	}

	h.stationCache.Set(key, stations)
	return stations, nil
}

// stationCacheKey quantizes the search coordinate so nearby requests share
// one cache entry
func stationCacheKey(lat, lon, radiusKm float64) string {
	return fmt.Sprintf("%.3f:%.3f:%g", lat, lon, radiusKm)
}

// GenerateChargingSchedule computes a charging plan for the vehicle. When
// the caller gives no current state of charge, the latest battery reading
// fills it in.
func (h *Hub) GenerateChargingSchedule(ctx context.Context, userID, vehicleID string, opts ev.ScheduleOptions) (*ev.ChargingSchedule, error) {
	if _, err := h.store.Get(userID, vehicleID); err != nil {
		return nil, err
	}

	if opts.CurrentSoC <= 0 {
		if state, err := h.GetBatteryState(ctx, userID, vehicleID); err == nil {
			opts.CurrentSoC = state.StateOfCharge
		} else {
			h.logger.Warn("Battery state unavailable for schedule, using zero SoC",
				"component", "hub",
				"vehicle_id", vehicleID,
				"error", err,
			)
		}
	}

	return ev.GenerateChargingSchedule(vehicleID, opts, h.clock.Now()), nil
}

// AddConnection registers a connection directly, outside the OAuth flow
func (h *Hub) AddConnection(conn *ev.Connection) error {
	if !conn.Manufacturer.Valid() {
		return fmt.Errorf("%w: %s", ev.ErrManufacturerUnknown, conn.Manufacturer)
	}
	if conn.ID == "" {
		conn.ID = idgen.NewConnection()
	}
	if conn.ConnectedAt.IsZero() {
		conn.ConnectedAt = h.clock.Now()
	}
	if conn.Status == "" {
		conn.Status = ev.StatusConnected
	}

	if err := h.store.Add(conn); err != nil {
		return err
	}

	h.sink.Emit(events.VehicleConnected, map[string]any{
		"user_id":      conn.UserID,
		"vehicle_id":   conn.VehicleID,
		"manufacturer": conn.Manufacturer,
	})
	return nil
}

// RemoveConnection disconnects the pair and purges every cache entry keyed
// by it
func (h *Hub) RemoveConnection(userID, vehicleID string) error {
	if err := h.store.Remove(userID, vehicleID); err != nil {
		return err
	}

	key := ev.ConnectionKey(userID, vehicleID)
	h.vehicleCache.Delete(key)
	h.batteryCache.Delete(key)

	h.sink.Emit(events.VehicleDisconnected, map[string]any{
		"user_id":    userID,
		"vehicle_id": vehicleID,
	})
	return nil
}

// GetUserConnections lists the user's connections
func (h *Hub) GetUserConnections(userID string) []*ev.Connection {
	return h.store.ListByUser(userID)
}

// GetSupportedManufacturers lists manufacturers with registered adapters
func (h *Hub) GetSupportedManufacturers() []ev.Manufacturer {
	return h.registry.List()
}

// IsManufacturerSupported reports whether a real adapter is registered
func (h *Hub) IsManufacturerSupported(manufacturer ev.Manufacturer) bool {
	return h.registry.Has(manufacturer)
}

// GetCacheStats returns counters for every hub cache
func (h *Hub) GetCacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"vehicles": h.vehicleCache.Stats(),
		"battery":  h.batteryCache.Stats(),
		"stations": h.stationCache.Stats(),
	}
}

// ClearCaches empties every hub cache
func (h *Hub) ClearCaches() {
	h.vehicleCache.Clear()
	h.batteryCache.Clear()
	h.stationCache.Clear()
}

// retryPolicy builds the standard retry policy with the given ceiling
func (h *Hub) retryPolicy(maxRetries int) retry.Policy {
	return retry.Policy{
		MaxRetries: maxRetries,
		BaseDelay:  h.retryBaseDelay,
		Retryable:  ev.IsRetryable,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			h.logger.Debug("Retrying provider operation",
				"component", "hub",
				"attempt", attempt,
				"delay", delay,
				"error", err,
			)
		},
	}
}

// freshToken returns a token safe to hand to the adapter. Tokens expiring
// within the buffer get refreshed and persisted; when refresh fails the
// stale token is used anyway rather than failing the whole operation.
func (h *Hub) freshToken(ctx context.Context, adapter adapters.Adapter, conn *ev.Connection) ev.AuthToken {
	now := h.clock.Now()
	if !conn.Token.ExpiringSoon(now) {
		return conn.Token
	}
	if !conn.Token.CanRefresh() {
		h.logger.Warn("Token expiring and no refresh token, proceeding as-is",
			"component", "hub",
			"user_id", conn.UserID,
			"vehicle_id", conn.VehicleID,
		)
		return conn.Token
	}

	refreshed, err := adapter.RefreshToken(ctx, conn.Token)
	if err != nil {
		h.logger.Warn("Token refresh failed, proceeding with stale token",
			"component", "hub",
			"user_id", conn.UserID,
			"vehicle_id", conn.VehicleID,
			"manufacturer", conn.Manufacturer,
			"error", err,
		)
		return conn.Token
	}

	if err := h.store.UpdateToken(conn.UserID, conn.VehicleID, refreshed, now); err != nil {
		h.logger.Warn("Refreshed token not persisted",
			"component", "hub",
			"user_id", conn.UserID,
			"vehicle_id", conn.VehicleID,
			"error", err,
		)
	}
	return refreshed
}
