package ev

import (
	"fmt"
	"time"
)

// Manufacturer identifies a vehicle API provider
type Manufacturer string

const (
	ManufacturerTesla   Manufacturer = "tesla"
	ManufacturerRivian  Manufacturer = "rivian"
	ManufacturerFord    Manufacturer = "ford"
	ManufacturerBMW     Manufacturer = "bmw"
	ManufacturerHyundai Manufacturer = "hyundai"
)

// Manufacturers is the closed set of supported providers
var Manufacturers = []Manufacturer{
	ManufacturerTesla,
	ManufacturerRivian,
	ManufacturerFord,
	ManufacturerBMW,
	ManufacturerHyundai,
}

// Valid reports whether m is a member of the closed set
func (m Manufacturer) Valid() bool {
	for _, known := range Manufacturers {
		if m == known {
			return true
		}
	}
	return false
}

// ParseManufacturer converts a string into a Manufacturer
func ParseManufacturer(s string) (Manufacturer, error) {
	m := Manufacturer(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %s", ErrManufacturerUnknown, s)
	}
	return m, nil
}

// TokenExpiryBuffer is the window before expiry within which a token is
// treated as already expired, so it gets refreshed before the provider
// rejects it mid-call
const TokenExpiryBuffer = 5 * time.Minute

// AuthToken holds the OAuth credentials for one connection.
// ExpiresAt is always set. An empty RefreshToken means the connection cannot
// self-renew and must be re-authorized by the user.
type AuthToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope,omitempty"`
}

// Expired reports whether the token expired at or before now
func (t AuthToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// ExpiringSoon reports whether the token expires within the refresh buffer
func (t AuthToken) ExpiringSoon(now time.Time) bool {
	return !t.ExpiresAt.After(now.Add(TokenExpiryBuffer))
}

// CanRefresh reports whether the connection can self-renew
func (t AuthToken) CanRefresh() bool {
	return t.RefreshToken != ""
}

// ConnectionStatus represents the lifecycle state of a connection
type ConnectionStatus string

const (
	StatusPendingAuth  ConnectionStatus = "pending_auth"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// PendingVehicleID prefixes the placeholder vehicle id used between a
// completed OAuth exchange and the first vehicle-list call that resolves the
// real id. The placeholder is manufacturer-qualified so one user can run
// OAuth flows for several manufacturers at once.
const PendingVehicleID = "pending"

// PendingVehicle returns the placeholder vehicle id for a manufacturer
func PendingVehicle(m Manufacturer) string {
	return PendingVehicleID + ":" + string(m)
}

// Connection is the per-(user, vehicle) record of authorization and cached
// vehicle identity. It is the only mutable session state in the hub.
type Connection struct {
	ID            string
	UserID        string
	VehicleID     string
	Manufacturer  Manufacturer
	Token         AuthToken
	Vehicle       *VehicleSnapshot // backfilled by vehicle-list calls
	Status        ConnectionStatus
	ConnectedAt   time.Time
	LastRefreshed *time.Time
}

// Active reports whether the connection can serve adapter calls
func (c *Connection) Active() bool {
	return c.Status == StatusConnected || c.Status == StatusPendingAuth
}

// Key returns the store key for a (user, vehicle) pair
func (c *Connection) Key() string {
	return ConnectionKey(c.UserID, c.VehicleID)
}

// ConnectionKey builds the composite key for a (user, vehicle) pair
func ConnectionKey(userID, vehicleID string) string {
	return userID + ":" + vehicleID
}

// Capability identifies one optional adapter feature. The hub branches on
// declared capability sets, never on probing whether a call happens to work.
type Capability string

const (
	CapabilityWakeUp           Capability = "wake_up"
	CapabilityBattery          Capability = "battery"
	CapabilityClimate          Capability = "climate"
	CapabilityLocation         Capability = "location"
	CapabilityCommands         Capability = "commands"
	CapabilityChargingStations Capability = "charging_stations"
)

// VehicleSnapshot is the manufacturer-normalized vehicle identity record.
// Adapters return it freshly on each call; the hub decides whether to cache.
type VehicleSnapshot struct {
	ID           string       `json:"id"`
	VIN          string       `json:"vin"`
	Model        string       `json:"model"`
	Year         int          `json:"year"`
	Online       bool         `json:"online"`
	Capabilities []Capability `json:"capabilities,omitempty"`
}

// BatteryState is a normalized battery snapshot
type BatteryState struct {
	VehicleID      string    `json:"vehicle_id"`
	StateOfCharge  float64   `json:"state_of_charge"` // percent
	RangeKm        float64   `json:"range_km"`
	ChargingState  string    `json:"charging_state"` // "charging", "stopped", "complete", "disconnected"
	ChargeLimitSoC int       `json:"charge_limit_soc"`
	ChargerPowerKw float64   `json:"charger_power_kw"`
	PluggedIn      bool      `json:"plugged_in"`
	Timestamp      time.Time `json:"timestamp"`
}

// ClimateState is a normalized climate snapshot
type ClimateState struct {
	VehicleID   string    `json:"vehicle_id"`
	InsideTemp  float64   `json:"inside_temp"`
	OutsideTemp float64   `json:"outside_temp"`
	ClimateOn   bool      `json:"climate_on"`
	TargetTemp  float64   `json:"target_temp"`
	Timestamp   time.Time `json:"timestamp"`
}

// LocationState is a normalized location snapshot
type LocationState struct {
	VehicleID string    `json:"vehicle_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Heading   float64   `json:"heading"`
	SpeedKmh  float64   `json:"speed_kmh"`
	Timestamp time.Time `json:"timestamp"`
}

// Command names understood across adapters
const (
	CommandWakeUp         = "wake_up"
	CommandStartCharging  = "start_charging"
	CommandStopCharging   = "stop_charging"
	CommandSetChargeLimit = "set_charge_limit"
	CommandClimateOn      = "climate_on"
	CommandClimateOff     = "climate_off"
	CommandLock           = "lock"
	CommandUnlock         = "unlock"
	CommandHonkHorn       = "honk_horn"
	CommandFlashLights    = "flash_lights"
)

// Command is a request for a vehicle action
type Command struct {
	Name      string         `json:"name"`
	VehicleID string         `json:"vehicle_id"`
	Params    map[string]any `json:"params,omitempty"`
}

// MutatesChargeState reports whether a successful execution invalidates
// cached battery state
func (c Command) MutatesChargeState() bool {
	switch c.Name {
	case CommandStartCharging, CommandStopCharging, CommandSetChargeLimit,
		CommandClimateOn, CommandClimateOff:
		return true
	}
	return false
}

// CommandResult is the tagged outcome of a command. Expected manufacturer
// failures (unsupported command, vehicle asleep, rate limited) come back as
// Success=false with Err set, never as an error return. Callers must check
// Success.
type CommandResult struct {
	Success   bool           `json:"success"`
	CommandID string         `json:"command_id,omitempty"` // set by async adapters for status polling
	Err       *ProviderError `json:"error,omitempty"`
	Retryable bool           `json:"retryable"`
}

// FailedResult builds a failure CommandResult from a taxonomy error
func FailedResult(err *ProviderError) CommandResult {
	return CommandResult{
		Success:   false,
		Err:       err,
		Retryable: err.Retryable,
	}
}

// ChargingStation is one result of a station search
type ChargingStation struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	DistanceKm      float64 `json:"distance_km"`
	AvailableStalls int     `json:"available_stalls"`
	TotalStalls     int     `json:"total_stalls"`
	MaxPowerKw      float64 `json:"max_power_kw"`
	PricePerKwh     float64 `json:"price_per_kwh"`
}

// ChargingSlot is one contiguous charging period in a schedule
type ChargingSlot struct {
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	TargetPowerKw float64   `json:"target_power_kw"`
	PricePerKwh   float64   `json:"price_per_kwh"`
	OffPeak       bool      `json:"off_peak"`
}

// ChargingSchedule is a computed charging plan
type ChargingSchedule struct {
	VehicleID     string         `json:"vehicle_id"`
	Slots         []ChargingSlot `json:"slots"`
	TargetSoC     float64        `json:"target_soc"`
	ReadyBy       time.Time      `json:"ready_by"`
	EstimatedCost float64        `json:"estimated_cost"`
	CostSavings   float64        `json:"cost_savings,omitempty"`
}

// TotalEnergyKwh sums the scheduled energy across all slots
func (s *ChargingSchedule) TotalEnergyKwh() float64 {
	total := 0.0
	for _, slot := range s.Slots {
		total += slot.EndTime.Sub(slot.StartTime).Hours() * slot.TargetPowerKw
	}
	return total
}

// AuthResult is the outcome of a completed OAuth exchange
type AuthResult struct {
	Connection *Connection `json:"connection"`
	Token      AuthToken   `json:"token"`
}
