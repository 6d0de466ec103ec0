// Package adapters defines the capability set every manufacturer integration
// must implement, plus the registry the hub resolves adapters through.
// Adapters are stateless: credentials travel with each call.
package adapters

import (
	"context"
	"time"

	"evhub/internal/ev"
)

// Adapter is the contract every manufacturer integration implements. All
// provider-specific failures must be normalized through TransformError into
// the shared taxonomy before they leave the adapter.
type Adapter interface {
	// Manufacturer returns the provider this adapter serves
	Manufacturer() ev.Manufacturer

	// Capabilities returns the declared optional features. The hub branches
	// on this set, never on probing calls.
	Capabilities() CapabilitySet

	// GetAuthorizationURL builds the provider OAuth URL for the given state
	GetAuthorizationURL(state string) string

	// ExchangeCode trades an OAuth authorization code for a token
	ExchangeCode(ctx context.Context, code string) (ev.AuthToken, error)

	// RefreshToken renews an access token using its refresh token
	RefreshToken(ctx context.Context, token ev.AuthToken) (ev.AuthToken, error)

	// ValidateToken reports whether the token is usable at the given time
	ValidateToken(token ev.AuthToken, now time.Time) bool

	// GetVehicles lists the vehicles visible to the token
	GetVehicles(ctx context.Context, token ev.AuthToken) ([]ev.VehicleSnapshot, error)

	// GetVehicle fetches a single vehicle by provider id
	GetVehicle(ctx context.Context, token ev.AuthToken, vehicleID string) (*ev.VehicleSnapshot, error)

	// WakeUpVehicle asks the provider to bring a sleeping vehicle online.
	// Providers are eventually consistent here; callers poll for the result.
	WakeUpVehicle(ctx context.Context, token ev.AuthToken, vehicleID string) error

	// GetBatteryState reads the normalized battery snapshot
	GetBatteryState(ctx context.Context, token ev.AuthToken, vehicleID string) (*ev.BatteryState, error)

	// GetClimateState reads the normalized climate snapshot
	GetClimateState(ctx context.Context, token ev.AuthToken, vehicleID string) (*ev.ClimateState, error)

	// GetLocation reads the normalized location snapshot
	GetLocation(ctx context.Context, token ev.AuthToken, vehicleID string) (*ev.LocationState, error)

	// SendCommand dispatches a vehicle command. Expected failures come back
	// inside the CommandResult; the error return is reserved for transport
	// problems the taxonomy cannot express as a result.
	SendCommand(ctx context.Context, token ev.AuthToken, cmd ev.Command) (ev.CommandResult, error)

	// FindChargingStations searches near a coordinate. Only meaningful when
	// CapabilityChargingStations is declared.
	FindChargingStations(ctx context.Context, token ev.AuthToken, lat, lon, radiusKm float64) ([]ev.ChargingStation, error)

	// TransformError normalizes a provider failure into the taxonomy
	TransformError(err error) *ev.ProviderError
}

// CapabilitySet is the declared feature set of one adapter
type CapabilitySet map[ev.Capability]struct{}

// NewCapabilitySet builds a set from the given capabilities
func NewCapabilitySet(caps ...ev.Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether the capability is declared
func (s CapabilitySet) Has(c ev.Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the capabilities in an unspecified order
func (s CapabilitySet) List() []ev.Capability {
	caps := make([]ev.Capability, 0, len(s))
	for c := range s {
		caps = append(caps, c)
	}
	return caps
}
