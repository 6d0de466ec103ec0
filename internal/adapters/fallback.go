package adapters

import (
	"context"
	"time"

	"evhub/internal/ev"
)

// fallbackAdapter stands in for a manufacturer with no registered adapter.
// Every operation reports NOT_SUPPORTED; nothing reaches the network.
type fallbackAdapter struct {
	Base
	manufacturer ev.Manufacturer
}

func newFallbackAdapter(manufacturer ev.Manufacturer) *fallbackAdapter {
	return &fallbackAdapter{manufacturer: manufacturer}
}

func (f *fallbackAdapter) notSupported(op string) *ev.ProviderError {
	return ev.NewProviderError(ev.CodeNotSupported,
		op+" not supported: no adapter registered for "+string(f.manufacturer))
}

func (f *fallbackAdapter) Manufacturer() ev.Manufacturer {
	return f.manufacturer
}

func (f *fallbackAdapter) Capabilities() CapabilitySet {
	return NewCapabilitySet()
}

func (f *fallbackAdapter) GetAuthorizationURL(state string) string {
	return ""
}

func (f *fallbackAdapter) ExchangeCode(ctx context.Context, code string) (ev.AuthToken, error) {
	return ev.AuthToken{}, f.notSupported("ExchangeCode")
}

func (f *fallbackAdapter) RefreshToken(ctx context.Context, token ev.AuthToken) (ev.AuthToken, error) {
	return ev.AuthToken{}, f.notSupported("RefreshToken")
}

func (f *fallbackAdapter) ValidateToken(token ev.AuthToken, now time.Time) bool {
	return false
}

func (f *fallbackAdapter) GetVehicles(ctx context.Context, token ev.AuthToken) ([]ev.VehicleSnapshot, error) {
	return nil, f.notSupported("GetVehicles")
}

func (f *fallbackAdapter) GetVehicle(ctx context.Context, token ev.AuthToken, vehicleID string) (*ev.VehicleSnapshot, error) {
	return nil, f.notSupported("GetVehicle")
}

func (f *fallbackAdapter) WakeUpVehicle(ctx context.Context, token ev.AuthToken, vehicleID string) error {
	return f.notSupported("WakeUpVehicle")
}

func (f *fallbackAdapter) GetBatteryState(ctx context.Context, token ev.AuthToken, vehicleID string) (*ev.BatteryState, error) {
	return nil, f.notSupported("GetBatteryState")
}

func (f *fallbackAdapter) GetClimateState(ctx context.Context, token ev.AuthToken, vehicleID string) (*ev.ClimateState, error) {
	return nil, f.notSupported("GetClimateState")
}

func (f *fallbackAdapter) GetLocation(ctx context.Context, token ev.AuthToken, vehicleID string) (*ev.LocationState, error) {
	return nil, f.notSupported("GetLocation")
}

func (f *fallbackAdapter) SendCommand(ctx context.Context, token ev.AuthToken, cmd ev.Command) (ev.CommandResult, error) {
	return ev.FailedResult(f.notSupported("SendCommand")), nil
}

func (f *fallbackAdapter) FindChargingStations(ctx context.Context, token ev.AuthToken, lat, lon, radiusKm float64) ([]ev.ChargingStation, error) {
	return nil, f.notSupported("FindChargingStations")
}

var _ Adapter = (*fallbackAdapter)(nil)
