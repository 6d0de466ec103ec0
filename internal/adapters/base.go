package adapters

import (
	"context"
	"errors"
	"net"
	"time"

	"evhub/internal/ev"
)

// Base carries the default behavior shared across adapters. Concrete
// adapters embed it and override only what their provider does differently.
type Base struct{}

// ValidateToken reports whether the token has not yet expired. The hub
// applies the refresh buffer separately; validation here is the hard cutoff.
func (Base) ValidateToken(token ev.AuthToken, now time.Time) bool {
	return !token.Expired(now)
}

// TransformError applies the shared normalization rules: taxonomy errors
// pass through, timeouts and network failures get their own codes, anything
// else is an API_ERROR.
func (Base) TransformError(err error) *ev.ProviderError {
	var perr *ev.ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ev.NewProviderError(ev.CodeTimeout, err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ev.NewProviderError(ev.CodeTimeout, err.Error())
		}
		return ev.NewProviderError(ev.CodeNetworkError, err.Error())
	}
	return ev.NewProviderError(ev.CodeAPIError, err.Error())
}

// VehicleLister is the GetVehicles shape adapters hand to FindVehicle
type VehicleLister func(ctx context.Context, token ev.AuthToken) ([]ev.VehicleSnapshot, error)

// FindVehicle is the default GetVehicle implementation: list and filter.
// Adapters whose provider has no single-vehicle endpoint delegate to it.
func FindVehicle(ctx context.Context, list VehicleLister, token ev.AuthToken, vehicleID string) (*ev.VehicleSnapshot, error) {
	vehicles, err := list(ctx, token)
	if err != nil {
		return nil, err
	}
	for i := range vehicles {
		if vehicles[i].ID == vehicleID {
			return &vehicles[i], nil
		}
	}
	return nil, ev.NewProviderError(ev.CodeVehicleNotFound, "vehicle "+vehicleID+" not found")
}
