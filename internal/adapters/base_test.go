package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evhub/internal/ev"
)

func TestBase_ValidateToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	base := Base{}

	valid := ev.AuthToken{AccessToken: "at", ExpiresAt: now.Add(time.Hour)}
	assert.True(t, base.ValidateToken(valid, now))

	expired := ev.AuthToken{AccessToken: "at", ExpiresAt: now.Add(-time.Minute)}
	assert.False(t, base.ValidateToken(expired, now))
}

func TestBase_TransformError(t *testing.T) {
	base := Base{}

	// Taxonomy errors pass through untouched
	original := ev.NewProviderError(ev.CodeVehicleAsleep, "zzz")
	got := base.TransformError(original)
	assert.Same(t, original, got)

	// Deadline exceeded becomes TIMEOUT
	got = base.TransformError(context.DeadlineExceeded)
	assert.Equal(t, ev.CodeTimeout, got.Code)
	assert.True(t, got.Retryable)

	// Anything else becomes API_ERROR
	got = base.TransformError(errors.New("boom"))
	assert.Equal(t, ev.CodeAPIError, got.Code)
	assert.True(t, got.Retryable)
}

func TestBase_TransformErrorStatusTable(t *testing.T) {
	tests := []struct {
		status    int
		code      ev.ErrorCode
		retryable bool
	}{
		{401, ev.CodeAuthFailed, false},
		{403, ev.CodeAuthExpired, true},
		{404, ev.CodeVehicleNotFound, false},
		{408, ev.CodeVehicleAsleep, true},
		{429, ev.CodeRateLimited, true},
		{503, ev.CodeVehicleOffline, true},
		{500, ev.CodeAPIError, true},
	}

	for _, tt := range tests {
		perr := ev.FromStatusCode(tt.status, "provider said no")
		assert.Equal(t, tt.code, perr.Code, "status %d", tt.status)
		assert.Equal(t, tt.retryable, perr.Retryable, "status %d", tt.status)
		assert.Equal(t, tt.status, perr.StatusCode)
	}
}

func TestFindVehicle(t *testing.T) {
	list := func(ctx context.Context, token ev.AuthToken) ([]ev.VehicleSnapshot, error) {
		return []ev.VehicleSnapshot{
			{ID: "veh1", Model: "Model 3"},
			{ID: "veh2", Model: "Model Y"},
		}, nil
	}

	got, err := FindVehicle(context.Background(), list, ev.AuthToken{}, "veh2")
	require.NoError(t, err)
	assert.Equal(t, "Model Y", got.Model)

	_, err = FindVehicle(context.Background(), list, ev.AuthToken{}, "veh9")
	require.Error(t, err)
	assert.Equal(t, ev.CodeVehicleNotFound, ev.AsProviderError(err).Code)
}

func TestFindVehicle_ListFailurePropagates(t *testing.T) {
	listErr := ev.NewProviderError(ev.CodeRateLimited, "slow down")
	list := func(ctx context.Context, token ev.AuthToken) ([]ev.VehicleSnapshot, error) {
		return nil, listErr
	}

	_, err := FindVehicle(context.Background(), list, ev.AuthToken{}, "veh1")
	assert.ErrorIs(t, err, listErr)
}
