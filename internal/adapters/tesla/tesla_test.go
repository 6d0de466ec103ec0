package tesla

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evhub/internal/ev"
	"evhub/internal/logging"
)

func testAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.example.com/callback",
		AuthBaseURL:  server.URL,
		APIBaseURL:   server.URL,
	}, logging.Nop())
}

func testToken() ev.AuthToken {
	return ev.AuthToken{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour),
		TokenType:    "Bearer",
	}
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	err = json.NewEncoder(w).Encode(map[string]json.RawMessage{"response": raw})
	require.NoError(t, err)
}

func TestAdapter_Manufacturer(t *testing.T) {
	adapter := New(Config{}, logging.Nop())
	assert.Equal(t, ev.ManufacturerTesla, adapter.Manufacturer())
	assert.True(t, adapter.Capabilities().Has(ev.CapabilityChargingStations))
	assert.True(t, adapter.Capabilities().Has(ev.CapabilityWakeUp))
}

func TestAdapter_GetAuthorizationURL(t *testing.T) {
	adapter := New(Config{
		ClientID:    "client-id",
		RedirectURI: "https://app.example.com/callback",
	}, logging.Nop())

	got := adapter.GetAuthorizationURL("state123")
	assert.Contains(t, got, DefaultAuthBaseURL+"/oauth2/v3/authorize?")
	assert.Contains(t, got, "client_id=client-id")
	assert.Contains(t, got, "state=state123")
	assert.Contains(t, got, "response_type=code")
}

func TestAdapter_ExchangeCode(t *testing.T) {
	adapter := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/v3/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "authcode", r.PostForm.Get("code"))

		err := json.NewEncoder(w).Encode(tokenResponse{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
			TokenType:    "Bearer",
			ExpiresIn:    3600,
		})
		require.NoError(t, err)
	})

	token, err := adapter.ExchangeCode(context.Background(), "authcode")
	require.NoError(t, err)
	assert.Equal(t, "new-access", token.AccessToken)
	assert.Equal(t, "new-refresh", token.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)
}

func TestAdapter_ExchangeCodeRejected(t *testing.T) {
	adapter := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusUnauthorized)
	})

	_, err := adapter.ExchangeCode(context.Background(), "badcode")
	require.Error(t, err)
	perr := ev.AsProviderError(err)
	assert.Equal(t, ev.CodeAuthFailed, perr.Code)
	assert.False(t, perr.Retryable)
}

func TestAdapter_RefreshTokenWithoutRefreshToken(t *testing.T) {
	adapter := New(Config{}, logging.Nop())

	_, err := adapter.RefreshToken(context.Background(), ev.AuthToken{AccessToken: "only-access"})
	require.Error(t, err)
	assert.Equal(t, ev.CodeAuthExpired, ev.AsProviderError(err).Code)
}

func TestAdapter_GetVehicles(t *testing.T) {
	adapter := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/1/vehicles", r.URL.Path)
		require.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		writeEnvelope(t, w, []vehicle{
			{ID: 1001, VIN: "5YJ3E1EA1NF000001", DisplayName: "Daily Driver", State: "online"},
			{ID: 1002, VIN: "5YJXCAE2XNF000002", DisplayName: "Road Tripper", State: "asleep"},
		})
	})

	vehicles, err := adapter.GetVehicles(context.Background(), testToken())
	require.NoError(t, err)
	require.Len(t, vehicles, 2)

	assert.Equal(t, "1001", vehicles[0].ID)
	assert.Equal(t, "Model 3", vehicles[0].Model)
	assert.Equal(t, 2022, vehicles[0].Year)
	assert.True(t, vehicles[0].Online)

	assert.Equal(t, "1002", vehicles[1].ID)
	assert.Equal(t, "Model X", vehicles[1].Model)
	assert.False(t, vehicles[1].Online)
}

func TestYearFromVIN(t *testing.T) {
	assert.Equal(t, 2022, yearFromVIN("5YJ3E1EA1NF000001"))
	assert.Equal(t, 2024, yearFromVIN("5YJYGDEE1RF000003"))
	assert.Equal(t, 0, yearFromVIN("5YJ3E1EA1ZF000004")) // Z is not a model-year code
	assert.Equal(t, 0, yearFromVIN("short"))
}

func TestAdapter_GetBatteryState(t *testing.T) {
	adapter := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/1/vehicles/1001/vehicle_data", r.URL.Path)
		writeEnvelope(t, w, vehicleData{
			ID:    1001,
			State: "online",
			ChargeState: &chargeState{
				BatteryLevel:   72,
				BatteryRange:   200, // miles
				ChargingState:  "Charging",
				ChargeLimitSoc: 80,
				ChargerPower:   11,
				Timestamp:      1740000000000,
			},
		})
	})

	state, err := adapter.GetBatteryState(context.Background(), testToken(), "1001")
	require.NoError(t, err)
	assert.InDelta(t, 72, state.StateOfCharge, 0.001)
	assert.InDelta(t, 321.8688, state.RangeKm, 0.001)
	assert.Equal(t, "charging", state.ChargingState)
	assert.Equal(t, 80, state.ChargeLimitSoC)
	assert.True(t, state.PluggedIn)
}

func TestAdapter_GetBatteryStateAsleep(t *testing.T) {
	adapter := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"vehicle unavailable"}`, http.StatusRequestTimeout)
	})

	_, err := adapter.GetBatteryState(context.Background(), testToken(), "1001")
	require.Error(t, err)
	perr := ev.AsProviderError(err)
	assert.Equal(t, ev.CodeVehicleAsleep, perr.Code)
	assert.True(t, perr.Retryable)
}

func TestAdapter_GetLocation(t *testing.T) {
	speed := 60
	adapter := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, vehicleData{
			ID: 1001,
			DriveState: &driveState{
				Latitude:  52.37,
				Longitude: 4.89,
				Heading:   180,
				Speed:     &speed,
			},
		})
	})

	loc, err := adapter.GetLocation(context.Background(), testToken(), "1001")
	require.NoError(t, err)
	assert.InDelta(t, 52.37, loc.Latitude, 0.001)
	assert.InDelta(t, 96.56, loc.SpeedKmh, 0.01)
}

func TestAdapter_SendCommand(t *testing.T) {
	adapter := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/1/vehicles/1001/command/set_charge_limit", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var params map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.InDelta(t, 80, params["percent"], 0.001)

		writeEnvelope(t, w, commandResponse{Result: true})
	})

	result, err := adapter.SendCommand(context.Background(), testToken(), ev.Command{
		Name:      ev.CommandSetChargeLimit,
		VehicleID: "1001",
		Params:    map[string]any{"percent": 80},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestAdapter_SendCommandInBandRefusal(t *testing.T) {
	adapter := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, commandResponse{Result: false, Reason: "charging"})
	})

	result, err := adapter.SendCommand(context.Background(), testToken(), ev.Command{
		Name:      ev.CommandStartCharging,
		VehicleID: "1001",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, ev.CodeCommandFailed, result.Err.Code)
	assert.Equal(t, "charging", result.Err.Message)
}

func TestAdapter_SendCommandUnknownName(t *testing.T) {
	adapter := New(Config{}, logging.Nop())

	result, err := adapter.SendCommand(context.Background(), testToken(), ev.Command{
		Name:      "launch_mode",
		VehicleID: "1001",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, ev.CodeNotSupported, result.Err.Code)
	assert.False(t, result.Retryable)
}

func TestAdapter_SendCommandProviderError(t *testing.T) {
	adapter := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})

	result, err := adapter.SendCommand(context.Background(), testToken(), ev.Command{
		Name:      ev.CommandStopCharging,
		VehicleID: "1001",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, ev.CodeRateLimited, result.Err.Code)
	assert.True(t, result.Retryable)
}

func TestAdapter_FindChargingStations(t *testing.T) {
	adapter := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/1/vehicles":
			writeEnvelope(t, w, []vehicle{{ID: 1001, VIN: "5YJ3E1EA1NF000001", State: "online"}})
		case "/api/1/vehicles/1001/nearby_charging_sites":
			writeEnvelope(t, w, chargingSites{
				Superchargers: []supercharger{
					{Name: "Amsterdam Central", Location: location{Lat: 52.37, Long: 4.89}, DistanceMiles: 2, AvailableStalls: 4, TotalStalls: 12},
					{Name: "Utrecht", Location: location{Lat: 52.09, Long: 5.12}, DistanceMiles: 25, AvailableStalls: 8, TotalStalls: 16},
					{Name: "Closed Site", Location: location{Lat: 52.0, Long: 5.0}, DistanceMiles: 1, SiteClosed: true},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	stations, err := adapter.FindChargingStations(context.Background(), testToken(), 52.37, 4.89, 10)
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, "Amsterdam Central", stations[0].Name)
	assert.InDelta(t, 3.22, stations[0].DistanceKm, 0.01)
	assert.Equal(t, 4, stations[0].AvailableStalls)
}

func TestAdapter_WakeUpVehicle(t *testing.T) {
	adapter := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/1/vehicles/1001/wake_up", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		writeEnvelope(t, w, vehicle{ID: 1001, State: "waking"})
	})

	err := adapter.WakeUpVehicle(context.Background(), testToken(), "1001")
	require.NoError(t, err)
}
