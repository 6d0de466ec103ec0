// Package tesla implements the adapter contract against the Tesla owner API.
package tesla

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"evhub/internal/adapters"
	"evhub/internal/ev"
)

const (
	DefaultAuthBaseURL = "https://auth.tesla.com"
	DefaultAPIBaseURL  = "https://owner-api.teslamotors.com"

	oauthScope     = "openid email offline_access vehicle_device_data vehicle_cmds vehicle_charging_cmds"
	requestTimeout = 30 * time.Second
	milesToKm      = 1.609344
)

// Config holds the OAuth application credentials and endpoint overrides.
// Empty base URLs fall back to the production hosts.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthBaseURL  string
	APIBaseURL   string
}

// Adapter talks to the Tesla owner API. It keeps no per-user state; tokens
// travel with each call.
type Adapter struct {
	adapters.Base

	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Tesla adapter
func New(cfg Config, logger *slog.Logger) *Adapter {
	if cfg.AuthBaseURL == "" {
		cfg.AuthBaseURL = DefaultAuthBaseURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

func (a *Adapter) Manufacturer() ev.Manufacturer {
	return ev.ManufacturerTesla
}

func (a *Adapter) Capabilities() adapters.CapabilitySet {
	return adapters.NewCapabilitySet(
		ev.CapabilityWakeUp,
		ev.CapabilityBattery,
		ev.CapabilityClimate,
		ev.CapabilityLocation,
		ev.CapabilityCommands,
		ev.CapabilityChargingStations,
	)
}

func (a *Adapter) GetAuthorizationURL(state string) string {
	q := url.Values{}
	q.Set("client_id", a.cfg.ClientID)
	q.Set("redirect_uri", a.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", oauthScope)
	q.Set("state", state)
	return a.cfg.AuthBaseURL + "/oauth2/v3/authorize?" + q.Encode()
}

func (a *Adapter) ExchangeCode(ctx context.Context, code string) (ev.AuthToken, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("client_id", a.cfg.ClientID)
	data.Set("client_secret", a.cfg.ClientSecret)
	data.Set("code", code)
	data.Set("redirect_uri", a.cfg.RedirectURI)
	return a.requestToken(ctx, data)
}

func (a *Adapter) RefreshToken(ctx context.Context, token ev.AuthToken) (ev.AuthToken, error) {
	if !token.CanRefresh() {
		return ev.AuthToken{}, ev.NewProviderError(ev.CodeAuthExpired, "no refresh token available")
	}
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", a.cfg.ClientID)
	data.Set("refresh_token", token.RefreshToken)
	data.Set("scope", oauthScope)
	return a.requestToken(ctx, data)
}

func (a *Adapter) requestToken(ctx context.Context, data url.Values) (ev.AuthToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.AuthBaseURL+"/oauth2/v3/token", strings.NewReader(data.Encode()))
	if err != nil {
		return ev.AuthToken{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return ev.AuthToken{}, a.TransformError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return ev.AuthToken{}, ev.NewProviderError(ev.CodeAuthFailed,
			fmt.Sprintf("token request failed: status=%d body=%s", resp.StatusCode, string(body)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return ev.AuthToken{}, ev.NewProviderError(ev.CodeAPIError, "decode token response: "+err.Error())
	}

	return ev.AuthToken{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		TokenType:    tr.TokenType,
		Scope:        tr.Scope,
	}, nil
}

func (a *Adapter) GetVehicles(ctx context.Context, token ev.AuthToken) ([]ev.VehicleSnapshot, error) {
	var listed []vehicle
	if err := a.getJSON(ctx, token, "/api/1/vehicles", &listed); err != nil {
		return nil, err
	}

	snapshots := make([]ev.VehicleSnapshot, 0, len(listed))
	for _, v := range listed {
		snapshots = append(snapshots, a.toSnapshot(v))
	}
	return snapshots, nil
}

func (a *Adapter) GetVehicle(ctx context.Context, token ev.AuthToken, vehicleID string) (*ev.VehicleSnapshot, error) {
	var v vehicle
	if err := a.getJSON(ctx, token, "/api/1/vehicles/"+url.PathEscape(vehicleID), &v); err != nil {
		return nil, err
	}
	snapshot := a.toSnapshot(v)
	return &snapshot, nil
}

func (a *Adapter) WakeUpVehicle(ctx context.Context, token ev.AuthToken, vehicleID string) error {
	var v vehicle
	return a.postJSON(ctx, token, "/api/1/vehicles/"+url.PathEscape(vehicleID)+"/wake_up", nil, &v)
}

func (a *Adapter) GetBatteryState(ctx context.Context, token ev.AuthToken, vehicleID string) (*ev.BatteryState, error) {
	data, err := a.vehicleData(ctx, token, vehicleID, "charge_state")
	if err != nil {
		return nil, err
	}
	if data.ChargeState == nil {
		return nil, ev.NewProviderError(ev.CodeVehicleAsleep, "charge state unavailable")
	}

	cs := data.ChargeState
	return &ev.BatteryState{
		VehicleID:      vehicleID,
		StateOfCharge:  float64(cs.BatteryLevel),
		RangeKm:        cs.BatteryRange * milesToKm,
		ChargingState:  strings.ToLower(cs.ChargingState),
		ChargeLimitSoC: cs.ChargeLimitSoc,
		ChargerPowerKw: float64(cs.ChargerPower),
		PluggedIn:      cs.ChargingState != "" && cs.ChargingState != "Disconnected",
		Timestamp:      time.UnixMilli(cs.Timestamp),
	}, nil
}

func (a *Adapter) GetClimateState(ctx context.Context, token ev.AuthToken, vehicleID string) (*ev.ClimateState, error) {
	data, err := a.vehicleData(ctx, token, vehicleID, "climate_state")
	if err != nil {
		return nil, err
	}
	if data.ClimateState == nil {
		return nil, ev.NewProviderError(ev.CodeVehicleAsleep, "climate state unavailable")
	}

	cs := data.ClimateState
	return &ev.ClimateState{
		VehicleID:   vehicleID,
		InsideTemp:  cs.InsideTemp,
		OutsideTemp: cs.OutsideTemp,
		ClimateOn:   cs.IsClimateOn || cs.IsAutoConditioningOn,
		TargetTemp:  cs.DriverTempSetting,
		Timestamp:   time.UnixMilli(cs.Timestamp),
	}, nil
}

func (a *Adapter) GetLocation(ctx context.Context, token ev.AuthToken, vehicleID string) (*ev.LocationState, error) {
	data, err := a.vehicleData(ctx, token, vehicleID, "drive_state;location_data")
	if err != nil {
		return nil, err
	}
	if data.DriveState == nil {
		return nil, ev.NewProviderError(ev.CodeVehicleAsleep, "drive state unavailable")
	}

	ds := data.DriveState
	speed := 0.0
	if ds.Speed != nil {
		speed = float64(*ds.Speed) * milesToKm
	}
	return &ev.LocationState{
		VehicleID: vehicleID,
		Latitude:  ds.Latitude,
		Longitude: ds.Longitude,
		Heading:   float64(ds.Heading),
		SpeedKmh:  speed,
		Timestamp: time.UnixMilli(ds.Timestamp),
	}, nil
}

// commandEndpoints maps normalized command names onto owner-API command
// paths. wake_up is absent: it has its own non-command endpoint.
var commandEndpoints = map[string]string{
	ev.CommandStartCharging:  "charge_start",
	ev.CommandStopCharging:   "charge_stop",
	ev.CommandSetChargeLimit: "set_charge_limit",
	ev.CommandClimateOn:      "auto_conditioning_start",
	ev.CommandClimateOff:     "auto_conditioning_stop",
	ev.CommandLock:           "door_lock",
	ev.CommandUnlock:         "door_unlock",
	ev.CommandHonkHorn:       "honk_horn",
	ev.CommandFlashLights:    "flash_lights",
}

func (a *Adapter) SendCommand(ctx context.Context, token ev.AuthToken, cmd ev.Command) (ev.CommandResult, error) {
	if cmd.Name == ev.CommandWakeUp {
		if err := a.WakeUpVehicle(ctx, token, cmd.VehicleID); err != nil {
			return ev.FailedResult(a.TransformError(err)), nil
		}
		return ev.CommandResult{Success: true}, nil
	}

	endpoint, ok := commandEndpoints[cmd.Name]
	if !ok {
		return ev.FailedResult(ev.NewProviderError(ev.CodeNotSupported,
			"command not supported: "+cmd.Name)), nil
	}

	path := "/api/1/vehicles/" + url.PathEscape(cmd.VehicleID) + "/command/" + endpoint

	var result commandResponse
	if err := a.postJSON(ctx, token, path, cmd.Params, &result); err != nil {
		return ev.FailedResult(a.TransformError(err)), nil
	}
	if !result.Result {
		// The API reports in-band refusals with result=false and a reason
		// string, e.g. "charging" when charging is already underway
		return ev.FailedResult(ev.NewProviderError(ev.CodeCommandFailed, result.Reason)), nil
	}
	return ev.CommandResult{Success: true}, nil
}

func (a *Adapter) FindChargingStations(ctx context.Context, token ev.AuthToken, lat, lon, radiusKm float64) ([]ev.ChargingStation, error) {
	// The provider anchors the search on a vehicle's position, not a free
	// coordinate; the first visible vehicle serves as the anchor and results
	// get filtered to the requested radius client-side.
	vehicles, err := a.GetVehicles(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(vehicles) == 0 {
		return []ev.ChargingStation{}, nil
	}

	path := "/api/1/vehicles/" + url.PathEscape(vehicles[0].ID) + "/nearby_charging_sites"
	var sites chargingSites
	if err := a.getJSON(ctx, token, path, &sites); err != nil {
		return nil, err
	}

	stations := make([]ev.ChargingStation, 0, len(sites.Superchargers))
	for _, sc := range sites.Superchargers {
		if sc.SiteClosed {
			continue
		}
		distanceKm := sc.DistanceMiles * milesToKm
		if radiusKm > 0 && distanceKm > radiusKm {
			continue
		}
		stations = append(stations, ev.ChargingStation{
			ID:              stationID(sc),
			Name:            sc.Name,
			Latitude:        sc.Location.Lat,
			Longitude:       sc.Location.Long,
			DistanceKm:      distanceKm,
			AvailableStalls: sc.AvailableStalls,
			TotalStalls:     sc.TotalStalls,
		})
	}
	return stations, nil
}

func stationID(sc supercharger) string {
	return fmt.Sprintf("tesla:%s:%.4f:%.4f", strings.ToLower(strings.ReplaceAll(sc.Name, " ", "-")),
		sc.Location.Lat, sc.Location.Long)
}

func (a *Adapter) toSnapshot(v vehicle) ev.VehicleSnapshot {
	return ev.VehicleSnapshot{
		ID:           strconv.FormatInt(v.ID, 10),
		VIN:          v.VIN,
		Model:        modelFromVIN(v.VIN, v.DisplayName),
		Year:         yearFromVIN(v.VIN),
		Online:       v.State == "online",
		Capabilities: a.Capabilities().List(),
	}
}

// modelFromVIN decodes the model letter at VIN position 4, falling back to
// the display name when the VIN is malformed
func modelFromVIN(vin, displayName string) string {
	if len(vin) >= 4 && strings.HasPrefix(vin, "5YJ") {
		switch vin[3] {
		case 'S':
			return "Model S"
		case '3':
			return "Model 3"
		case 'X':
			return "Model X"
		case 'Y':
			return "Model Y"
		}
	}
	return displayName
}

// vinModelYears decodes the model-year character at VIN position 10. The
// standard table skips I, O, Q, U and Z.
var vinModelYears = map[byte]int{
	'A': 2010, 'B': 2011, 'C': 2012, 'D': 2013, 'E': 2014, 'F': 2015,
	'G': 2016, 'H': 2017, 'J': 2018, 'K': 2019, 'L': 2020, 'M': 2021,
	'N': 2022, 'P': 2023, 'R': 2024, 'S': 2025, 'T': 2026, 'V': 2027,
	'W': 2028, 'X': 2029, 'Y': 2030,
}

// yearFromVIN returns the model year encoded in the VIN, or zero when the
// VIN is malformed
func yearFromVIN(vin string) int {
	if len(vin) < 10 {
		return 0
	}
	return vinModelYears[vin[9]]
}

func (a *Adapter) vehicleData(ctx context.Context, token ev.AuthToken, vehicleID, endpoints string) (*vehicleData, error) {
	path := "/api/1/vehicles/" + url.PathEscape(vehicleID) + "/vehicle_data?endpoints=" + url.QueryEscape(endpoints)
	var data vehicleData
	if err := a.getJSON(ctx, token, path, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (a *Adapter) getJSON(ctx context.Context, token ev.AuthToken, path string, out any) error {
	return a.doJSON(ctx, token, http.MethodGet, path, nil, out)
}

func (a *Adapter) postJSON(ctx context.Context, token ev.AuthToken, path string, params map[string]any, out any) error {
	var body io.Reader
	if len(params) > 0 {
		encoded, err := json.Marshal(params)
		if err != nil {
			return ev.NewProviderError(ev.CodeInvalidRequest, "encode params: "+err.Error())
		}
		body = bytes.NewReader(encoded)
	}
	return a.doJSON(ctx, token, http.MethodPost, path, body, out)
}

// doJSON performs an authenticated request and unwraps the response
// envelope into out. Non-2xx statuses come back already normalized.
func (a *Adapter) doJSON(ctx context.Context, token ev.AuthToken, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.cfg.APIBaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return a.TransformError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		a.logger.Debug("Provider request failed",
			"component", "tesla",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return ev.FromStatusCode(resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return ev.NewProviderError(ev.CodeAPIError, "decode response: "+err.Error())
	}
	if envelope.Error != "" {
		return ev.NewProviderError(ev.CodeAPIError, envelope.Error)
	}
	if out == nil || len(envelope.Response) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Response, out); err != nil {
		return ev.NewProviderError(ev.CodeAPIError, "decode payload: "+err.Error())
	}
	return nil
}
