package tesla

import "encoding/json"

// apiResponse is the envelope every owner-API payload arrives in
type apiResponse struct {
	Response json.RawMessage `json:"response"`
	Error    string          `json:"error,omitempty"`
}

// tokenResponse is the OAuth token endpoint payload
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// vehicle is the provider's vehicle record. State is one of online, asleep,
// offline.
type vehicle struct {
	ID          int64  `json:"id"`
	VehicleID   int64  `json:"vehicle_id"`
	VIN         string `json:"vin"`
	DisplayName string `json:"display_name"`
	State       string `json:"state"`
	InService   bool   `json:"in_service"`
}

// vehicleData is the slice of the full vehicle_data payload this adapter
// reads
type vehicleData struct {
	ID           int64         `json:"id"`
	VIN          string        `json:"vin"`
	DisplayName  string        `json:"display_name"`
	State        string        `json:"state"`
	ChargeState  *chargeState  `json:"charge_state,omitempty"`
	ClimateState *climateState `json:"climate_state,omitempty"`
	DriveState   *driveState   `json:"drive_state,omitempty"`
}

type chargeState struct {
	BatteryLevel   int     `json:"battery_level"`
	BatteryRange   float64 `json:"battery_range"` // miles
	ChargingState  string  `json:"charging_state"`
	ChargeLimitSoc int     `json:"charge_limit_soc"`
	ChargerPower   int     `json:"charger_power"` // kW
	Timestamp      int64   `json:"timestamp"`
}

type climateState struct {
	InsideTemp           float64 `json:"inside_temp"`
	OutsideTemp          float64 `json:"outside_temp"`
	IsClimateOn          bool    `json:"is_climate_on"`
	DriverTempSetting    float64 `json:"driver_temp_setting"`
	IsAutoConditioningOn bool    `json:"is_auto_conditioning_on"`
	Timestamp            int64   `json:"timestamp"`
}

type driveState struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Heading   int     `json:"heading"`
	Speed     *int    `json:"speed,omitempty"` // mph, nil when parked
	Timestamp int64   `json:"timestamp"`
}

// commandResponse is the payload of every command endpoint
type commandResponse struct {
	Result bool   `json:"result"`
	Reason string `json:"reason"`
}

// chargingSites is the nearby_charging_sites payload
type chargingSites struct {
	Superchargers []supercharger `json:"superchargers"`
}

type supercharger struct {
	Name            string   `json:"name"`
	Location        location `json:"location"`
	DistanceMiles   float64  `json:"distance_miles"`
	AvailableStalls int      `json:"available_stalls"`
	TotalStalls     int      `json:"total_stalls"`
	SiteClosed      bool     `json:"site_closed"`
}

type location struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}
