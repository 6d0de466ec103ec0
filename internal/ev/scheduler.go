package ev

import (
	"time"
)

// Charging plan constants. Rates are flat heuristics, not a tariff feed.
const (
	// MaxHomeChargingRateKw is the realistic ceiling for home charging
	MaxHomeChargingRateKw = 11.0
	// OffPeakStartHour and OffPeakEndHour bound the discounted window
	OffPeakStartHour = 23
	OffPeakEndHour   = 7
	// OffPeakRatePerKwh and StandardRatePerKwh are fixed electricity prices
	OffPeakRatePerKwh  = 0.08
	StandardRatePerKwh = 0.28
	// DefaultReadyByHorizon is used when the caller gives no deadline
	DefaultReadyByHorizon = 8 * time.Hour
	// CostSavingsFactor is the documented heuristic for reported savings on
	// cost-optimized plans; it is an estimate, not a guarantee
	CostSavingsFactor = 0.30
)

// ScheduleOptions are the inputs to a charging plan
type ScheduleOptions struct {
	CurrentSoC         float64   // percent
	TargetSoC          float64   // percent, clamped to 100
	BatteryCapacityKwh float64
	MaxChargingRateKw  float64   // capped to MaxHomeChargingRateKw
	ReadyBy            time.Time // zero value defaults to now + 8h
	MinimizeCost       bool
	UseGridPricing     bool
}

// optimize reports whether the plan should target the off-peak window
func (o ScheduleOptions) optimize() bool {
	return o.MinimizeCost || o.UseGridPricing
}

// GenerateChargingSchedule computes a charging plan for the vehicle. It is a
// pure function of its inputs and the supplied current time.
func GenerateChargingSchedule(vehicleID string, opts ScheduleOptions, now time.Time) *ChargingSchedule {
	targetSoC := opts.TargetSoC
	if targetSoC > 100 {
		targetSoC = 100
	}

	maxRate := opts.MaxChargingRateKw
	if maxRate <= 0 || maxRate > MaxHomeChargingRateKw {
		maxRate = MaxHomeChargingRateKw
	}

	readyBy := opts.ReadyBy
	if readyBy.IsZero() {
		readyBy = now.Add(DefaultReadyByHorizon)
	}

	schedule := &ChargingSchedule{
		VehicleID: vehicleID,
		TargetSoC: targetSoC,
		ReadyBy:   readyBy,
	}

	energyNeededKwh := (targetSoC - opts.CurrentSoC) / 100 * opts.BatteryCapacityKwh
	if energyNeededKwh <= 0 {
		return schedule
	}

	var slot ChargingSlot
	if opts.optimize() {
		slot = offPeakSlot(now, energyNeededKwh, maxRate)
	} else {
		hours := energyNeededKwh / maxRate
		slot = ChargingSlot{
			StartTime:     now,
			EndTime:       now.Add(durationHours(hours)),
			TargetPowerKw: maxRate,
			PricePerKwh:   StandardRatePerKwh,
		}
	}

	schedule.Slots = []ChargingSlot{slot}
	schedule.EstimatedCost = slot.EndTime.Sub(slot.StartTime).Hours() * slot.TargetPowerKw * slot.PricePerKwh
	if opts.optimize() {
		schedule.CostSavings = schedule.EstimatedCost * CostSavingsFactor
	}
	return schedule
}

// offPeakSlot builds a single slot in the next 23:00-07:00 window, clipped
// to the window boundary when the needed energy does not fit
func offPeakSlot(now time.Time, energyNeededKwh, maxRate float64) ChargingSlot {
	start := time.Date(now.Year(), now.Month(), now.Day(), OffPeakStartHour, 0, 0, 0, now.Location())
	if now.Hour() >= OffPeakStartHour {
		start = start.AddDate(0, 0, 1)
	}
	windowEnd := start.Add(time.Duration(24-OffPeakStartHour+OffPeakEndHour) * time.Hour)

	end := start.Add(durationHours(energyNeededKwh / maxRate))
	if end.After(windowEnd) {
		end = windowEnd
	}

	return ChargingSlot{
		StartTime:     start,
		EndTime:       end,
		TargetPowerKw: maxRate,
		PricePerKwh:   OffPeakRatePerKwh,
		OffPeak:       true,
	}
}

func durationHours(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
