package service

import (
	"fmt"
	"time"

	"github.com/Eursukkul/carpark-service/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ratePerMinute = map[models.VehicleType]decimal.Decimal{
		models.VehicleSmall:  decimal.RequireFromString("0.10"),
		models.VehicleMedium: decimal.RequireFromString("0.20"),
		models.VehicleLarge:  decimal.RequireFromString("0.40"),
	}
	incrementCharge  = decimal.RequireFromString("1.00")
	incrementMinutes = int64(5)
)

// ElapsedMinutes rounds a stay up to whole minutes. A zero or negative stay is 0.
func ElapsedMinutes(timeIn, timeOut time.Time) int64 {
	d := timeOut.Sub(timeIn)
	if d <= 0 {
		return 0
	}
	minutes := int64(d / time.Minute)
	if d%time.Minute != 0 {
		minutes++
	}
	return minutes
}

// CalculateCharge bills rate x minutes plus 1.00 for every complete five
// minutes, rounded half-even to the cent.
func CalculateCharge(vt models.VehicleType, timeIn, timeOut time.Time) (decimal.Decimal, error) {
	rate, ok := ratePerMinute[vt]
	if !ok {
		return decimal.Zero, fmt.Errorf("no tariff for vehicle type %q", string(vt))
	}

	minutes := ElapsedMinutes(timeIn, timeOut)
	base := rate.Mul(decimal.NewFromInt(minutes))
	increments := incrementCharge.Mul(decimal.NewFromInt(minutes / incrementMinutes))

	return roundToCents(base.Add(increments)), nil
}

// roundToCents rounds half to even, so 0.125 becomes 0.12 and 0.135 becomes 0.14.
func roundToCents(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}
