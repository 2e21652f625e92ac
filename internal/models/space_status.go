package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SpaceStatus struct {
	Available int64
	Occupied  int64
}

type ExitReceipt struct {
	VehicleReg  string
	VehicleType VehicleType
	SpaceNumber int
	Charge      decimal.Decimal
	TimeIn      time.Time
	TimeOut     time.Time
}
