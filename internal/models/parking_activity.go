package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ActivityKind string

const (
	ActivityParked ActivityKind = "parked"
	ActivityExited ActivityKind = "exited"
)

// ParkingActivity is one entry of the park/exit feed carried over RabbitMQ.
type ParkingActivity struct {
	ID          uint                `gorm:"primaryKey" json:"-"`
	EventID     string              `gorm:"type:varchar(36);not null;uniqueIndex" json:"event_id"`
	Kind        ActivityKind        `gorm:"type:varchar(10);not null" json:"kind"`
	VehicleReg  string              `gorm:"type:varchar(20);not null;index" json:"vehicle_reg"`
	VehicleType VehicleType         `gorm:"type:text;not null" json:"vehicle_type"`
	SpaceNumber int                 `gorm:"not null" json:"space_number"`
	TimeIn      time.Time           `gorm:"not null" json:"time_in"`
	TimeOut     *time.Time          `json:"time_out,omitempty"`
	Charge      decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"charge"`
	OccurredAt  time.Time           `gorm:"not null;index" json:"occurred_at"`
}

func (ParkingActivity) TableName() string {
	return "parking_activities"
}

// RoutingKey is the topic the activity is published under.
func (a *ParkingActivity) RoutingKey() string {
	return "vehicle." + string(a.Kind)
}
