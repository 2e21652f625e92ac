package models

import "time"

type ParkingSpace struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	VehicleReg  *string      `gorm:"type:varchar(20)" json:"vehicle_reg,omitempty"`
	VehicleType *VehicleType `gorm:"type:text" json:"vehicle_type,omitempty"`
	SpaceNumber int          `gorm:"not null;uniqueIndex" json:"space_number"`
	TimeIn      *time.Time   `json:"time_in,omitempty"`
	TimeOut     *time.Time   `json:"time_out,omitempty"`
	IsOccupied  bool         `gorm:"not null;default:false" json:"is_occupied"`
}

func (ParkingSpace) TableName() string {
	return "parking_spaces"
}

// Occupy assigns the space to a vehicle.
func (s *ParkingSpace) Occupy(reg string, vt VehicleType, at time.Time) {
	s.VehicleReg = &reg
	s.VehicleType = &vt
	s.TimeIn = &at
	s.IsOccupied = true
}

// Release frees the space and records the exit time. The occupancy fields are
// cleared together so a free row never carries a stale registration.
func (s *ParkingSpace) Release(at time.Time) {
	s.TimeOut = &at
	s.IsOccupied = false
	s.VehicleReg = nil
	s.VehicleType = nil
	s.TimeIn = nil
}
