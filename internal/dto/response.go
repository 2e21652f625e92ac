package dto

import (
	"time"

	"github.com/Eursukkul/carpark-service/internal/models"
)

type ParkingResponse struct {
	VehicleReg  string    `json:"vehicleReg"`
	SpaceNumber int       `json:"spaceNumber"`
	TimeIn      time.Time `json:"timeIn"`
}

type SpaceStatusResponse struct {
	AvailableSpaces int64 `json:"availableSpaces"`
	OccupiedSpaces  int64 `json:"occupiedSpaces"`
}

// ExitResponse carries the charge as a JSON number rounded to two places.
type ExitResponse struct {
	VehicleReg    string    `json:"vehicleReg"`
	VehicleCharge float64   `json:"vehicleCharge"`
	TimeIn        time.Time `json:"timeIn"`
	TimeOut       time.Time `json:"timeOut"`
}

type SpaceResponse struct {
	SpaceNumber int                 `json:"spaceNumber"`
	IsOccupied  bool                `json:"isOccupied"`
	VehicleReg  *string             `json:"vehicleReg,omitempty"`
	VehicleType *models.VehicleType `json:"vehicleType,omitempty"`
	TimeIn      *time.Time          `json:"timeIn,omitempty"`
	TimeOut     *time.Time          `json:"timeOut,omitempty"`
}

type ActivityResponse struct {
	EventID       string              `json:"eventId"`
	Kind          models.ActivityKind `json:"kind"`
	VehicleReg    string              `json:"vehicleReg"`
	VehicleType   models.VehicleType  `json:"vehicleType"`
	SpaceNumber   int                 `json:"spaceNumber"`
	TimeIn        time.Time           `json:"timeIn"`
	TimeOut       *time.Time          `json:"timeOut,omitempty"`
	VehicleCharge *float64            `json:"vehicleCharge,omitempty"`
	OccurredAt    time.Time           `json:"occurredAt"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database"`
}

func ToParkingResponse(s *models.ParkingSpace) ParkingResponse {
	resp := ParkingResponse{SpaceNumber: s.SpaceNumber}
	if s.VehicleReg != nil {
		resp.VehicleReg = *s.VehicleReg
	}
	if s.TimeIn != nil {
		resp.TimeIn = *s.TimeIn
	}
	return resp
}

func ToSpaceStatusResponse(s *models.SpaceStatus) SpaceStatusResponse {
	return SpaceStatusResponse{
		AvailableSpaces: s.Available,
		OccupiedSpaces:  s.Occupied,
	}
}

func ToExitResponse(r *models.ExitReceipt) ExitResponse {
	return ExitResponse{
		VehicleReg:    r.VehicleReg,
		VehicleCharge: r.Charge.Round(2).InexactFloat64(),
		TimeIn:        r.TimeIn,
		TimeOut:       r.TimeOut,
	}
}

func ToSpaceResponse(s *models.ParkingSpace) SpaceResponse {
	return SpaceResponse{
		SpaceNumber: s.SpaceNumber,
		IsOccupied:  s.IsOccupied,
		VehicleReg:  s.VehicleReg,
		VehicleType: s.VehicleType,
		TimeIn:      s.TimeIn,
		TimeOut:     s.TimeOut,
	}
}

func ToActivityResponse(a *models.ParkingActivity) ActivityResponse {
	resp := ActivityResponse{
		EventID:     a.EventID,
		Kind:        a.Kind,
		VehicleReg:  a.VehicleReg,
		VehicleType: a.VehicleType,
		SpaceNumber: a.SpaceNumber,
		TimeIn:      a.TimeIn,
		TimeOut:     a.TimeOut,
		OccurredAt:  a.OccurredAt,
	}
	if a.Charge.Valid {
		charge := a.Charge.Decimal.InexactFloat64()
		resp.VehicleCharge = &charge
	}
	return resp
}
