package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

type VehicleType string

const (
	VehicleSmall  VehicleType = "Small"
	VehicleMedium VehicleType = "Medium"
	VehicleLarge  VehicleType = "Large"
)

var vehicleTypes = []VehicleType{VehicleSmall, VehicleMedium, VehicleLarge}

// ParseVehicleType matches s against the known tags ignoring case.
func ParseVehicleType(s string) (VehicleType, bool) {
	for _, vt := range vehicleTypes {
		if strings.EqualFold(s, string(vt)) {
			return vt, true
		}
	}
	return "", false
}

func (vt VehicleType) Valid() bool {
	switch vt {
	case VehicleSmall, VehicleMedium, VehicleLarge:
		return true
	}
	return false
}

func (vt VehicleType) Value() (driver.Value, error) {
	if !vt.Valid() {
		return nil, fmt.Errorf("invalid vehicle type %q", string(vt))
	}
	return string(vt), nil
}

// Scan rejects any stored tag outside the closed set.
func (vt *VehicleType) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("vehicle type: unsupported scan type %T", src)
	}

	parsed := VehicleType(s)
	if !parsed.Valid() {
		return fmt.Errorf("vehicle type: unknown tag %q", s)
	}
	*vt = parsed
	return nil
}
