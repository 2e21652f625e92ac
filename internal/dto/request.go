package dto

type ParkVehicleRequest struct {
	VehicleReg  string `json:"vehicleReg"`
	VehicleType string `json:"vehicleType"`
}

type VehicleExitRequest struct {
	VehicleReg string `json:"vehicleReg"`
}
