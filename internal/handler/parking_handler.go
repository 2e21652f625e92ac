package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Eursukkul/carpark-service/internal/dto"
	"github.com/Eursukkul/carpark-service/internal/repository"
	"github.com/Eursukkul/carpark-service/internal/service"
	"github.com/labstack/echo/v4"
)

const maxActivityLimit = 200

type ParkingHandler struct {
	svc          service.ParkingService
	activityRepo repository.ActivityRepository
}

// NewParkingHandler wires the request surface. activityRepo may be nil, in
// which case the activity route answers 503.
func NewParkingHandler(svc service.ParkingService, activityRepo repository.ActivityRepository) *ParkingHandler {
	return &ParkingHandler{svc: svc, activityRepo: activityRepo}
}

func (h *ParkingHandler) RegisterRoutes(e *echo.Echo) {
	parking := e.Group("/parking")
	parking.POST("", h.ParkVehicle)
	parking.GET("", h.GetSpaceStatus)
	parking.POST("/exit", h.ProcessExit)
	parking.GET("/spaces", h.ListSpaces)
	parking.GET("/activity", h.ListActivity)
}

func (h *ParkingHandler) ParkVehicle(c echo.Context) error {
	var req dto.ParkVehicleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body.")
	}
	if strings.TrimSpace(req.VehicleReg) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Vehicle registration is required.")
	}
	if strings.TrimSpace(req.VehicleType) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Vehicle type is required.")
	}

	space, err := h.svc.ParkVehicle(c.Request().Context(), req.VehicleReg, req.VehicleType)
	if err != nil {
		return mapError(err, "An error occurred while parking the vehicle.")
	}

	return c.JSON(http.StatusOK, dto.ToParkingResponse(space))
}

func (h *ParkingHandler) GetSpaceStatus(c echo.Context) error {
	status, err := h.svc.GetSpaceStatus(c.Request().Context())
	if err != nil {
		return mapError(err, "An error occurred while retrieving space status.")
	}

	return c.JSON(http.StatusOK, dto.ToSpaceStatusResponse(status))
}

func (h *ParkingHandler) ProcessExit(c echo.Context) error {
	var req dto.VehicleExitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body.")
	}
	if strings.TrimSpace(req.VehicleReg) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Vehicle registration is required.")
	}

	receipt, err := h.svc.ProcessExit(c.Request().Context(), req.VehicleReg)
	if err != nil {
		return mapError(err, "An error occurred while processing vehicle exit.")
	}

	return c.JSON(http.StatusOK, dto.ToExitResponse(receipt))
}

func (h *ParkingHandler) ListSpaces(c echo.Context) error {
	spaces, err := h.svc.ListSpaces(c.Request().Context())
	if err != nil {
		return mapError(err, "An error occurred while listing spaces.")
	}

	resp := make([]dto.SpaceResponse, len(spaces))
	for i := range spaces {
		resp[i] = dto.ToSpaceResponse(&spaces[i])
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *ParkingHandler) ListActivity(c echo.Context) error {
	if h.activityRepo == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Parking activity is not available.")
	}

	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer.")
		}
		limit = min(n, maxActivityLimit)
	}

	activities, err := h.activityRepo.ListRecent(c.Request().Context(), c.QueryParam("vehicleReg"), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "An error occurred while listing parking activity.").SetInternal(err)
	}

	resp := make([]dto.ActivityResponse, len(activities))
	for i := range activities {
		resp[i] = dto.ToActivityResponse(&activities[i])
	}

	return c.JSON(http.StatusOK, resp)
}

func mapError(err error, unexpected string) error {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidVehicleType),
		errors.Is(err, service.ErrAlreadyParked):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCarParkFull):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrNotParked):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, unexpected).SetInternal(err)
	}
}
