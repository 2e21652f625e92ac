package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Eursukkul/carpark-service/internal/dto"
	"github.com/Eursukkul/carpark-service/internal/models"
	"github.com/Eursukkul/carpark-service/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock ParkingService ---

type mockParkingService struct {
	parkFn   func(ctx context.Context, reg, vehicleType string) (*models.ParkingSpace, error)
	statusFn func(ctx context.Context) (*models.SpaceStatus, error)
	exitFn   func(ctx context.Context, reg string) (*models.ExitReceipt, error)
	listFn   func(ctx context.Context) ([]models.ParkingSpace, error)
}

func (m *mockParkingService) ParkVehicle(ctx context.Context, reg, vehicleType string) (*models.ParkingSpace, error) {
	return m.parkFn(ctx, reg, vehicleType)
}
func (m *mockParkingService) GetSpaceStatus(ctx context.Context) (*models.SpaceStatus, error) {
	return m.statusFn(ctx)
}
func (m *mockParkingService) ProcessExit(ctx context.Context, reg string) (*models.ExitReceipt, error) {
	return m.exitFn(ctx, reg)
}
func (m *mockParkingService) ListSpaces(ctx context.Context) ([]models.ParkingSpace, error) {
	return m.listFn(ctx)
}

// --- Mock ActivityRepository ---

type mockActivityRepo struct {
	listFn func(ctx context.Context, reg string, limit int) ([]models.ParkingActivity, error)
}

func (m *mockActivityRepo) Record(ctx context.Context, activity *models.ParkingActivity) error {
	return nil
}
func (m *mockActivityRepo) ListRecent(ctx context.Context, reg string, limit int) ([]models.ParkingActivity, error) {
	return m.listFn(ctx, reg, limit)
}

func businessError(kind error, msg string) error {
	return &service.Error{Kind: kind, Message: msg}
}

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func assertHTTPError(t *testing.T, err error, code int, message string) *echo.HTTPError {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	assert.Equal(t, code, he.Code)
	if message != "" {
		assert.Equal(t, message, he.Message)
	}
	return he
}

// --- Tests ---

func TestParkVehicle_Handler_Success(t *testing.T) {
	timeIn := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	svc := &mockParkingService{
		parkFn: func(ctx context.Context, reg, vehicleType string) (*models.ParkingSpace, error) {
			assert.Equal(t, "AB12CDE", reg)
			assert.Equal(t, "medium", vehicleType)
			space := &models.ParkingSpace{SpaceNumber: 1}
			space.Occupy(reg, models.VehicleMedium, timeIn)
			return space, nil
		},
	}

	c, rec := newJSONContext(http.MethodPost, "/parking", `{"vehicleReg":"AB12CDE","vehicleType":"medium"}`)
	h := NewParkingHandler(svc, nil)
	err := h.ParkVehicle(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.ParkingResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "AB12CDE", resp.VehicleReg)
	assert.Equal(t, 1, resp.SpaceNumber)
	assert.True(t, timeIn.Equal(resp.TimeIn))
}

func TestParkVehicle_Handler_MissingFields(t *testing.T) {
	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"no reg", `{"vehicleType":"Small"}`, "Vehicle registration is required."},
		{"blank reg", `{"vehicleReg":"  ","vehicleType":"Small"}`, "Vehicle registration is required."},
		{"no type", `{"vehicleReg":"AB12CDE"}`, "Vehicle type is required."},
		{"bad json", `{"vehicleReg":`, "Invalid request body."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newJSONContext(http.MethodPost, "/parking", tc.body)
			h := NewParkingHandler(nil, nil)
			assertHTTPError(t, h.ParkVehicle(c), http.StatusBadRequest, tc.msg)
		})
	}
}

func TestParkVehicle_Handler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"invalid type", businessError(service.ErrInvalidVehicleType, "Invalid vehicle type: Truck. Must be Small, Medium, or Large."), http.StatusBadRequest},
		{"validation", businessError(service.ErrValidation, "Vehicle registration must be at most 20 characters."), http.StatusBadRequest},
		{"already parked", businessError(service.ErrAlreadyParked, "Vehicle AB12CDE is already parked."), http.StatusBadRequest},
		{"full", businessError(service.ErrCarParkFull, "Car park is full. No available spaces."), http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockParkingService{
				parkFn: func(ctx context.Context, reg, vehicleType string) (*models.ParkingSpace, error) {
					return nil, tc.err
				},
			}
			c, _ := newJSONContext(http.MethodPost, "/parking", `{"vehicleReg":"AB12CDE","vehicleType":"Truck"}`)
			h := NewParkingHandler(svc, nil)
			assertHTTPError(t, h.ParkVehicle(c), tc.code, tc.err.Error())
		})
	}
}

func TestParkVehicle_Handler_UnexpectedErrorHidesDetail(t *testing.T) {
	dbErr := errors.New("pq: connection refused")
	svc := &mockParkingService{
		parkFn: func(ctx context.Context, reg, vehicleType string) (*models.ParkingSpace, error) {
			return nil, dbErr
		},
	}

	c, _ := newJSONContext(http.MethodPost, "/parking", `{"vehicleReg":"AB12CDE","vehicleType":"Small"}`)
	h := NewParkingHandler(svc, nil)
	he := assertHTTPError(t, h.ParkVehicle(c), http.StatusInternalServerError, "An error occurred while parking the vehicle.")
	assert.ErrorIs(t, he.Internal, dbErr)
}

func TestGetSpaceStatus_Handler_Success(t *testing.T) {
	svc := &mockParkingService{
		statusFn: func(ctx context.Context) (*models.SpaceStatus, error) {
			return &models.SpaceStatus{Available: 17, Occupied: 3}, nil
		},
	}

	c, rec := newJSONContext(http.MethodGet, "/parking", "")
	h := NewParkingHandler(svc, nil)
	err := h.GetSpaceStatus(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"availableSpaces":17,"occupiedSpaces":3}`, rec.Body.String())
}

func TestGetSpaceStatus_Handler_Error(t *testing.T) {
	svc := &mockParkingService{
		statusFn: func(ctx context.Context) (*models.SpaceStatus, error) {
			return nil, errors.New("timeout")
		},
	}

	c, _ := newJSONContext(http.MethodGet, "/parking", "")
	h := NewParkingHandler(svc, nil)
	assertHTTPError(t, h.GetSpaceStatus(c), http.StatusInternalServerError, "An error occurred while retrieving space status.")
}

func TestProcessExit_Handler_Success(t *testing.T) {
	timeIn := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	svc := &mockParkingService{
		exitFn: func(ctx context.Context, reg string) (*models.ExitReceipt, error) {
			return &models.ExitReceipt{
				VehicleReg:  reg,
				VehicleType: models.VehicleMedium,
				SpaceNumber: 1,
				Charge:      decimal.RequireFromString("4.40"),
				TimeIn:      timeIn,
				TimeOut:     timeIn.Add(12 * time.Minute),
			}, nil
		},
	}

	c, rec := newJSONContext(http.MethodPost, "/parking/exit", `{"vehicleReg":"AB12CDE"}`)
	h := NewParkingHandler(svc, nil)
	err := h.ProcessExit(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.ExitResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "AB12CDE", resp.VehicleReg)
	assert.Equal(t, 4.40, resp.VehicleCharge)
	assert.True(t, timeIn.Add(12*time.Minute).Equal(resp.TimeOut))
}

func TestProcessExit_Handler_NotParked(t *testing.T) {
	svc := &mockParkingService{
		exitFn: func(ctx context.Context, reg string) (*models.ExitReceipt, error) {
			return nil, businessError(service.ErrNotParked, "Vehicle ZZ99ZZZ is not currently parked.")
		},
	}

	c, _ := newJSONContext(http.MethodPost, "/parking/exit", `{"vehicleReg":"ZZ99ZZZ"}`)
	h := NewParkingHandler(svc, nil)
	assertHTTPError(t, h.ProcessExit(c), http.StatusNotFound, "Vehicle ZZ99ZZZ is not currently parked.")
}

func TestProcessExit_Handler_MissingReg(t *testing.T) {
	c, _ := newJSONContext(http.MethodPost, "/parking/exit", `{}`)
	h := NewParkingHandler(nil, nil)
	assertHTTPError(t, h.ProcessExit(c), http.StatusBadRequest, "Vehicle registration is required.")
}

func TestProcessExit_Handler_UnexpectedError(t *testing.T) {
	svc := &mockParkingService{
		exitFn: func(ctx context.Context, reg string) (*models.ExitReceipt, error) {
			return nil, errors.New("deadlock detected")
		},
	}

	c, _ := newJSONContext(http.MethodPost, "/parking/exit", `{"vehicleReg":"AB12CDE"}`)
	h := NewParkingHandler(svc, nil)
	assertHTTPError(t, h.ProcessExit(c), http.StatusInternalServerError, "An error occurred while processing vehicle exit.")
}

func TestListSpaces_Handler_Success(t *testing.T) {
	svc := &mockParkingService{
		listFn: func(ctx context.Context) ([]models.ParkingSpace, error) {
			occupied := models.ParkingSpace{SpaceNumber: 1}
			occupied.Occupy("AB12CDE", models.VehicleLarge, time.Now())
			return []models.ParkingSpace{occupied, {SpaceNumber: 2}}, nil
		},
	}

	c, rec := newJSONContext(http.MethodGet, "/parking/spaces", "")
	h := NewParkingHandler(svc, nil)
	err := h.ListSpaces(c)

	assert.NoError(t, err)
	var resp []dto.SpaceResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.True(t, resp[0].IsOccupied)
	require.NotNil(t, resp[0].VehicleReg)
	assert.Equal(t, "AB12CDE", *resp[0].VehicleReg)
	assert.False(t, resp[1].IsOccupied)
	assert.Nil(t, resp[1].VehicleReg)
}

func TestListActivity_Handler_Success(t *testing.T) {
	repo := &mockActivityRepo{
		listFn: func(ctx context.Context, reg string, limit int) ([]models.ParkingActivity, error) {
			assert.Equal(t, "AB12CDE", reg)
			assert.Equal(t, 10, limit)
			return []models.ParkingActivity{
				{EventID: "e-2", Kind: models.ActivityExited, VehicleReg: reg, Charge: decimal.NewNullDecimal(decimal.RequireFromString("1.70"))},
				{EventID: "e-1", Kind: models.ActivityParked, VehicleReg: reg},
			}, nil
		},
	}

	c, rec := newJSONContext(http.MethodGet, "/parking/activity?vehicleReg=AB12CDE&limit=10", "")
	h := NewParkingHandler(nil, repo)
	err := h.ListActivity(c)

	assert.NoError(t, err)
	var resp []dto.ActivityResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, models.ActivityExited, resp[0].Kind)
	require.NotNil(t, resp[0].VehicleCharge)
	assert.Nil(t, resp[1].VehicleCharge)
}

func TestListActivity_Handler_LimitCapped(t *testing.T) {
	repo := &mockActivityRepo{
		listFn: func(ctx context.Context, reg string, limit int) ([]models.ParkingActivity, error) {
			assert.Equal(t, maxActivityLimit, limit)
			return nil, nil
		},
	}

	c, rec := newJSONContext(http.MethodGet, "/parking/activity?limit=5000", "")
	h := NewParkingHandler(nil, repo)
	assert.NoError(t, h.ListActivity(c))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListActivity_Handler_BadLimit(t *testing.T) {
	c, _ := newJSONContext(http.MethodGet, "/parking/activity?limit=abc", "")
	h := NewParkingHandler(nil, &mockActivityRepo{})
	assertHTTPError(t, h.ListActivity(c), http.StatusBadRequest, "")
}

func TestListActivity_Handler_Unavailable(t *testing.T) {
	c, _ := newJSONContext(http.MethodGet, "/parking/activity", "")
	h := NewParkingHandler(nil, nil)
	assertHTTPError(t, h.ListActivity(c), http.StatusServiceUnavailable, "")
}

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	NewParkingHandler(&mockParkingService{}, nil).RegisterRoutes(e)

	routes := map[string]bool{}
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /parking", "GET /parking", "POST /parking/exit", "GET /parking/spaces", "GET /parking/activity",
	} {
		assert.True(t, routes[want], want)
	}
}
