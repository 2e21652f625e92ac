package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Eursukkul/carpark-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var _ ParkingService = (*InstrumentedParkingService)(nil)

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

type telemetryHarness struct {
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
}

func newInstrumented(t *testing.T, next ParkingService) (*InstrumentedParkingService, *telemetryHarness) {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	svc, err := NewInstrumentedParkingService(next, tp.Tracer("test"), mp.Meter("test"))
	require.NoError(t, err)
	return svc, &telemetryHarness{spans: spans, reader: reader}
}

func (h *telemetryHarness) metric(t *testing.T, name string) (metricdata.Metrics, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestInstrumented_ParkSuccess(t *testing.T) {
	now := time.Now()
	next := &mockParkingService{
		parkFn: func(ctx context.Context, reg, vehicleType string) (*models.ParkingSpace, error) {
			return &models.ParkingSpace{SpaceNumber: 3, TimeIn: &now, IsOccupied: true}, nil
		},
	}
	svc, h := newInstrumented(t, next)

	space, err := svc.ParkVehicle(context.Background(), "AB12CDE", "Small")
	require.NoError(t, err)
	assert.Equal(t, 3, space.SpaceNumber)

	ended := h.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "carpark.park", ended[0].Name())
	assert.NotEqual(t, codes.Error, ended[0].Status().Code)

	m, ok := h.metric(t, "carpark.park.operations")
	require.True(t, ok)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
	v, _ := sum.DataPoints[0].Attributes.Value("outcome")
	assert.Equal(t, "success", v.AsString())
}

func TestInstrumented_BusinessRejectionIsNotSpanError(t *testing.T) {
	next := &mockParkingService{
		parkFn: func(ctx context.Context, reg, vehicleType string) (*models.ParkingSpace, error) {
			return nil, newError(ErrCarParkFull, "Car park is full. No available spaces.")
		},
	}
	svc, h := newInstrumented(t, next)

	_, err := svc.ParkVehicle(context.Background(), "AB12CDE", "Small")
	assert.ErrorIs(t, err, ErrCarParkFull)

	ended := h.spans.Ended()
	require.Len(t, ended, 1)
	assert.NotEqual(t, codes.Error, ended[0].Status().Code)
	require.NotEmpty(t, ended[0].Events())
	assert.Equal(t, "rejected", ended[0].Events()[0].Name)

	m, ok := h.metric(t, "carpark.park.operations")
	require.True(t, ok)
	sum := m.Data.(metricdata.Sum[int64])
	v, _ := sum.DataPoints[0].Attributes.Value("outcome")
	assert.Equal(t, "car_park_full", v.AsString())
}

func TestInstrumented_UnexpectedErrorMarksSpan(t *testing.T) {
	boom := errors.New("db gone")
	next := &mockParkingService{
		exitFn: func(ctx context.Context, reg string) (*models.ExitReceipt, error) {
			return nil, boom
		},
	}
	svc, h := newInstrumented(t, next)

	_, err := svc.ProcessExit(context.Background(), "AB12CDE")
	assert.ErrorIs(t, err, boom)

	ended := h.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "carpark.exit", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestInstrumented_ExitRecordsCharge(t *testing.T) {
	next := &mockParkingService{
		exitFn: func(ctx context.Context, reg string) (*models.ExitReceipt, error) {
			return &models.ExitReceipt{
				VehicleReg:  reg,
				VehicleType: models.VehicleMedium,
				SpaceNumber: 1,
				Charge:      decimal.RequireFromString("4.40"),
			}, nil
		},
	}
	svc, h := newInstrumented(t, next)

	_, err := svc.ProcessExit(context.Background(), "AB12CDE")
	require.NoError(t, err)

	m, ok := h.metric(t, "carpark.exit.charge")
	require.True(t, ok)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 4.40, hist.DataPoints[0].Sum, 0.0001)
}

func TestInstrumented_StatusAndList(t *testing.T) {
	next := &mockParkingService{
		statusFn: func(ctx context.Context) (*models.SpaceStatus, error) {
			return &models.SpaceStatus{Available: 18, Occupied: 2}, nil
		},
		listFn: func(ctx context.Context) ([]models.ParkingSpace, error) {
			return make([]models.ParkingSpace, 20), nil
		},
	}
	svc, h := newInstrumented(t, next)

	status, err := svc.GetSpaceStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(18), status.Available)

	spaces, err := svc.ListSpaces(context.Background())
	require.NoError(t, err)
	assert.Len(t, spaces, 20)

	names := []string{}
	for _, s := range h.spans.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"carpark.status", "carpark.list_spaces"}, names)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", outcome(nil))
	assert.Equal(t, "validation_error", outcome(newError(ErrValidation, "x")))
	assert.Equal(t, "invalid_vehicle_type", outcome(newError(ErrInvalidVehicleType, "x")))
	assert.Equal(t, "already_parked", outcome(newError(ErrAlreadyParked, "x")))
	assert.Equal(t, "car_park_full", outcome(newError(ErrCarParkFull, "x")))
	assert.Equal(t, "not_parked", outcome(newError(ErrNotParked, "x")))
	assert.Equal(t, "error", outcome(errors.New("boom")))
}
