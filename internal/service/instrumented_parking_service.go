package service

import (
	"context"
	"errors"
	"time"

	"github.com/Eursukkul/carpark-service/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type InstrumentedParkingService struct {
	next   ParkingService
	tracer trace.Tracer

	parkOperations    metric.Int64Counter
	exitOperations    metric.Int64Counter
	operationDuration metric.Float64Histogram
	exitCharges       metric.Float64Histogram
}

func NewInstrumentedParkingService(next ParkingService, tracer trace.Tracer, meter metric.Meter) (*InstrumentedParkingService, error) {
	parkOperations, err := meter.Int64Counter("carpark.park.operations",
		metric.WithDescription("Total number of park attempts"),
		metric.WithUnit("{operation}"))
	if err != nil {
		return nil, err
	}

	exitOperations, err := meter.Int64Counter("carpark.exit.operations",
		metric.WithDescription("Total number of exit attempts"),
		metric.WithUnit("{operation}"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("carpark.operation.duration",
		metric.WithDescription("Duration of car park operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	exitCharges, err := meter.Float64Histogram("carpark.exit.charge",
		metric.WithDescription("Charge billed on exit"),
		metric.WithUnit("{currency}"))
	if err != nil {
		return nil, err
	}

	return &InstrumentedParkingService{
		next:              next,
		tracer:            tracer,
		parkOperations:    parkOperations,
		exitOperations:    exitOperations,
		operationDuration: operationDuration,
		exitCharges:       exitCharges,
	}, nil
}

func (s *InstrumentedParkingService) ParkVehicle(ctx context.Context, reg, vehicleType string) (*models.ParkingSpace, error) {
	ctx, span := s.tracer.Start(ctx, "carpark.park",
		trace.WithAttributes(
			attribute.String("vehicle.registration", reg),
			attribute.String("vehicle.type", vehicleType),
		))
	defer span.End()

	start := time.Now()
	space, err := s.next.ParkVehicle(ctx, reg, vehicleType)

	labels := []attribute.KeyValue{
		attribute.String("operation", "park"),
		attribute.String("outcome", outcome(err)),
	}
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("carpark.space_number", space.SpaceNumber))
		span.AddEvent("space_allocated", trace.WithAttributes(
			attribute.Int("space_number", space.SpaceNumber),
		))
	}

	s.parkOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	s.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return space, err
}

func (s *InstrumentedParkingService) GetSpaceStatus(ctx context.Context) (*models.SpaceStatus, error) {
	ctx, span := s.tracer.Start(ctx, "carpark.status")
	defer span.End()

	start := time.Now()
	status, err := s.next.GetSpaceStatus(ctx)

	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(
			attribute.Int64("carpark.spaces.available", status.Available),
			attribute.Int64("carpark.spaces.occupied", status.Occupied),
		)
	}

	s.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", "status"),
		attribute.String("outcome", outcome(err)),
	))

	return status, err
}

func (s *InstrumentedParkingService) ProcessExit(ctx context.Context, reg string) (*models.ExitReceipt, error) {
	ctx, span := s.tracer.Start(ctx, "carpark.exit",
		trace.WithAttributes(attribute.String("vehicle.registration", reg)))
	defer span.End()

	start := time.Now()
	receipt, err := s.next.ProcessExit(ctx, reg)

	labels := []attribute.KeyValue{
		attribute.String("operation", "exit"),
		attribute.String("outcome", outcome(err)),
	}
	if err != nil {
		recordError(span, err)
	} else {
		charge := receipt.Charge.InexactFloat64()
		span.SetAttributes(
			attribute.Int("carpark.space_number", receipt.SpaceNumber),
			attribute.String("carpark.charge", receipt.Charge.StringFixed(2)),
		)
		span.AddEvent("space_released")
		s.exitCharges.Record(ctx, charge, metric.WithAttributes(
			attribute.String("vehicle.type", string(receipt.VehicleType)),
		))
	}

	s.exitOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	s.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return receipt, err
}

func (s *InstrumentedParkingService) ListSpaces(ctx context.Context) ([]models.ParkingSpace, error) {
	ctx, span := s.tracer.Start(ctx, "carpark.list_spaces")
	defer span.End()

	spaces, err := s.next.ListSpaces(ctx)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("carpark.spaces.total", len(spaces)))
	return spaces, nil
}

// Business rejections are not span errors; only unexpected failures are.
func recordError(span trace.Span, err error) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		span.AddEvent("rejected", trace.WithAttributes(attribute.String("reason", svcErr.Message)))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrInvalidVehicleType):
		return "invalid_vehicle_type"
	case errors.Is(err, ErrAlreadyParked):
		return "already_parked"
	case errors.Is(err, ErrCarParkFull):
		return "car_park_full"
	case errors.Is(err, ErrNotParked):
		return "not_parked"
	}
	return "error"
}
