package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Eursukkul/carpark-service/internal/logging"
	"github.com/Eursukkul/carpark-service/internal/models"
	"github.com/Eursukkul/carpark-service/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const MaxVehicleRegLength = 20

type ActivityPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type ParkingService interface {
	ParkVehicle(ctx context.Context, reg, vehicleType string) (*models.ParkingSpace, error)
	GetSpaceStatus(ctx context.Context) (*models.SpaceStatus, error)
	ProcessExit(ctx context.Context, reg string) (*models.ExitReceipt, error)
	ListSpaces(ctx context.Context) ([]models.ParkingSpace, error)
}

type Option func(*parkingService)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *parkingService) {
		s.now = now
	}
}

type parkingService struct {
	spaceRepo repository.SpaceRepository
	publisher ActivityPublisher
	now       func() time.Time
}

// NewParkingService builds the allocation engine. publisher may be nil, in
// which case no activity is emitted.
func NewParkingService(spaceRepo repository.SpaceRepository, publisher ActivityPublisher, opts ...Option) ParkingService {
	s := &parkingService{
		spaceRepo: spaceRepo,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *parkingService) ParkVehicle(ctx context.Context, reg, vehicleType string) (*models.ParkingSpace, error) {
	if err := validateReg(reg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(vehicleType) == "" {
		return nil, newError(ErrValidation, "Vehicle type is required.")
	}

	vt, ok := models.ParseVehicleType(vehicleType)
	if !ok {
		logging.Warn(ctx).Str("vehicle_type", vehicleType).Msg("invalid vehicle type")
		return nil, newError(ErrInvalidVehicleType, "Invalid vehicle type: %s. Must be Small, Medium, or Large.", vehicleType)
	}

	var parked *models.ParkingSpace
	err := s.spaceRepo.Transaction(ctx, func(repo repository.SpaceRepository) error {
		alreadyParked, err := repo.IsRegParked(ctx, reg)
		if err != nil {
			return fmt.Errorf("check vehicle %s: %w", reg, err)
		}
		if alreadyParked {
			return newError(ErrAlreadyParked, "Vehicle %s is already parked.", reg)
		}

		space, err := repo.FindFreeSpace(ctx)
		if errors.Is(err, repository.ErrSpaceNotFound) {
			return newError(ErrCarParkFull, "Car park is full. No available spaces.")
		}
		if err != nil {
			return fmt.Errorf("find free space: %w", err)
		}

		space.Occupy(reg, vt, s.timestamp())
		if err := repo.Save(ctx, space); err != nil {
			// Lost a race with a concurrent park of the same registration.
			if errors.Is(err, repository.ErrDuplicateVehicle) {
				return newError(ErrAlreadyParked, "Vehicle %s is already parked.", reg)
			}
			return fmt.Errorf("save space %d: %w", space.SpaceNumber, err)
		}

		parked = space
		return nil
	})
	if err != nil {
		logFailure(ctx, err, reg, "park vehicle failed")
		return nil, err
	}

	logging.Info(ctx).
		Str("vehicle_reg", reg).
		Str("vehicle_type", string(vt)).
		Int("space_number", parked.SpaceNumber).
		Msg("vehicle parked")

	s.publish(ctx, &models.ParkingActivity{
		Kind:        models.ActivityParked,
		VehicleReg:  reg,
		VehicleType: vt,
		SpaceNumber: parked.SpaceNumber,
		TimeIn:      *parked.TimeIn,
		OccurredAt:  *parked.TimeIn,
	})

	return parked, nil
}

func (s *parkingService) GetSpaceStatus(ctx context.Context) (*models.SpaceStatus, error) {
	available, occupied, err := s.spaceRepo.CountByOccupancy(ctx)
	if err != nil {
		return nil, fmt.Errorf("count spaces: %w", err)
	}
	return &models.SpaceStatus{Available: available, Occupied: occupied}, nil
}

func (s *parkingService) ProcessExit(ctx context.Context, reg string) (*models.ExitReceipt, error) {
	if err := validateReg(reg); err != nil {
		return nil, err
	}

	var receipt *models.ExitReceipt
	err := s.spaceRepo.Transaction(ctx, func(repo repository.SpaceRepository) error {
		space, err := repo.FindOccupiedByReg(ctx, reg)
		if errors.Is(err, repository.ErrSpaceNotFound) {
			return newError(ErrNotParked, "Vehicle %s is not currently parked.", reg)
		}
		if err != nil {
			return fmt.Errorf("find space for %s: %w", reg, err)
		}
		if space.TimeIn == nil || space.VehicleType == nil {
			return fmt.Errorf("space %d is occupied without time in or vehicle type", space.SpaceNumber)
		}

		timeIn := *space.TimeIn
		vt := *space.VehicleType
		timeOut := s.timestamp()

		charge, err := CalculateCharge(vt, timeIn, timeOut)
		if err != nil {
			return err
		}

		logging.Debug(ctx).
			Int64("minutes", ElapsedMinutes(timeIn, timeOut)).
			Str("charge", charge.StringFixed(2)).
			Msg("exit charge calculated")

		space.Release(timeOut)
		if err := repo.Save(ctx, space); err != nil {
			return fmt.Errorf("save space %d: %w", space.SpaceNumber, err)
		}

		receipt = &models.ExitReceipt{
			VehicleReg:  reg,
			VehicleType: vt,
			SpaceNumber: space.SpaceNumber,
			Charge:      charge,
			TimeIn:      timeIn,
			TimeOut:     timeOut,
		}
		return nil
	})
	if err != nil {
		logFailure(ctx, err, reg, "process exit failed")
		return nil, err
	}

	logging.Info(ctx).
		Str("vehicle_reg", reg).
		Int("space_number", receipt.SpaceNumber).
		Str("charge", receipt.Charge.StringFixed(2)).
		Msg("vehicle exited")

	timeOut := receipt.TimeOut
	s.publish(ctx, &models.ParkingActivity{
		Kind:        models.ActivityExited,
		VehicleReg:  reg,
		VehicleType: receipt.VehicleType,
		SpaceNumber: receipt.SpaceNumber,
		TimeIn:      receipt.TimeIn,
		TimeOut:     &timeOut,
		Charge:      decimal.NewNullDecimal(receipt.Charge),
		OccurredAt:  timeOut,
	})

	return receipt, nil
}

func (s *parkingService) ListSpaces(ctx context.Context) ([]models.ParkingSpace, error) {
	return s.spaceRepo.ListSpaces(ctx)
}

// timestamp is truncated to microseconds, the precision Postgres keeps.
func (s *parkingService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *parkingService) publish(ctx context.Context, activity *models.ParkingActivity) {
	if s.publisher == nil {
		return
	}
	activity.EventID = uuid.NewString()
	if err := s.publisher.Publish(ctx, activity.RoutingKey(), activity); err != nil {
		logging.Warn(ctx).Err(err).Str("event_id", activity.EventID).Msg("failed to publish parking activity")
	}
}

func validateReg(reg string) error {
	if strings.TrimSpace(reg) == "" {
		return newError(ErrValidation, "Vehicle registration is required.")
	}
	if utf8.RuneCountInString(reg) > MaxVehicleRegLength {
		return newError(ErrValidation, "Vehicle registration must be at most %d characters.", MaxVehicleRegLength)
	}
	return nil
}

func logFailure(ctx context.Context, err error, reg, msg string) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		logging.Warn(ctx).Str("vehicle_reg", reg).Str("reason", svcErr.Message).Msg(msg)
		return
	}
	logging.Error(ctx).Err(err).Str("vehicle_reg", reg).Msg(msg)
}
