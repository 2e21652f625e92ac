package repository

import (
	"context"
	"sync"

	"github.com/Eursukkul/carpark-service/internal/models"
)

// MemorySpaceRepository keeps the ledger in process. All access, including a
// whole Transaction, is serialized by one mutex.
type MemorySpaceRepository struct {
	mu     sync.Mutex
	spaces []models.ParkingSpace
}

func NewMemorySpaceRepository(totalSpaces int) *MemorySpaceRepository {
	spaces := make([]models.ParkingSpace, totalSpaces)
	for i := range spaces {
		spaces[i] = models.ParkingSpace{ID: uint(i + 1), SpaceNumber: i + 1}
	}
	return &MemorySpaceRepository{spaces: spaces}
}

func (r *MemorySpaceRepository) FindFreeSpace(ctx context.Context) (*models.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return memoryTx{r}.FindFreeSpace(ctx)
}

func (r *MemorySpaceRepository) FindOccupiedByReg(ctx context.Context, reg string) (*models.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return memoryTx{r}.FindOccupiedByReg(ctx, reg)
}

func (r *MemorySpaceRepository) IsRegParked(ctx context.Context, reg string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return memoryTx{r}.IsRegParked(ctx, reg)
}

func (r *MemorySpaceRepository) CountByOccupancy(ctx context.Context) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return memoryTx{r}.CountByOccupancy(ctx)
}

func (r *MemorySpaceRepository) ListSpaces(ctx context.Context) ([]models.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return memoryTx{r}.ListSpaces(ctx)
}

func (r *MemorySpaceRepository) Save(ctx context.Context, space *models.ParkingSpace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return memoryTx{r}.Save(ctx, space)
}

// Transaction holds the lock for the duration of fn and restores the previous
// state if fn fails.
func (r *MemorySpaceRepository) Transaction(ctx context.Context, fn func(repo SpaceRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]models.ParkingSpace, len(r.spaces))
	for i := range r.spaces {
		snapshot[i] = cloneSpace(r.spaces[i])
	}

	if err := fn(memoryTx{r}); err != nil {
		r.spaces = snapshot
		return err
	}
	return nil
}

// memoryTx operates on the ledger with the lock already held.
type memoryTx struct {
	r *MemorySpaceRepository
}

func (t memoryTx) FindFreeSpace(ctx context.Context) (*models.ParkingSpace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var best *models.ParkingSpace
	for i := range t.r.spaces {
		s := &t.r.spaces[i]
		if s.IsOccupied {
			continue
		}
		if best == nil || s.SpaceNumber < best.SpaceNumber {
			best = s
		}
	}
	if best == nil {
		return nil, ErrSpaceNotFound
	}
	found := cloneSpace(*best)
	return &found, nil
}

func (t memoryTx) FindOccupiedByReg(ctx context.Context, reg string) (*models.ParkingSpace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s := t.occupiedBy(reg); s != nil {
		found := cloneSpace(*s)
		return &found, nil
	}
	return nil, ErrSpaceNotFound
}

func (t memoryTx) IsRegParked(ctx context.Context, reg string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return t.occupiedBy(reg) != nil, nil
}

func (t memoryTx) CountByOccupancy(ctx context.Context) (int64, int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	var occupied int64
	for i := range t.r.spaces {
		if t.r.spaces[i].IsOccupied {
			occupied++
		}
	}
	return int64(len(t.r.spaces)) - occupied, occupied, nil
}

func (t memoryTx) ListSpaces(ctx context.Context) ([]models.ParkingSpace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	spaces := make([]models.ParkingSpace, len(t.r.spaces))
	for i := range t.r.spaces {
		spaces[i] = cloneSpace(t.r.spaces[i])
	}
	return spaces, nil
}

func (t memoryTx) Save(ctx context.Context, space *models.ParkingSpace) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx := -1
	for i := range t.r.spaces {
		if t.r.spaces[i].ID == space.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrSpaceNotFound
	}

	if space.IsOccupied && space.VehicleReg != nil {
		if other := t.occupiedBy(*space.VehicleReg); other != nil && other.ID != space.ID {
			return ErrDuplicateVehicle
		}
	}

	t.r.spaces[idx] = cloneSpace(*space)
	return nil
}

func (t memoryTx) Transaction(ctx context.Context, fn func(repo SpaceRepository) error) error {
	return fn(t)
}

func (t memoryTx) occupiedBy(reg string) *models.ParkingSpace {
	for i := range t.r.spaces {
		s := &t.r.spaces[i]
		if s.IsOccupied && s.VehicleReg != nil && *s.VehicleReg == reg {
			return s
		}
	}
	return nil
}

// cloneSpace copies the pointer fields so callers never alias ledger state.
func cloneSpace(s models.ParkingSpace) models.ParkingSpace {
	if s.VehicleReg != nil {
		v := *s.VehicleReg
		s.VehicleReg = &v
	}
	if s.VehicleType != nil {
		v := *s.VehicleType
		s.VehicleType = &v
	}
	if s.TimeIn != nil {
		v := *s.TimeIn
		s.TimeIn = &v
	}
	if s.TimeOut != nil {
		v := *s.TimeOut
		s.TimeOut = &v
	}
	return s
}
