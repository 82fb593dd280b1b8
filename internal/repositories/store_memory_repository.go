package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storekode/internal/models"

	"github.com/google/uuid"
)

// MemoryStoreRepository is an in-memory implementation of StoreRepository. The
// review PID rule is checked and applied under one lock, matching what the partial
// unique index gives the GORM implementation.
type MemoryStoreRepository struct {
	stores map[string]models.Store
	mu     sync.RWMutex
}

// NewMemoryStoreRepository creates a new instance of MemoryStoreRepository.
func NewMemoryStoreRepository() *MemoryStoreRepository {
	return &MemoryStoreRepository{
		stores: make(map[string]models.Store),
	}
}

// Create adds a new store.
func (r *MemoryStoreRepository) Create(_ context.Context, store *models.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store.ID == "" {
		store.ID = uuid.NewString()
	}
	if store.IsActive && r.pidTakenLocked(store.GoogleReviewPID, store.ID) {
		return ErrDuplicateReviewPID
	}
	now := time.Now()
	if store.CreatedAt.IsZero() {
		store.CreatedAt = now
	}
	if store.UpdatedAt.IsZero() {
		store.UpdatedAt = now
	}
	r.stores[store.ID] = cloneStore(*store)
	return nil
}

// ListOwned returns the owner's stores matching the filter, oldest first.
func (r *MemoryStoreRepository) ListOwned(_ context.Context, ownerID string, filter models.StoreFilter) ([]models.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stores := make([]models.Store, 0)
	for _, s := range r.stores {
		if s.CreatedBy != ownerID {
			continue
		}
		if filter.City != nil && s.City != *filter.City {
			continue
		}
		if filter.State != nil && s.State != *filter.State {
			continue
		}
		if filter.Active != nil && s.IsActive != *filter.Active {
			continue
		}
		stores = append(stores, cloneStore(s))
	}
	sort.Slice(stores, func(i, j int) bool {
		return stores[i].CreatedAt.Before(stores[j].CreatedAt)
	})
	return stores, nil
}

// FindOwned returns a store by ID if ownerID created it.
func (r *MemoryStoreRepository) FindOwned(_ context.Context, ownerID, id string) (*models.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stores[id]
	if !ok || s.CreatedBy != ownerID {
		return nil, ErrRecordNotFound
	}
	out := cloneStore(s)
	return &out, nil
}

// UpdateOwned copies the named columns of store onto the owned row.
func (r *MemoryStoreRepository) UpdateOwned(_ context.Context, ownerID string, store *models.Store, columns []string) (*models.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.stores[store.ID]
	if !ok || current.CreatedBy != ownerID {
		return nil, ErrRecordNotFound
	}

	updated := cloneStore(current)
	for _, col := range columns {
		if err := applyStoreColumn(&updated, store, col); err != nil {
			return nil, err
		}
	}
	updated.UpdatedAt = store.UpdatedAt
	if updated.IsActive && r.pidTakenLocked(updated.GoogleReviewPID, updated.ID) {
		return nil, ErrDuplicateReviewPID
	}

	r.stores[store.ID] = updated
	out := cloneStore(updated)
	return &out, nil
}

func applyStoreColumn(dst, src *models.Store, col string) error {
	switch col {
	case StoreColumnName:
		dst.StoreName = src.StoreName
	case StoreColumnAddress:
		dst.Address = src.Address
	case StoreColumnCity:
		dst.City = src.City
	case StoreColumnPincode:
		dst.Pincode = src.Pincode
	case StoreColumnState:
		dst.State = src.State
	case StoreColumnLatitude:
		dst.Location.Latitude = src.Location.Latitude
	case StoreColumnLongitude:
		dst.Location.Longitude = src.Location.Longitude
	case StoreColumnReviewPID:
		dst.GoogleReviewPID = nil
		if src.GoogleReviewPID != nil {
			pid := *src.GoogleReviewPID
			dst.GoogleReviewPID = &pid
		}
	case StoreColumnIsActive:
		dst.IsActive = src.IsActive
	default:
		return fmt.Errorf("column %q is not updatable", col)
	}
	return nil
}

// DeactivateOwned marks an owned store inactive.
func (r *MemoryStoreRepository) DeactivateOwned(_ context.Context, ownerID, id string, at time.Time) (*models.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[id]
	if !ok || s.CreatedBy != ownerID {
		return nil, ErrRecordNotFound
	}
	s.IsActive = false
	s.UpdatedAt = at
	r.stores[id] = s
	out := cloneStore(s)
	return &out, nil
}

// ReviewPIDTaken reports whether another active store holds pid.
func (r *MemoryStoreRepository) ReviewPIDTaken(_ context.Context, pid, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.pidTakenLocked(&pid, excludeID), nil
}

func (r *MemoryStoreRepository) pidTakenLocked(pid *string, excludeID string) bool {
	if pid == nil || *pid == "" {
		return false
	}
	for id, s := range r.stores {
		if id == excludeID || !s.IsActive || s.GoogleReviewPID == nil {
			continue
		}
		if *s.GoogleReviewPID == *pid {
			return true
		}
	}
	return false
}

// cloneStore copies the PID pointer so callers cannot mutate stored state.
func cloneStore(s models.Store) models.Store {
	if s.GoogleReviewPID != nil {
		pid := *s.GoogleReviewPID
		s.GoogleReviewPID = &pid
	}
	return s
}
