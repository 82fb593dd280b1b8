package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storekode/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// mutableStoreColumns are the columns UpdateOwned accepts. id, created_by and
// created_at are fixed at creation.
var mutableStoreColumns = map[string]bool{
	StoreColumnName:      true,
	StoreColumnAddress:   true,
	StoreColumnCity:      true,
	StoreColumnPincode:   true,
	StoreColumnState:     true,
	StoreColumnLatitude:  true,
	StoreColumnLongitude: true,
	StoreColumnReviewPID: true,
	StoreColumnIsActive:  true,
}

// updateAssignments builds the SET list for the named columns. A map keeps GORM
// from writing zero values as defaults and lets the caller's updated_at stand.
func updateAssignments(store *models.Store, columns []string) (map[string]any, error) {
	values := make(map[string]any, len(columns)+1)
	for _, col := range columns {
		if !mutableStoreColumns[col] {
			return nil, fmt.Errorf("column %q is not updatable", col)
		}
		values[col] = storeColumnValue(store, col)
	}
	values["updated_at"] = store.UpdatedAt
	return values, nil
}

func storeColumnValue(store *models.Store, col string) any {
	switch col {
	case StoreColumnName:
		return store.StoreName
	case StoreColumnAddress:
		return store.Address
	case StoreColumnCity:
		return store.City
	case StoreColumnPincode:
		return store.Pincode
	case StoreColumnState:
		return store.State
	case StoreColumnLatitude:
		return store.Location.Latitude
	case StoreColumnLongitude:
		return store.Location.Longitude
	case StoreColumnReviewPID:
		return store.GoogleReviewPID
	default:
		return store.IsActive
	}
}

// GORMStoreRepository is a GORM implementation of StoreRepository.
type GORMStoreRepository struct {
	db *gorm.DB
}

// NewGORMStoreRepository creates a new instance of GORMStoreRepository.
func NewGORMStoreRepository(db *gorm.DB) *GORMStoreRepository {
	return &GORMStoreRepository{
		db: db,
	}
}

// Create creates a new store in the database.
func (r *GORMStoreRepository) Create(ctx context.Context, store *models.Store) error {
	if store.ID == "" {
		store.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(store).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateReviewPID
		}
		return fmt.Errorf("failed to create store: %w", err)
	}
	return nil
}

// ListOwned retrieves the owner's stores, oldest first.
func (r *GORMStoreRepository) ListOwned(ctx context.Context, ownerID string, filter models.StoreFilter) ([]models.Store, error) {
	q := r.db.WithContext(ctx).Where("created_by = ?", ownerID)
	if filter.City != nil {
		q = q.Where("city = ?", *filter.City)
	}
	if filter.State != nil {
		q = q.Where("state = ?", *filter.State)
	}
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}

	stores := make([]models.Store, 0)
	if err := q.Order("created_at ASC").Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	return stores, nil
}

// FindOwned retrieves a single store by its ID and owner.
func (r *GORMStoreRepository) FindOwned(ctx context.Context, ownerID, id string) (*models.Store, error) {
	var store models.Store
	err := r.db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, ownerID).
		First(&store).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get store %s: %w", id, err)
	}
	return &store, nil
}

// UpdateOwned writes the named columns of store and reads the row back.
func (r *GORMStoreRepository) UpdateOwned(ctx context.Context, ownerID string, store *models.Store, columns []string) (*models.Store, error) {
	values, err := updateAssignments(store, columns)
	if err != nil {
		return nil, err
	}

	res := r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ? AND created_by = ?", store.ID, ownerID).
		Updates(values)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateReviewPID
		}
		return nil, fmt.Errorf("failed to update store %s: %w", store.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return r.FindOwned(ctx, ownerID, store.ID)
}

// DeactivateOwned soft-deletes a store. Repeating it on an inactive store only
// refreshes updated_at.
func (r *GORMStoreRepository) DeactivateOwned(ctx context.Context, ownerID, id string, at time.Time) (*models.Store, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ? AND created_by = ?", id, ownerID).
		Updates(map[string]any{
			StoreColumnIsActive: false,
			"updated_at":        at,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to deactivate store %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return r.FindOwned(ctx, ownerID, id)
}

// ReviewPIDTaken counts active stores holding pid, excluding excludeID.
func (r *GORMStoreRepository) ReviewPIDTaken(ctx context.Context, pid, excludeID string) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where(StoreColumnReviewPID+" = ? AND "+StoreColumnIsActive+" = ?", pid, true)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check google review pid: %w", err)
	}
	return count > 0, nil
}
