package repositories

import (
	"context"
	"time"

	"storekode/internal/models"
)

// Store columns UpdateOwned may write. updated_at is always written.
const (
	StoreColumnName      = "store_name"
	StoreColumnAddress   = "address"
	StoreColumnCity      = "city"
	StoreColumnPincode   = "pincode"
	StoreColumnState     = "state"
	StoreColumnLatitude  = "location_latitude"
	StoreColumnLongitude = "location_longitude"
	StoreColumnReviewPID = "google_review_pid"
	StoreColumnIsActive  = "is_active"
)

// StoreRepository defines the interface for store data access.
//
// Every method that addresses a single store is owner-scoped: the lookup predicate is
// (id, created_by) and a store owned by another user is reported as ErrRecordNotFound,
// exactly as if it did not exist. Do not add unscoped single-store accessors here; a
// separate "exists but not yours" path would leak which ids are in use.
type StoreRepository interface {
	// Create persists a new store. ErrDuplicateReviewPID if another active store holds
	// the same GoogleReviewPID.
	Create(ctx context.Context, store *models.Store) error
	// ListOwned returns the owner's stores matching every non-nil filter field.
	ListOwned(ctx context.Context, ownerID string, filter models.StoreFilter) ([]models.Store, error)
	// FindOwned returns the store with id if ownerID created it.
	FindOwned(ctx context.Context, ownerID, id string) (*models.Store, error)
	// UpdateOwned writes the named columns of store plus updated_at, scoped to
	// ownerID, and returns the resulting row. Columns not named are left as stored,
	// so concurrent updates of different fields do not overwrite each other.
	UpdateOwned(ctx context.Context, ownerID string, store *models.Store, columns []string) (*models.Store, error)
	// DeactivateOwned flips is_active to false, stamps updated_at with at and returns
	// the resulting row.
	DeactivateOwned(ctx context.Context, ownerID, id string, at time.Time) (*models.Store, error)
	// ReviewPIDTaken reports whether an active store other than excludeID holds pid.
	ReviewPIDTaken(ctx context.Context, pid, excludeID string) (bool, error)
}
