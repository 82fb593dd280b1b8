package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storekode/internal/models"
	"storekode/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// StoreInput holds every field a store is created with. It is also the rule set a
// patched store must still satisfy.
type StoreInput struct {
	StoreName       string   `json:"storeName" validate:"required,max=100"`
	Address         string   `json:"address" validate:"required,max=255"`
	City            string   `json:"city" validate:"required,max=100"`
	Pincode         string   `json:"pincode" validate:"required,pincode"`
	State           string   `json:"state" validate:"required,max=100"`
	Latitude        *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude       *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	GoogleReviewPID *string  `json:"googleReviewPid" validate:"omitempty,max=255"`
}

func (in *StoreInput) normalize() {
	in.StoreName = strings.TrimSpace(in.StoreName)
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)
	in.Pincode = strings.TrimSpace(in.Pincode)
	in.State = strings.TrimSpace(in.State)
	in.GoogleReviewPID = trimOptional(in.GoogleReviewPID)
}

// StorePatch is a partial update. Nil fields are left untouched. Latitude and
// Longitude must be supplied together; an empty GoogleReviewPID clears it.
type StorePatch struct {
	StoreName       *string  `json:"storeName"`
	Address         *string  `json:"address"`
	City            *string  `json:"city"`
	Pincode         *string  `json:"pincode"`
	State           *string  `json:"state"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	GoogleReviewPID *string  `json:"googleReviewPid"`
	IsActive        *bool    `json:"isActive"`
}

// StoreService handles business logic related to stores. Every operation is scoped
// to the caller's user id.
type StoreService struct {
	repo      repositories.StoreRepository
	publisher EventPublisher
	logger    *slog.Logger
	validate  *validator.Validate
	now       func() time.Time
}

// StoreOption configures a StoreService.
type StoreOption func(*StoreService)

// WithStoreClock replaces time.Now for createdAt and updatedAt stamps.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *StoreService) { s.now = now }
}

// NewStoreService creates a new StoreService. publisher may be nil.
func NewStoreService(repo repositories.StoreRepository, publisher EventPublisher, logger *slog.Logger, opts ...StoreOption) *StoreService {
	s := &StoreService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With("component", "store_service"),
		validate:  newValidator(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates in and persists a new active store owned by ownerID.
func (s *StoreService) Create(ctx context.Context, ownerID string, in StoreInput) (*models.Store, error) {
	in.normalize()
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	if in.GoogleReviewPID != nil {
		if err := s.ensureReviewPIDFree(ctx, *in.GoogleReviewPID, ""); err != nil {
			return nil, err
		}
	}

	now := s.now()
	store := &models.Store{
		ID:              uuid.NewString(),
		StoreName:       in.StoreName,
		Address:         in.Address,
		City:            in.City,
		Pincode:         in.Pincode,
		State:           in.State,
		Location:        models.Location{Latitude: *in.Latitude, Longitude: *in.Longitude},
		GoogleReviewPID: in.GoogleReviewPID,
		CreatedBy:       ownerID,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, store); err != nil {
		return nil, translateRepoError(err)
	}

	s.publish(ctx, EventStoreCreated, store)
	return store, nil
}

// List returns ownerID's stores matching filter.
func (s *StoreService) List(ctx context.Context, ownerID string, filter models.StoreFilter) ([]models.Store, error) {
	stores, err := s.repo.ListOwned(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return stores, nil
}

// GetByID returns the store if ownerID owns it.
func (s *StoreService) GetByID(ctx context.Context, ownerID, id string) (*models.Store, error) {
	id, err := normalizeStoreID(id)
	if err != nil {
		return nil, err
	}
	store, err := s.repo.FindOwned(ctx, ownerID, id)
	if err != nil {
		return nil, translateRepoError(err)
	}
	return store, nil
}

// Update applies patch to an owned store. The patched store must still pass every
// create-time rule, and a changed review PID must be free among active stores.
func (s *StoreService) Update(ctx context.Context, ownerID, id string, patch StorePatch) (*models.Store, error) {
	id, err := normalizeStoreID(id)
	if err != nil {
		return nil, err
	}
	if (patch.Latitude == nil) != (patch.Longitude == nil) {
		return nil, &ValidationError{Fields: map[string]string{
			"location": "latitude and longitude must be provided together",
		}}
	}

	current, err := s.repo.FindOwned(ctx, ownerID, id)
	if err != nil {
		return nil, translateRepoError(err)
	}

	in, active := mergePatch(current, patch)
	in.normalize()
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	if in.GoogleReviewPID != nil && active && (patch.GoogleReviewPID != nil || patch.IsActive != nil) {
		if err := s.ensureReviewPIDFree(ctx, *in.GoogleReviewPID, id); err != nil {
			return nil, err
		}
	}

	updated := *current
	updated.StoreName = in.StoreName
	updated.Address = in.Address
	updated.City = in.City
	updated.Pincode = in.Pincode
	updated.State = in.State
	updated.Location = models.Location{Latitude: *in.Latitude, Longitude: *in.Longitude}
	updated.GoogleReviewPID = in.GoogleReviewPID
	updated.IsActive = active
	updated.UpdatedAt = s.now()

	// Only the patched columns are written.
	store, err := s.repo.UpdateOwned(ctx, ownerID, &updated, patch.columns())
	if err != nil {
		return nil, translateRepoError(err)
	}

	s.publish(ctx, EventStoreUpdated, store)
	return store, nil
}

// SoftDelete marks an owned store inactive. Deleting an inactive store succeeds and
// leaves it inactive.
func (s *StoreService) SoftDelete(ctx context.Context, ownerID, id string) (*models.Store, error) {
	id, err := normalizeStoreID(id)
	if err != nil {
		return nil, err
	}
	store, err := s.repo.DeactivateOwned(ctx, ownerID, id, s.now())
	if err != nil {
		return nil, translateRepoError(err)
	}

	s.publish(ctx, EventStoreDeactivated, store)
	return store, nil
}

func (s *StoreService) ensureReviewPIDFree(ctx context.Context, pid, excludeID string) error {
	taken, err := s.repo.ReviewPIDTaken(ctx, pid, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateReviewPID
	}
	return nil
}

func (s *StoreService) publish(ctx context.Context, eventType string, store *models.Store) {
	publishEvent(ctx, s.publisher, s.logger, Event{
		Type:       eventType,
		UserID:     store.CreatedBy,
		StoreID:    store.ID,
		OccurredAt: store.UpdatedAt,
	})
}

// columns lists the store columns patch touches.
func (p StorePatch) columns() []string {
	var cols []string
	add := func(set bool, names ...string) {
		if set {
			cols = append(cols, names...)
		}
	}
	add(p.StoreName != nil, repositories.StoreColumnName)
	add(p.Address != nil, repositories.StoreColumnAddress)
	add(p.City != nil, repositories.StoreColumnCity)
	add(p.Pincode != nil, repositories.StoreColumnPincode)
	add(p.State != nil, repositories.StoreColumnState)
	add(p.Latitude != nil && p.Longitude != nil, repositories.StoreColumnLatitude, repositories.StoreColumnLongitude)
	add(p.GoogleReviewPID != nil, repositories.StoreColumnReviewPID)
	add(p.IsActive != nil, repositories.StoreColumnIsActive)
	return cols
}

// mergePatch overlays patch on current and returns the result in input form along
// with the resulting active flag.
func mergePatch(current *models.Store, patch StorePatch) (StoreInput, bool) {
	in := StoreInput{
		StoreName:       current.StoreName,
		Address:         current.Address,
		City:            current.City,
		Pincode:         current.Pincode,
		State:           current.State,
		Latitude:        &current.Location.Latitude,
		Longitude:       &current.Location.Longitude,
		GoogleReviewPID: current.GoogleReviewPID,
	}
	if patch.StoreName != nil {
		in.StoreName = *patch.StoreName
	}
	if patch.Address != nil {
		in.Address = *patch.Address
	}
	if patch.City != nil {
		in.City = *patch.City
	}
	if patch.Pincode != nil {
		in.Pincode = *patch.Pincode
	}
	if patch.State != nil {
		in.State = *patch.State
	}
	if patch.Latitude != nil && patch.Longitude != nil {
		in.Latitude, in.Longitude = patch.Latitude, patch.Longitude
	}
	if patch.GoogleReviewPID != nil {
		in.GoogleReviewPID = patch.GoogleReviewPID
	}

	active := current.IsActive
	if patch.IsActive != nil {
		active = *patch.IsActive
	}
	return in, active
}

// normalizeStoreID rejects ids that are not UUIDs and returns the canonical form.
func normalizeStoreID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidID
	}
	return parsed.String(), nil
}

func translateRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrRecordNotFound):
		return ErrStoreNotFound
	case errors.Is(err, repositories.ErrDuplicateReviewPID):
		return ErrDuplicateReviewPID
	default:
		return err
	}
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
