package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storekode/internal/database"
	"storekode/internal/repositories"
	"storekode/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newGORMStoreService runs the service over the GORM repository on a private
// in-memory sqlite database.
func newGORMStoreService(t *testing.T, opts ...services.StoreOption) *services.StoreService {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open("sqlite", dsn, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return services.NewStoreService(repositories.NewGORMStoreRepository(db), nil, testLogger, opts...)
}

func TestStoreService_GORM_ReviewPIDPatch(t *testing.T) {
	ctx := context.Background()
	svc := newGORMStoreService(t)

	holderInput := validStoreInput()
	holderInput.GoogleReviewPID = ptr("ChIJ-gorm-holder")
	holder, err := svc.Create(ctx, ownerA, holderInput)
	require.NoError(t, err)

	store, err := svc.Create(ctx, ownerB, validStoreInput())
	require.NoError(t, err)

	patched, err := svc.Update(ctx, ownerB, store.ID, services.StorePatch{GoogleReviewPID: ptr("ChIJ-gorm-own")})
	require.NoError(t, err)
	require.NotNil(t, patched.GoogleReviewPID)
	assert.Equal(t, "ChIJ-gorm-own", *patched.GoogleReviewPID)

	reread, err := svc.GetByID(ctx, ownerB, store.ID)
	require.NoError(t, err)
	require.NotNil(t, reread.GoogleReviewPID, "the patched PID is stored")
	assert.Equal(t, "ChIJ-gorm-own", *reread.GoogleReviewPID)

	_, err = svc.Update(ctx, ownerB, store.ID, services.StorePatch{GoogleReviewPID: holder.GoogleReviewPID})
	assert.ErrorIs(t, err, services.ErrDuplicateReviewPID)

	_, err = svc.Create(ctx, ownerB, holderInput)
	assert.ErrorIs(t, err, services.ErrDuplicateReviewPID)

	cleared, err := svc.Update(ctx, ownerB, store.ID, services.StorePatch{GoogleReviewPID: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.GoogleReviewPID)

	reread, err = svc.GetByID(ctx, ownerB, store.ID)
	require.NoError(t, err)
	assert.Nil(t, reread.GoogleReviewPID, "clearing is stored too")
}

func TestStoreService_GORM_ReactivationConflict(t *testing.T) {
	ctx := context.Background()
	svc := newGORMStoreService(t)

	in := validStoreInput()
	in.GoogleReviewPID = ptr("ChIJ-gorm-shared")
	old, err := svc.Create(ctx, ownerA, in)
	require.NoError(t, err)
	_, err = svc.SoftDelete(ctx, ownerA, old.ID)
	require.NoError(t, err)

	_, err = svc.Create(ctx, ownerB, in)
	require.NoError(t, err)

	_, err = svc.Update(ctx, ownerA, old.ID, services.StorePatch{IsActive: ptr(true)})
	assert.ErrorIs(t, err, services.ErrDuplicateReviewPID)
}

func TestStoreService_SoftDeleteUsesClock(t *testing.T) {
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := &fixedClock{t: created}

	svcs := map[string]*services.StoreService{
		"memory": services.NewStoreService(repositories.NewMemoryStoreRepository(), nil, testLogger, services.WithStoreClock(clock.now)),
		"gorm":   newGORMStoreService(t, services.WithStoreClock(clock.now)),
	}
	for name, svc := range svcs {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock.t = created

			store, err := svc.Create(ctx, ownerA, validStoreInput())
			require.NoError(t, err)
			assert.True(t, created.Equal(store.CreatedAt))

			clock.advance(time.Hour)
			deleted, err := svc.SoftDelete(ctx, ownerA, store.ID)
			require.NoError(t, err)
			assert.True(t, created.Add(time.Hour).Equal(deleted.UpdatedAt), "got %s", deleted.UpdatedAt)

			clock.advance(time.Hour)
			again, err := svc.SoftDelete(ctx, ownerA, store.ID)
			require.NoError(t, err)
			assert.False(t, again.IsActive)
			assert.True(t, created.Add(2*time.Hour).Equal(again.UpdatedAt), "repeat delete refreshes updatedAt")
		})
	}
}

func TestStoreService_GORM_PatchesOfDifferentFields(t *testing.T) {
	ctx := context.Background()
	svc := newGORMStoreService(t)

	store, err := svc.Create(ctx, ownerA, validStoreInput())
	require.NoError(t, err)

	_, err = svc.Update(ctx, ownerA, store.ID, services.StorePatch{City: ptr("Mumbai")})
	require.NoError(t, err)
	_, err = svc.Update(ctx, ownerA, store.ID, services.StorePatch{StoreName: ptr("Renamed")})
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, ownerA, store.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", got.City)
	assert.Equal(t, "Renamed", got.StoreName)
}
