package postgresql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_database "github.com/quebracell/backend/internal/db/mocks"
	"github.com/quebracell/backend/internal/repository"
	"github.com/quebracell/backend/internal/repository/postgresql"
)

func testRow() *repository.ListingRow {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return &repository.ListingRow{
		ID:           "listing-123",
		OwnerID:      "user-456",
		OwnerEmail:   "owner@example.com",
		Model:        "iPhone 11",
		Defect:       "does not charge",
		Neighborhood: "Bela Vista",
		WaterDamage:  true,
		SignsOfLife:  false,
		PhotoFront:   "/photos/devices/user-456/1_front.jpg",
		PhotoBack:    "/photos/devices/user-456/1_back.jpg",
		Status:       "awaiting_proposal",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestListingRepo_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewListingRepo(mockDB)

		row := testRow()

		mockDB.EXPECT().Exec(
			gomock.Any(),
			gomock.Any(),
			gomock.Eq(row.ID),
			gomock.Eq(row.OwnerID),
			gomock.Eq(row.OwnerEmail),
			gomock.Eq(row.Model),
			gomock.Eq(row.Defect),
			gomock.Eq(row.Neighborhood),
			gomock.Eq(row.WaterDamage),
			gomock.Eq(row.SignsOfLife),
			gomock.Eq(row.PhotoFront),
			gomock.Eq(row.PhotoBack),
			gomock.Eq(row.Status),
			gomock.Nil(),
			gomock.Nil(),
			gomock.Nil(),
			gomock.Eq(row.CreatedAt),
			gomock.Eq(row.UpdatedAt),
		).Return(pgconn.CommandTag("INSERT 0 1"), nil)

		err := repo.Create(ctx, row)
		assert.NoError(t, err)
	})

	t.Run("database error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewListingRepo(mockDB)

		mockDB.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
				gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
				gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("connection refused"))

		err := repo.Create(ctx, testRow())
		assert.Error(t, err)
	})
}

func TestListingRepo_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewListingRepo(mockDB)

		mockDB.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("listing-123")).
			DoAndReturn(func(_ context.Context, dest interface{}, _ string, _ ...interface{}) error {
				*dest.(*repository.ListingRow) = *testRow()
				return nil
			})

		row, err := repo.GetByID(ctx, "listing-123")
		require.NoError(t, err)
		assert.Equal(t, "listing-123", row.ID)
		assert.Equal(t, "awaiting_proposal", row.Status)
	})

	t.Run("not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewListingRepo(mockDB)

		mockDB.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("nonexistent")).
			Return(pgx.ErrNoRows)

		_, err := repo.GetByID(ctx, "nonexistent")
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})
}

func TestListingRepo_UpdateFields(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewListingRepo(mockDB)

		mockDB.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Eq("listing-123"), gomock.Eq("proposal_sent")).
			Return(pgconn.CommandTag("UPDATE 1"), nil)

		err := repo.UpdateFields(ctx, "listing-123", map[string]interface{}{
			"status": "proposal_sent",
		})
		assert.NoError(t, err)
	})

	t.Run("no columns is a no-op", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewListingRepo(mockDB)

		err := repo.UpdateFields(ctx, "listing-123", nil)
		assert.NoError(t, err)
	})

	t.Run("row missing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewListingRepo(mockDB)

		mockDB.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Eq("nonexistent"), gomock.Any()).
			Return(pgconn.CommandTag("UPDATE 0"), nil)

		err := repo.UpdateFields(ctx, "nonexistent", map[string]interface{}{
			"status": "proposal_sent",
		})
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})
}

func TestListingRepo_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewListingRepo(mockDB)

		mockDB.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Eq("listing-123")).
			Return(pgconn.CommandTag("DELETE 1"), nil)

		assert.NoError(t, repo.Delete(ctx, "listing-123"))
	})

	t.Run("row missing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewListingRepo(mockDB)

		mockDB.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Eq("nonexistent")).
			Return(pgconn.CommandTag("DELETE 0"), nil)

		assert.ErrorIs(t, repo.Delete(ctx, "nonexistent"), repository.ErrObjectNotFound)
	})
}

func TestListingRepo_GetAll(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	repo := postgresql.NewListingRepo(mockDB)

	mockDB.EXPECT().
		Select(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, dest interface{}, _ string, _ ...interface{}) error {
			*dest.(*[]*repository.ListingRow) = []*repository.ListingRow{testRow()}
			return nil
		})

	rows, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "listing-123", rows[0].ID)
}

func TestListingRepo_GetByOwnerID(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	repo := postgresql.NewListingRepo(mockDB)

	mockDB.EXPECT().
		Select(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("user-456")).
		DoAndReturn(func(_ context.Context, dest interface{}, _ string, _ ...interface{}) error {
			*dest.(*[]*repository.ListingRow) = []*repository.ListingRow{testRow()}
			return nil
		})

	rows, err := repo.GetByOwnerID(ctx, "user-456")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "user-456", rows[0].OwnerID)
}
