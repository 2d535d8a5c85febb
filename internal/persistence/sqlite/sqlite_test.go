package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/sqlite"
	"github.com/example/room-booking/internal/persistence/sqlite/migration"
	"github.com/example/room-booking/internal/testfixtures"
)

func TestStorage_BookingStoreSuite(t *testing.T) {
	testfixtures.RunBookingStoreSuite(t, func(t *testing.T) persistence.BookingStore {
		return testfixtures.NewSQLiteStore(t)
	})
}

func TestStorage_WithinSlotRollsBackOnError(t *testing.T) {
	store := testfixtures.NewSQLiteStore(t)
	ctx := context.Background()
	date := testfixtures.Date(testfixtures.ReferenceDate)
	rejected := errors.New("rejected after insert")

	err := store.WithinSlot(ctx, "A101", date, func(repo persistence.BookingRepository) error {
		if _, err := repo.InsertBooking(ctx, testfixtures.NewBookingFixture(testfixtures.WithRoom("A101")).Persistence()); err != nil {
			return err
		}
		return rejected
	})
	require.ErrorIs(t, err, rejected)

	bookings, err := store.FindBookingsByRoomAndDate(ctx, "A101", date)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestStorage_MigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "booking.db")
	ctx := context.Background()

	first, err := sqlite.Open(ctx, migration.TempFileTestSQLiteConfig(path), nil)
	require.NoError(t, err)
	require.NoError(t, first.Migrate(ctx))
	inserted, err := first.InsertBooking(ctx, testfixtures.NewBookingFixture().Persistence())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := sqlite.Open(ctx, migration.TempFileTestSQLiteConfig(path), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })
	require.NoError(t, second.Migrate(ctx))

	got, err := second.GetBooking(ctx, inserted.ID)
	require.NoError(t, err)
	assert.Equal(t, inserted.RoomName, got.RoomName)
	assert.True(t, inserted.CreatedAt.Equal(got.CreatedAt))
}

func TestStorage_IDsAreNotReused(t *testing.T) {
	store := testfixtures.NewSQLiteStore(t)
	ctx := context.Background()

	first, err := store.InsertBooking(ctx, testfixtures.NewBookingFixture().Persistence())
	require.NoError(t, err)
	deleted, err := store.DeleteBooking(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	second, err := store.InsertBooking(ctx, testfixtures.NewBookingFixture().Persistence())
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
}
