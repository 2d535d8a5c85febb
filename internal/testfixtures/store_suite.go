package testfixtures

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/persistence"
)

// StoreOpener returns an empty, ready to use store for one subtest.
type StoreOpener func(t *testing.T) persistence.BookingStore

// RunBookingStoreSuite exercises the behaviour every BookingStore backend
// must share.
func RunBookingStoreSuite(t *testing.T, open StoreOpener) {
	t.Helper()

	t.Run("insert assigns distinct ids", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		first, err := store.InsertBooking(ctx, NewBookingFixture(WithRoom("A101")).Persistence())
		require.NoError(t, err)
		second, err := store.InsertBooking(ctx, NewBookingFixture(WithRoom("A101"), WithTimes("10:00", "11:00")).Persistence())
		require.NoError(t, err)

		assert.Positive(t, first.ID)
		assert.Greater(t, second.ID, first.ID)
		assert.Equal(t, "A101", first.RoomName)
		assert.Equal(t, ReferenceDate, first.DateKey())
		assert.Equal(t, "09:00", first.StartTime)
		assert.Equal(t, "10:00", first.EndTime)
		assert.False(t, first.CreatedAt.IsZero())
	})

	t.Run("insert rejects incomplete rows", func(t *testing.T) {
		store := open(t)
		row := NewBookingFixture().Persistence()
		row.RoomName = ""

		_, err := store.InsertBooking(context.Background(), row)
		assert.ErrorIs(t, err, persistence.ErrConstraintViolation)
	})

	t.Run("get returns stored booking", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		inserted, err := store.InsertBooking(ctx, NewBookingFixture(WithPurpose("Đào tạo")).Persistence())
		require.NoError(t, err)

		got, err := store.GetBooking(ctx, inserted.ID)
		require.NoError(t, err)
		assert.Equal(t, inserted.ID, got.ID)
		assert.Equal(t, inserted.RoomName, got.RoomName)
		assert.Equal(t, "Đào tạo", got.Purpose)
		assert.True(t, inserted.Date.Equal(got.Date))
	})

	t.Run("get unknown id is not found", func(t *testing.T) {
		store := open(t)
		_, err := store.GetBooking(context.Background(), 4242)
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("find by room and date filters", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		mustInsert(t, store, NewBookingFixture(WithRoom("A101"), WithTimes("13:00", "14:00")))
		mustInsert(t, store, NewBookingFixture(WithRoom("A101"), WithTimes("08:00", "09:00")))
		mustInsert(t, store, NewBookingFixture(WithRoom("B202")))
		mustInsert(t, store, NewBookingFixture(WithRoom("A101"), WithDate("2024-05-21")))

		bookings, err := store.FindBookingsByRoomAndDate(ctx, "A101", Date(ReferenceDate))
		require.NoError(t, err)
		require.Len(t, bookings, 2)
		for _, b := range bookings {
			assert.Equal(t, "A101", b.RoomName)
			assert.Equal(t, ReferenceDate, b.DateKey())
		}
	})

	t.Run("find by date orders by start time then room", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		mustInsert(t, store, NewBookingFixture(WithRoom("B202"), WithTimes("10:00", "11:00")))
		mustInsert(t, store, NewBookingFixture(WithRoom("A101"), WithTimes("10:00", "11:00")))
		mustInsert(t, store, NewBookingFixture(WithRoom("C303"), WithTimes("08:30", "09:00")))
		mustInsert(t, store, NewBookingFixture(WithRoom("A101"), WithDate("2024-05-19")))

		bookings, err := store.FindBookingsByDate(ctx, Date(ReferenceDate))
		require.NoError(t, err)
		require.Len(t, bookings, 3)
		assert.Equal(t, []string{"C303", "A101", "B202"}, []string{bookings[0].RoomName, bookings[1].RoomName, bookings[2].RoomName})
	})

	t.Run("find by date without bookings is empty", func(t *testing.T) {
		store := open(t)
		bookings, err := store.FindBookingsByDate(context.Background(), Date("2030-01-01"))
		require.NoError(t, err)
		assert.NotNil(t, bookings)
		assert.Empty(t, bookings)
	})

	t.Run("delete reports existence", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		inserted := mustInsert(t, store, NewBookingFixture())

		deleted, err := store.DeleteBooking(ctx, inserted.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = store.DeleteBooking(ctx, inserted.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = store.GetBooking(ctx, inserted.ID)
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("within slot sees and commits writes", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		fixture := NewBookingFixture(WithRoom("A101"))
		mustInsert(t, store, fixture)

		var inserted persistence.Booking
		err := store.WithinSlot(ctx, "A101", Date(ReferenceDate), func(repo persistence.BookingRepository) error {
			existing, err := repo.FindBookingsByRoomAndDate(ctx, "A101", Date(ReferenceDate))
			if err != nil {
				return err
			}
			if len(existing) != 1 {
				return errors.New("expected the pre-existing booking inside the slot")
			}
			inserted, err = repo.InsertBooking(ctx, NewBookingFixture(WithRoom("A101"), WithTimes("10:00", "11:00")).Persistence())
			return err
		})
		require.NoError(t, err)

		got, err := store.GetBooking(ctx, inserted.ID)
		require.NoError(t, err)
		assert.Equal(t, "10:00", got.StartTime)
	})

	t.Run("within slot returns callback error", func(t *testing.T) {
		store := open(t)
		sentinel := errors.New("slot rejected")
		err := store.WithinSlot(context.Background(), "A101", Date(ReferenceDate), func(persistence.BookingRepository) error {
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("concurrent check then insert admits one booking", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		date := Date(ReferenceDate)

		const workers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				err := store.WithinSlot(ctx, "A101", date, func(repo persistence.BookingRepository) error {
					existing, err := repo.FindBookingsByRoomAndDate(ctx, "A101", date)
					if err != nil {
						return err
					}
					if len(existing) > 0 {
						return errSlotTaken
					}
					_, err = repo.InsertBooking(ctx, NewBookingFixture(WithRoom("A101")).Persistence())
					return err
				})
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
					return
				}
				if !errors.Is(err, errSlotTaken) {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, 1, successes)
		bookings, err := store.FindBookingsByRoomAndDate(ctx, "A101", date)
		require.NoError(t, err)
		assert.Len(t, bookings, 1)
	})

	t.Run("canceled context fails", func(t *testing.T) {
		store := open(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := store.InsertBooking(ctx, NewBookingFixture().Persistence())
		assert.Error(t, err)
	})
}

var errSlotTaken = errors.New("slot taken")

func mustInsert(t *testing.T, store persistence.BookingStore, fixture BookingFixture) persistence.Booking {
	t.Helper()
	booking, err := store.InsertBooking(context.Background(), fixture.Persistence())
	require.NoError(t, err)
	return booking
}
