package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
	"github.com/example/room-booking/internal/testfixtures"
)

func newService(t *testing.T) (*application.BookingService, *testfixtures.Clock) {
	t.Helper()
	clock := testfixtures.NewClock(time.Time{})
	service, _ := testfixtures.NewServiceFactory(testfixtures.WithClock(clock)).NewMemoryBookingService()
	return service, clock
}

func TestBookingService_CreateBooking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	service, clock := newService(t)

	fixture := testfixtures.NewBookingFixture(testfixtures.WithPurpose("Họp dự án"))
	booking, err := service.CreateBooking(ctx, fixture.Input())
	require.NoError(t, err)

	assert.Positive(t, booking.ID)
	assert.Equal(t, fixture.RoomName, booking.RoomName)
	assert.Equal(t, testfixtures.Date(testfixtures.ReferenceDate), booking.Date)
	assert.Equal(t, scheduler.MustParseClock("09:00"), booking.StartTime)
	assert.Equal(t, scheduler.MustParseClock("10:00"), booking.EndTime)
	assert.Equal(t, "Họp dự án", booking.Purpose)
	assert.True(t, clock.Now().Equal(booking.CreatedAt))

	stored, err := service.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, stored.ID)
	assert.Equal(t, booking.RoomName, stored.RoomName)
}

func TestBookingService_CreateBookingKeepsTextVerbatim(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	service, _ := newService(t)

	fixture := testfixtures.NewBookingFixture(
		testfixtures.WithRoom(" Phòng A "),
		testfixtures.WithPurpose("  Họp nhóm\n"),
	)
	created, err := service.CreateBooking(ctx, fixture.Input())
	require.NoError(t, err)
	assert.Equal(t, " Phòng A ", created.RoomName)
	assert.Equal(t, "  Họp nhóm\n", created.Purpose)

	stored, err := service.GetBooking(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, " Phòng A ", stored.RoomName)
	assert.Equal(t, "  Họp nhóm\n", stored.Purpose)

	summaries, err := service.ListBookingsForDate(ctx, fixture.Date)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "  Họp nhóm\n", summaries[0].Purpose)
}

func TestBookingService_CreateBookingConflicts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	service, _ := newService(t)
	room := testfixtures.WithRoom("Phòng xung đột")

	_, err := service.CreateBooking(ctx, testfixtures.NewBookingFixture(room, testfixtures.WithTimes("09:00", "10:00")).Input())
	require.NoError(t, err)

	tests := []struct {
		name     string
		opts     []testfixtures.BookingOption
		conflict bool
	}{
		{name: "partial overlap at start", opts: []testfixtures.BookingOption{room, testfixtures.WithTimes("08:30", "09:30")}, conflict: true},
		{name: "partial overlap at end", opts: []testfixtures.BookingOption{room, testfixtures.WithTimes("09:59", "11:00")}, conflict: true},
		{name: "contained", opts: []testfixtures.BookingOption{room, testfixtures.WithTimes("09:15", "09:45")}, conflict: true},
		{name: "containing", opts: []testfixtures.BookingOption{room, testfixtures.WithTimes("08:00", "11:00")}, conflict: true},
		{name: "identical", opts: []testfixtures.BookingOption{room, testfixtures.WithTimes("09:00", "10:00")}, conflict: true},
		{name: "touching after", opts: []testfixtures.BookingOption{room, testfixtures.WithTimes("10:00", "11:00")}},
		{name: "touching before", opts: []testfixtures.BookingOption{room, testfixtures.WithTimes("08:00", "09:00")}},
		{name: "other room", opts: []testfixtures.BookingOption{testfixtures.WithTimes("09:00", "10:00")}},
		{name: "other date", opts: []testfixtures.BookingOption{room, testfixtures.WithDate("2024-05-21")}},
	}

	// Subtests run sequentially: non-conflicting ones add bookings that later
	// cases do not overlap.
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fixture := testfixtures.NewBookingFixture(tc.opts...)
			before, err := service.ListBookingsForDate(ctx, fixture.Date)
			require.NoError(t, err)

			_, err = service.CreateBooking(ctx, fixture.Input())
			if tc.conflict {
				require.ErrorIs(t, err, application.ErrTimeSlotConflict)
				assert.Equal(t, "conflict", application.ErrorKind(err))

				after, listErr := service.ListBookingsForDate(ctx, fixture.Date)
				require.NoError(t, listErr)
				assert.Len(t, after, len(before), "rejected booking must not be stored")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestBookingService_CreateBookingRejectsInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	service, _ := newService(t)

	tests := []struct {
		name string
		opts []testfixtures.BookingOption
		want error
	}{
		{name: "malformed date", opts: []testfixtures.BookingOption{testfixtures.WithDate("20/05/2024")}, want: application.ErrInvalidDateFormat},
		{name: "empty date", opts: []testfixtures.BookingOption{testfixtures.WithDate("")}, want: application.ErrInvalidDateFormat},
		{name: "impossible date", opts: []testfixtures.BookingOption{testfixtures.WithDate("2023-02-29")}, want: application.ErrInvalidDateFormat},
		{name: "malformed start", opts: []testfixtures.BookingOption{testfixtures.WithTimes("9:00", "10:00")}, want: application.ErrInvalidTimeFormat},
		{name: "malformed end", opts: []testfixtures.BookingOption{testfixtures.WithTimes("09:00", "24:00")}, want: application.ErrInvalidTimeFormat},
		{name: "end equals start", opts: []testfixtures.BookingOption{testfixtures.WithTimes("10:00", "10:00")}, want: application.ErrInvalidTimeRange},
		{name: "end before start", opts: []testfixtures.BookingOption{testfixtures.WithTimes("11:00", "10:00")}, want: application.ErrInvalidTimeRange},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := service.CreateBooking(ctx, testfixtures.NewBookingFixture(tc.opts...).Input())
			require.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("date errors win over blank room name", func(t *testing.T) {
		t.Parallel()
		_, err := service.CreateBooking(ctx, testfixtures.NewBookingFixture(
			testfixtures.WithRoom(""), testfixtures.WithDate("2024-13-01"),
		).Input())
		require.ErrorIs(t, err, application.ErrInvalidDateFormat)
		var vErr *application.ValidationError
		assert.False(t, errors.As(err, &vErr))
	})

	t.Run("time errors win over blank room name", func(t *testing.T) {
		t.Parallel()
		_, err := service.CreateBooking(ctx, testfixtures.NewBookingFixture(
			testfixtures.WithRoom(""), testfixtures.WithTimes("9h", "10:00"),
		).Input())
		require.ErrorIs(t, err, application.ErrInvalidTimeFormat)
	})

	t.Run("blank room name", func(t *testing.T) {
		t.Parallel()
		_, err := service.CreateBooking(ctx, testfixtures.NewBookingFixture(testfixtures.WithRoom("  ")).Input())
		var vErr *application.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, []string{"room_name"}, vErr.Fields())
	})
}

func TestBookingService_ListBookingsForDate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	service, _ := newService(t)

	empty, err := service.ListBookingsForDate(ctx, "2030-01-01")
	require.NoError(t, err)
	require.NotNil(t, empty)
	assert.Empty(t, empty)

	late := testfixtures.NewBookingFixture(testfixtures.WithTimes("14:00", "15:00"))
	early := testfixtures.NewBookingFixture(testfixtures.WithTimes("08:00", "09:00"))
	otherDay := testfixtures.NewBookingFixture(testfixtures.WithDate("2024-05-21"))
	for _, f := range []testfixtures.BookingFixture{late, early, otherDay} {
		_, err := service.CreateBooking(ctx, f.Input())
		require.NoError(t, err)
	}

	summaries, err := service.ListBookingsForDate(ctx, testfixtures.ReferenceDate)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, early.RoomName, summaries[0].RoomName)
	assert.Equal(t, late.RoomName, summaries[1].RoomName)

	_, err = service.ListBookingsForDate(ctx, "2024-5-20")
	require.ErrorIs(t, err, application.ErrInvalidDateFormat)
}

func TestBookingService_GetAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	service, _ := newService(t)

	_, err := service.GetBooking(ctx, 999)
	require.ErrorIs(t, err, application.ErrNotFound)
	require.ErrorIs(t, service.DeleteBooking(ctx, 999), application.ErrNotFound)

	fixture := testfixtures.NewBookingFixture()
	booking, err := service.CreateBooking(ctx, fixture.Input())
	require.NoError(t, err)

	require.NoError(t, service.DeleteBooking(ctx, booking.ID))
	_, err = service.GetBooking(ctx, booking.ID)
	require.ErrorIs(t, err, application.ErrNotFound)
	require.ErrorIs(t, service.DeleteBooking(ctx, booking.ID), application.ErrNotFound)

	rebooked, err := service.CreateBooking(ctx, fixture.Input())
	require.NoError(t, err)
	assert.Greater(t, rebooked.ID, booking.ID)
}

func TestBookingService_ConcurrentCreateSameSlot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	service, _ := newService(t)
	fixture := testfixtures.NewBookingFixture()

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.CreateBooking(ctx, fixture.Input())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, application.ErrTimeSlotConflict)
	}
	assert.Equal(t, 1, succeeded)

	stored, err := service.ListBookingsForDate(ctx, fixture.Date)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, fixture.RoomName, stored[0].RoomName)
}

func TestBookingService_CanceledContext(t *testing.T) {
	t.Parallel()
	service, _ := newService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.CreateBooking(ctx, testfixtures.NewBookingFixture().Input())
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, application.ErrStorage)
}

func TestBookingService_NotConfigured(t *testing.T) {
	t.Parallel()
	var service *application.BookingService

	_, err := service.CreateBooking(context.Background(), application.CreateBookingInput{})
	require.Error(t, err)
	require.Error(t, service.DeleteBooking(context.Background(), 1))
}

// stubStore fails on demand. Unset hooks behave like an empty store.
type stubStore struct {
	findErr   error
	insertErr error
	getErr    error
	deleted   bool
	deleteErr error
}

func (s *stubStore) InsertBooking(_ context.Context, b application.Booking) (application.Booking, error) {
	if s.insertErr != nil {
		return application.Booking{}, s.insertErr
	}
	b.ID = 1
	return b, nil
}

func (s *stubStore) FindBookingsByRoomAndDate(context.Context, string, time.Time) ([]application.Booking, error) {
	return nil, s.findErr
}

func (s *stubStore) FindBookingsByDate(context.Context, time.Time) ([]application.Booking, error) {
	return nil, s.findErr
}

func (s *stubStore) GetBooking(_ context.Context, id int64) (application.Booking, error) {
	if s.getErr != nil {
		return application.Booking{}, s.getErr
	}
	return application.Booking{ID: id}, nil
}

func (s *stubStore) DeleteBooking(context.Context, int64) (bool, error) {
	return s.deleted, s.deleteErr
}

func (s *stubStore) WithinSlot(_ context.Context, _ string, _ time.Time, fn func(application.BookingRepository) error) error {
	return fn(s)
}

func TestBookingService_StorageFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("disk I/O error")
	input := testfixtures.NewBookingFixture().Input()

	t.Run("find during create", func(t *testing.T) {
		t.Parallel()
		service := application.NewBookingService(&stubStore{findErr: boom}, nil)
		_, err := service.CreateBooking(ctx, input)
		require.ErrorIs(t, err, application.ErrStorage)
		require.ErrorIs(t, err, boom)
		assert.Equal(t, "storage", application.ErrorKind(err))
	})

	t.Run("insert during create", func(t *testing.T) {
		t.Parallel()
		service := application.NewBookingService(&stubStore{insertErr: persistence.ErrLocked}, nil)
		_, err := service.CreateBooking(ctx, input)
		require.ErrorIs(t, err, application.ErrStorage)
		require.ErrorIs(t, err, persistence.ErrLocked)
	})

	t.Run("list", func(t *testing.T) {
		t.Parallel()
		service := application.NewBookingService(&stubStore{findErr: boom}, nil)
		_, err := service.ListBookingsForDate(ctx, testfixtures.ReferenceDate)
		require.ErrorIs(t, err, application.ErrStorage)
	})

	t.Run("get maps persistence not found", func(t *testing.T) {
		t.Parallel()
		service := application.NewBookingService(&stubStore{getErr: persistence.ErrNotFound}, nil)
		_, err := service.GetBooking(ctx, 7)
		require.ErrorIs(t, err, application.ErrNotFound)
	})

	t.Run("delete vanishing between lookup and removal", func(t *testing.T) {
		t.Parallel()
		service := application.NewBookingService(&stubStore{deleted: false}, nil)
		require.ErrorIs(t, service.DeleteBooking(ctx, 7), application.ErrNotFound)
	})

	t.Run("delete failure", func(t *testing.T) {
		t.Parallel()
		service := application.NewBookingService(&stubStore{deleteErr: boom}, nil)
		err := service.DeleteBooking(ctx, 7)
		require.ErrorIs(t, err, application.ErrStorage)
		assert.NotErrorIs(t, err, application.ErrNotFound)
	})
}
