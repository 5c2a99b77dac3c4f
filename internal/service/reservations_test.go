package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"libseat/internal/events"
	"libseat/internal/models"
)

var testNow = time.Date(2025, 6, 2, 8, 0, 0, 0, time.Local) // Monday 08:00

func newReservationFixture(t *testing.T) (*ReservationService, *MockBackend, *recordingBus) {
	t.Helper()
	backend := new(MockBackend)
	sessions := newFakeSessions()
	bus := &recordingBus{}
	logger := zerolog.Nop()

	ctx := context.Background()
	require.NoError(t, sessions.Set(ctx, testChatID, models.KeyUserID, "7"))
	require.NoError(t, sessions.Set(ctx, testChatID, models.KeyStudentID, "CS2021001"))

	auth := NewAuthService(backend, sessions, bus, &logger)
	svc := NewReservationService(backend, auth, sessions, bus, models.DefaultRoomID, ReservationLimits{}, &logger)
	svc.now = func() time.Time { return testNow }
	return svc, backend, bus
}

func TestBuildSlot(t *testing.T) {
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)

	t.Run("SameDay", func(t *testing.T) {
		start, end := BuildSlot(date, 14, 0, 2)
		assert.Equal(t, 14, start.Hour())
		assert.Equal(t, 16, end.Hour())
		assert.Equal(t, start.Day(), end.Day())
	})

	t.Run("MidnightRollover", func(t *testing.T) {
		start, end := BuildSlot(date, 23, 0, 2)
		assert.Equal(t, 23, start.Hour())
		assert.Equal(t, 1, end.Hour())
		assert.Equal(t, start.Day()+1, end.Day())
		assert.Equal(t, 2*time.Hour, end.Sub(start))
	})
}

func TestReservationService_Create(t *testing.T) {
	start := testNow.Add(2 * time.Hour)
	end := start.Add(2 * time.Hour)

	t.Run("Success", func(t *testing.T) {
		svc, backend, bus := newReservationFixture(t)

		var got models.CreateReservationRequest
		backend.On("CreateReservation", mock.Anything, mock.MatchedBy(func(req models.CreateReservationRequest) bool {
			got = req
			return true
		})).Return(&models.Reservation{ID: 42, RoomID: models.DefaultRoomID, DeskID: "12-3", Status: models.StatusPending}, nil)

		created, err := svc.Create(context.Background(), testChatID, 12, 3, start, end)
		require.NoError(t, err)
		assert.Equal(t, int64(42), created.ID)

		assert.Equal(t, int64(7), got.UserID)
		assert.Equal(t, models.DefaultRoomID, got.RoomID)
		assert.Equal(t, "12-3", got.DeskID)
		assert.True(t, got.StartTime.Equal(start))
		assert.True(t, got.EndTime.Equal(end))

		assert.Contains(t, bus.published(), events.EventReservationCreated)
	})

	t.Run("StartInPast", func(t *testing.T) {
		svc, _, _ := newReservationFixture(t)
		_, err := svc.Create(context.Background(), testChatID, 12, 3, testNow.Add(-time.Hour), testNow.Add(time.Hour))
		assert.ErrorIs(t, err, ErrStartInPast)
	})

	t.Run("DurationTooLong", func(t *testing.T) {
		svc, _, _ := newReservationFixture(t)
		_, err := svc.Create(context.Background(), testChatID, 12, 3, start, start.Add(4*time.Hour))
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("DurationTooShort", func(t *testing.T) {
		svc, _, _ := newReservationFixture(t)
		_, err := svc.Create(context.Background(), testChatID, 12, 3, start, start.Add(30*time.Minute))
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("TooFarAhead", func(t *testing.T) {
		svc, _, _ := newReservationFixture(t)
		farStart := testNow.Add(time.Duration(models.MaxAdvanceHours+1) * time.Hour)
		_, err := svc.Create(context.Background(), testChatID, 12, 3, farStart, farStart.Add(2*time.Hour))
		assert.ErrorIs(t, err, ErrTooFarAhead)
	})

	t.Run("NotLoggedIn", func(t *testing.T) {
		backend := new(MockBackend)
		bus := &recordingBus{}
		logger := zerolog.Nop()
		sessions := newFakeSessions()
		auth := NewAuthService(backend, sessions, bus, &logger)
		svc := NewReservationService(backend, auth, sessions, bus, models.DefaultRoomID, ReservationLimits{}, &logger)
		svc.now = func() time.Time { return testNow }

		_, err := svc.Create(context.Background(), testChatID, 12, 3, start, end)
		assert.ErrorIs(t, err, ErrNotLoggedIn)
	})
}

// Configured limits override the stock ones; both slots here would pass
// under the defaults.
func TestReservationService_Create_ConfiguredLimits(t *testing.T) {
	backend := new(MockBackend)
	sessions := newFakeSessions()
	bus := &recordingBus{}
	logger := zerolog.Nop()

	ctx := context.Background()
	require.NoError(t, sessions.Set(ctx, testChatID, models.KeyUserID, "7"))

	auth := NewAuthService(backend, sessions, bus, &logger)
	svc := NewReservationService(backend, auth, sessions, bus, models.DefaultRoomID, ReservationLimits{
		MaxDuration: 2 * time.Hour,
		MaxAdvance:  12 * time.Hour,
	}, &logger)
	svc.now = func() time.Time { return testNow }

	t.Run("DurationAboveConfiguredCap", func(t *testing.T) {
		start := testNow.Add(2 * time.Hour)
		_, err := svc.Create(ctx, testChatID, 12, 3, start, start.Add(3*time.Hour))
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("StartBeyondConfiguredAdvance", func(t *testing.T) {
		start := testNow.Add(13 * time.Hour)
		_, err := svc.Create(ctx, testChatID, 12, 3, start, start.Add(2*time.Hour))
		assert.ErrorIs(t, err, ErrTooFarAhead)
	})
}

func TestReservationService_Grouped(t *testing.T) {
	svc, backend, _ := newReservationFixture(t)

	res := func(id int64, status string, start time.Time, hours int) models.Reservation {
		return models.Reservation{
			ID:        id,
			Status:    status,
			StartTime: models.NewLocalTime(start),
			EndTime:   models.NewLocalTime(start.Add(time.Duration(hours) * time.Hour)),
		}
	}

	backend.On("UserReservations", mock.Anything, int64(7)).Return([]models.Reservation{
		res(1, models.StatusActive, testNow.Add(-time.Hour), 2),     // covers now
		res(2, models.StatusPending, testNow.Add(5*time.Hour), 2),   // upcoming, later
		res(3, models.StatusPending, testNow.Add(2*time.Hour), 2),   // upcoming, sooner
		res(4, models.StatusCompleted, testNow.Add(-48*time.Hour), 2),
		res(5, models.StatusCancelled, testNow.Add(time.Hour), 2),   // terminal status beats times
		res(6, models.StatusPending, testNow.Add(-24*time.Hour), 2), // ended in the past
	}, nil)

	groups, err := svc.Grouped(context.Background(), testChatID)
	require.NoError(t, err)

	require.Len(t, groups.Active, 1)
	assert.Equal(t, int64(1), groups.Active[0].ID)

	// Upcoming soonest first.
	require.Len(t, groups.Upcoming, 2)
	assert.Equal(t, int64(3), groups.Upcoming[0].ID)
	assert.Equal(t, int64(2), groups.Upcoming[1].ID)

	// Past newest first.
	require.Len(t, groups.Past, 3)
	assert.Equal(t, int64(5), groups.Past[0].ID)
	assert.Equal(t, int64(6), groups.Past[1].ID)
	assert.Equal(t, int64(4), groups.Past[2].ID)
}

func TestReservationService_Cancel_DefaultReason(t *testing.T) {
	svc, backend, bus := newReservationFixture(t)

	backend.On("CancelReservation", mock.Anything, int64(42), models.DefaultCancelReason).
		Return(&models.Reservation{ID: 42, Status: models.StatusCancelled}, nil)

	r, err := svc.Cancel(context.Background(), testChatID, 42, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, r.Status)
	assert.Contains(t, bus.published(), events.EventReservationCancelled)
}

func TestReservationService_Complete_ScanFailureTolerated(t *testing.T) {
	svc, backend, bus := newReservationFixture(t)

	backend.On("CompleteReservation", mock.Anything, int64(42), true).
		Return(&models.Reservation{ID: 42, Status: models.StatusCompleted}, nil)
	backend.On("Scan", mock.Anything, mock.Anything).Return(assert.AnError)

	r, err := svc.Complete(context.Background(), testChatID, 42, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, r.Status)
	assert.Contains(t, bus.published(), events.EventReservationCompleted)

	backend.AssertCalled(t, "Scan", mock.Anything, mock.MatchedBy(func(req models.ScanRequest) bool {
		return req.ScanType == models.ScanExit
	}))
}

func TestReservationService_EntryScan(t *testing.T) {
	t.Run("RequiresActiveReservation", func(t *testing.T) {
		svc, backend, _ := newReservationFixture(t)
		backend.On("UserReservations", mock.Anything, int64(7)).Return([]models.Reservation{}, nil)

		err := svc.EntryScan(context.Background(), testChatID)
		assert.ErrorIs(t, err, ErrNoActiveReservation)
	})

	t.Run("RecordsEntry", func(t *testing.T) {
		svc, backend, bus := newReservationFixture(t)

		backend.On("UserReservations", mock.Anything, int64(7)).Return([]models.Reservation{{
			ID:        1,
			Status:    models.StatusActive,
			StartTime: models.NewLocalTime(testNow.Add(-time.Hour)),
			EndTime:   models.NewLocalTime(testNow.Add(time.Hour)),
		}}, nil)

		var got models.ScanRequest
		backend.On("Scan", mock.Anything, mock.MatchedBy(func(req models.ScanRequest) bool {
			got = req
			return true
		})).Return(nil)

		require.NoError(t, svc.EntryScan(context.Background(), testChatID))

		// Numeric part of "CS2021001" only.
		assert.Equal(t, int64(2021001), got.StudentID)
		assert.Equal(t, models.ScanEntry, got.ScanType)
		assert.Equal(t, testNow.Format(models.LocalTimeLayout), got.Timestamp)

		assert.Contains(t, bus.published(), events.EventScanRecorded)
	})
}

func TestNumericStudentID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"CS2021001", 2021001, false},
		{"202100123", 202100123, false},
		{"ABC", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := numericStudentID(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "id %q", tt.in)
			continue
		}
		require.NoError(t, err, "id %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}
