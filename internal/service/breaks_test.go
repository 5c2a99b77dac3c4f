package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"libseat/internal/models"
)

// newBreakFixture returns a service with an adjustable clock. Advancing
// *now simulates time passing between calls.
func newBreakFixture(t *testing.T) (*ReservationService, *MockBackend, *time.Time) {
	t.Helper()
	backend := new(MockBackend)
	sessions := newFakeSessions()
	bus := &recordingBus{}
	logger := zerolog.Nop()

	ctx := context.Background()
	require.NoError(t, sessions.Set(ctx, testChatID, models.KeyUserID, "7"))

	auth := NewAuthService(backend, sessions, bus, &logger)
	svc := NewReservationService(backend, auth, sessions, bus, models.DefaultRoomID, ReservationLimits{}, &logger)
	now := testNow
	svc.now = func() time.Time { return now }
	return svc, backend, &now
}

func activeReservations(ids ...int64) []models.Reservation {
	var out []models.Reservation
	for _, id := range ids {
		out = append(out, models.Reservation{
			ID:        id,
			Status:    models.StatusActive,
			StartTime: models.NewLocalTime(testNow.Add(-time.Hour)),
			EndTime:   models.NewLocalTime(testNow.Add(2 * time.Hour)),
		})
	}
	return out
}

func TestBreak_RequiresActiveReservation(t *testing.T) {
	svc, backend, _ := newBreakFixture(t)
	backend.On("UserReservations", mock.Anything, int64(7)).Return([]models.Reservation{}, nil)

	ctx := context.Background()
	_, err := svc.BreakState(ctx, testChatID)
	assert.ErrorIs(t, err, ErrNoActiveReservation)

	_, err = svc.StartBreak(ctx, testChatID)
	assert.ErrorIs(t, err, ErrNoActiveReservation)

	_, err = svc.EndBreak(ctx, testChatID)
	assert.ErrorIs(t, err, ErrNoActiveReservation)
}

func TestBreak_FreshBudget(t *testing.T) {
	svc, backend, _ := newBreakFixture(t)
	backend.On("UserReservations", mock.Anything, int64(7)).Return(activeReservations(1), nil)

	state, err := svc.BreakState(context.Background(), testChatID)
	require.NoError(t, err)
	assert.False(t, state.OnBreak)
	assert.Equal(t, int64(1), state.ReservationID)
	assert.Equal(t, models.BreakBudgetSeconds*time.Second, state.Remaining)
}

func TestBreak_BudgetBurnsOnlyDuringBreak(t *testing.T) {
	svc, backend, now := newBreakFixture(t)
	backend.On("UserReservations", mock.Anything, int64(7)).Return(activeReservations(1), nil)
	ctx := context.Background()

	state, err := svc.StartBreak(ctx, testChatID)
	require.NoError(t, err)
	assert.True(t, state.OnBreak)
	assert.Equal(t, testNow, state.StartedAt)

	// Five minutes on break eat five minutes of budget.
	*now = testNow.Add(5 * time.Minute)
	state, err = svc.BreakState(ctx, testChatID)
	require.NoError(t, err)
	assert.True(t, state.OnBreak)
	assert.Equal(t, 10*time.Minute, state.Remaining)

	state, err = svc.EndBreak(ctx, testChatID)
	require.NoError(t, err)
	assert.False(t, state.OnBreak)
	assert.Equal(t, 10*time.Minute, state.Remaining)

	// Off break the budget is paused.
	*now = testNow.Add(30 * time.Minute)
	state, err = svc.BreakState(ctx, testChatID)
	require.NoError(t, err)
	assert.False(t, state.OnBreak)
	assert.Equal(t, 10*time.Minute, state.Remaining)

	// A second break resumes from the charged budget.
	_, err = svc.StartBreak(ctx, testChatID)
	require.NoError(t, err)
	*now = testNow.Add(34 * time.Minute)
	state, err = svc.BreakState(ctx, testChatID)
	require.NoError(t, err)
	assert.Equal(t, 6*time.Minute, state.Remaining)
}

func TestBreak_Exhaustion(t *testing.T) {
	svc, backend, now := newBreakFixture(t)
	backend.On("UserReservations", mock.Anything, int64(7)).Return(activeReservations(1), nil)
	ctx := context.Background()

	_, err := svc.StartBreak(ctx, testChatID)
	require.NoError(t, err)

	// Overstaying clamps the budget at zero instead of going negative.
	*now = testNow.Add(20 * time.Minute)
	state, err := svc.BreakState(ctx, testChatID)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), state.Remaining)

	state, err = svc.EndBreak(ctx, testChatID)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), state.Remaining)

	_, err = svc.StartBreak(ctx, testChatID)
	assert.ErrorIs(t, err, ErrBreakExhausted)
}

func TestBreak_ToggleOrder(t *testing.T) {
	svc, backend, _ := newBreakFixture(t)
	backend.On("UserReservations", mock.Anything, int64(7)).Return(activeReservations(1), nil)
	ctx := context.Background()

	_, err := svc.EndBreak(ctx, testChatID)
	assert.ErrorIs(t, err, ErrNotOnBreak)

	_, err = svc.StartBreak(ctx, testChatID)
	require.NoError(t, err)

	_, err = svc.StartBreak(ctx, testChatID)
	assert.ErrorIs(t, err, ErrAlreadyOnBreak)
}

func TestBreak_NewReservationResetsBudget(t *testing.T) {
	svc, backend, now := newBreakFixture(t)
	backend.On("UserReservations", mock.Anything, int64(7)).Return(activeReservations(1), nil).Times(2)
	ctx := context.Background()

	_, err := svc.StartBreak(ctx, testChatID)
	require.NoError(t, err)
	*now = testNow.Add(20 * time.Minute)
	_, err = svc.EndBreak(ctx, testChatID)
	require.NoError(t, err)

	// The next reservation is not charged for the previous one's breaks.
	backend.On("UserReservations", mock.Anything, int64(7)).Return(activeReservations(2), nil)
	state, err := svc.BreakState(ctx, testChatID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), state.ReservationID)
	assert.False(t, state.OnBreak)
	assert.Equal(t, models.BreakBudgetSeconds*time.Second, state.Remaining)
}
