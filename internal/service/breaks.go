package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"libseat/internal/models"
	"libseat/internal/session"
)

var (
	// ErrAlreadyOnBreak rejects a second break start before the first ended.
	ErrAlreadyOnBreak = errors.New("already on a break")
	// ErrNotOnBreak rejects ending a break that was never started.
	ErrNotOnBreak = errors.New("not on a break")
	// ErrBreakExhausted rejects breaks once the budget for the reservation
	// is used up.
	ErrBreakExhausted = errors.New("break budget exhausted")
)

// BreakState is the break countdown for the chat's active reservation.
// Each reservation carries a fixed budget; the budget only burns while a
// break is running, and the session countdown is shown frozen at the
// moment the break started.
type BreakState struct {
	ReservationID int64
	OnBreak       bool
	StartedAt     time.Time
	Remaining     time.Duration
}

// BreakState reports the break countdown. It requires an active
// reservation; a reservation seen for the first time gets a fresh budget.
func (s *ReservationService) BreakState(ctx context.Context, chatID int64) (*BreakState, error) {
	active, err := s.ActiveReservation(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrNoActiveReservation
	}
	return s.breakState(ctx, chatID, active)
}

// StartBreak begins burning the break budget. The stored start timestamp
// doubles as the frozen point for the session countdown.
func (s *ReservationService) StartBreak(ctx context.Context, chatID int64) (*BreakState, error) {
	active, err := s.ActiveReservation(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrNoActiveReservation
	}

	state, err := s.breakState(ctx, chatID, active)
	if err != nil {
		return nil, err
	}
	if state.OnBreak {
		return state, ErrAlreadyOnBreak
	}
	if state.Remaining <= 0 {
		return state, ErrBreakExhausted
	}

	now := s.now()
	if err := s.sessions.Set(ctx, chatID, models.KeyBreakReservation, strconv.FormatInt(active.ID, 10)); err != nil {
		return nil, err
	}
	if err := s.sessions.Set(ctx, chatID, models.KeyBreakStart, now.Format(models.LocalTimeLayout)); err != nil {
		return nil, err
	}

	state.OnBreak = true
	state.StartedAt = now
	s.logger.Info().
		Int64("reservation_id", active.ID).
		Dur("break_remaining", state.Remaining).
		Msg("break started")
	return state, nil
}

// EndBreak resumes the session countdown and charges the elapsed time
// against the budget.
func (s *ReservationService) EndBreak(ctx context.Context, chatID int64) (*BreakState, error) {
	active, err := s.ActiveReservation(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrNoActiveReservation
	}

	state, err := s.breakState(ctx, chatID, active)
	if err != nil {
		return nil, err
	}
	if !state.OnBreak {
		return state, ErrNotOnBreak
	}

	usedSeconds := models.BreakBudgetSeconds - int(state.Remaining/time.Second)
	if usedSeconds > models.BreakBudgetSeconds {
		usedSeconds = models.BreakBudgetSeconds
	}
	if err := s.sessions.Set(ctx, chatID, models.KeyBreakUsed, strconv.Itoa(usedSeconds)); err != nil {
		return nil, err
	}
	if err := s.sessions.Remove(ctx, chatID, models.KeyBreakStart); err != nil {
		return nil, err
	}

	state.OnBreak = false
	state.StartedAt = time.Time{}
	s.logger.Info().
		Int64("reservation_id", active.ID).
		Dur("break_remaining", state.Remaining).
		Msg("break ended")
	return state, nil
}

func (s *ReservationService) breakState(ctx context.Context, chatID int64, active *models.Reservation) (*BreakState, error) {
	state := &BreakState{
		ReservationID: active.ID,
		Remaining:     models.BreakBudgetSeconds * time.Second,
	}

	stored, err := s.sessions.Get(ctx, chatID, models.KeyBreakReservation)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return nil, err
	}
	if stored != strconv.FormatInt(active.ID, 10) {
		// A different reservation became active; its budget starts fresh.
		if err := s.sessions.MultiRemove(ctx, chatID,
			models.KeyBreakStart, models.KeyBreakUsed, models.KeyBreakReservation); err != nil {
			return nil, err
		}
		return state, nil
	}

	if v, err := s.sessions.Get(ctx, chatID, models.KeyBreakUsed); err == nil {
		used, _ := strconv.Atoi(v)
		state.Remaining -= time.Duration(used) * time.Second
	}

	if v, err := s.sessions.Get(ctx, chatID, models.KeyBreakStart); err == nil {
		if started, perr := time.ParseInLocation(models.LocalTimeLayout, v, time.Local); perr == nil {
			state.OnBreak = true
			state.StartedAt = started
			state.Remaining -= s.now().Sub(started)
		}
	}

	if state.Remaining < 0 {
		state.Remaining = 0
	}
	return state, nil
}
