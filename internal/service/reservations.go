package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"libseat/internal/domain"
	"libseat/internal/events"
	"libseat/internal/models"

	"github.com/rs/zerolog"
)

var digitsPattern = regexp.MustCompile(`\d+`)

var (
	// ErrNoActiveReservation is returned for entry scans without a
	// reservation covering the current time.
	ErrNoActiveReservation = errors.New("no active reservation")
	// ErrInvalidDuration rejects slots outside the allowed booking length.
	ErrInvalidDuration = errors.New("duration out of range")
	// ErrTooFarAhead rejects bookings past the advance window.
	ErrTooFarAhead = errors.New("start time too far ahead")
	// ErrStartInPast rejects bookings that already started.
	ErrStartInPast = errors.New("start time in the past")
)

// ReservationGroups splits a user's reservations by their relation to now.
type ReservationGroups struct {
	Active   []models.Reservation
	Upcoming []models.Reservation
	Past     []models.Reservation
}

// ReservationLimits bounds slot validation. Zero fields fall back to the
// stock limits.
type ReservationLimits struct {
	MaxDuration time.Duration
	MaxAdvance  time.Duration
}

// ReservationService builds reservation payloads, runs the lifecycle
// transitions and talks to the turnstile adapter.
type ReservationService struct {
	backend  domain.Backend
	auth     *AuthService
	sessions domain.SessionStore
	bus      domain.EventPublisher
	logger   *zerolog.Logger
	roomID   string
	limits   ReservationLimits
	now      func() time.Time
}

func NewReservationService(backend domain.Backend, auth *AuthService, sessions domain.SessionStore, bus domain.EventPublisher, roomID string, limits ReservationLimits, logger *zerolog.Logger) *ReservationService {
	if limits.MaxDuration == 0 {
		limits.MaxDuration = models.MaxDurationHours * time.Hour
	}
	if limits.MaxAdvance == 0 {
		limits.MaxAdvance = models.MaxAdvanceHours * time.Hour
	}
	return &ReservationService{
		backend:  backend,
		auth:     auth,
		sessions: sessions,
		bus:      bus,
		logger:   logger,
		roomID:   roomID,
		limits:   limits,
		now:      time.Now,
	}
}

// BuildSlot combines a date with wall-clock start and end hours. An end at
// or before the start rolls over to the next day, so 23:00 to 01:00 is a
// two hour slot crossing midnight.
func BuildSlot(date time.Time, startHour, startMinute, durationHours int) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), startHour, startMinute, 0, 0, time.Local)
	end := start.Add(time.Duration(durationHours) * time.Hour)
	return start, end
}

// Create validates the slot and posts the reservation.
func (s *ReservationService) Create(ctx context.Context, chatID int64, table, seat int, start, end time.Time) (*models.Reservation, error) {
	userID, err := s.auth.CurrentUserID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !end.After(start) {
		// Defensive; BuildSlot already rolls the end over midnight.
		end = end.Add(24 * time.Hour)
	}
	if start.Before(now) {
		return nil, ErrStartInPast
	}
	duration := end.Sub(start)
	if duration < time.Hour || duration > s.limits.MaxDuration {
		return nil, ErrInvalidDuration
	}
	if start.Sub(now) > s.limits.MaxAdvance {
		return nil, ErrTooFarAhead
	}

	req := models.CreateReservationRequest{
		UserID:    userID,
		RoomID:    s.roomID,
		DeskID:    models.DeskID(table, seat),
		StartTime: models.LocalTime{Time: start},
		EndTime:   models.LocalTime{Time: end},
	}

	reservation, err := s.backend.CreateReservation(ctx, req)
	if err != nil {
		return nil, err
	}

	_ = s.bus.PublishJSON(events.EventReservationCreated, events.ReservationEventPayload{
		ReservationID: reservation.ID,
		UserID:        userID,
		RoomID:        reservation.RoomID,
		DeskID:        reservation.DeskID,
		Status:        reservation.Status,
		StartTime:     reservation.StartTime.Time,
		EndTime:       reservation.EndTime.Time,
	})

	s.logger.Info().
		Int64("user_id", userID).
		Str("desk_id", req.DeskID).
		Time("start", start).
		Msg("reservation created")
	return reservation, nil
}

// Grouped fetches the user's reservations split into active, upcoming and
// past. Upcoming sorts soonest first, past newest first.
func (s *ReservationService) Grouped(ctx context.Context, chatID int64) (*ReservationGroups, error) {
	userID, err := s.auth.CurrentUserID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	reservations, err := s.backend.UserReservations(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	groups := &ReservationGroups{}
	for _, r := range reservations {
		switch {
		case r.Status == models.StatusCancelled, r.Status == models.StatusCompleted, r.Status == models.StatusNoShow:
			groups.Past = append(groups.Past, r)
		case r.EndTime.Before(now):
			groups.Past = append(groups.Past, r)
		case r.Active(now):
			groups.Active = append(groups.Active, r)
		default:
			groups.Upcoming = append(groups.Upcoming, r)
		}
	}

	sort.Slice(groups.Upcoming, func(i, j int) bool {
		return groups.Upcoming[i].StartTime.Before(groups.Upcoming[j].StartTime.Time)
	})
	sort.Slice(groups.Past, func(i, j int) bool {
		return groups.Past[i].StartTime.After(groups.Past[j].StartTime.Time)
	})

	return groups, nil
}

// ActiveReservation returns the reservation covering now, if any.
func (s *ReservationService) ActiveReservation(ctx context.Context, chatID int64) (*models.Reservation, error) {
	groups, err := s.Grouped(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(groups.Active) == 0 {
		return nil, nil
	}
	return &groups.Active[0], nil
}

// Cancel cancels a reservation with the given reason, falling back to the
// stock reason when empty.
func (s *ReservationService) Cancel(ctx context.Context, chatID, reservationID int64, reason string) (*models.Reservation, error) {
	if reason == "" {
		reason = models.DefaultCancelReason
	}

	reservation, err := s.backend.CancelReservation(ctx, reservationID, reason)
	if err != nil {
		return nil, err
	}

	_ = s.bus.PublishJSON(events.EventReservationCancelled, events.ReservationEventPayload{
		ReservationID: reservation.ID,
		UserID:        reservation.UserID,
		RoomID:        reservation.RoomID,
		DeskID:        reservation.DeskID,
		Status:        reservation.Status,
		StartTime:     reservation.StartTime.Time,
		EndTime:       reservation.EndTime.Time,
		Reason:        reason,
	})

	s.logger.Info().Int64("reservation_id", reservationID).Str("reason", reason).Msg("reservation cancelled")
	return reservation, nil
}

// Complete marks the reservation finished and fires a best effort exit
// scan, so the turnstile state matches even when the user walks out
// through the app. The scan failing never fails the completion.
func (s *ReservationService) Complete(ctx context.Context, chatID, reservationID int64, wasCompliant bool) (*models.Reservation, error) {
	reservation, err := s.backend.CompleteReservation(ctx, reservationID, wasCompliant)
	if err != nil {
		return nil, err
	}

	if scanErr := s.RecordScan(ctx, chatID, models.ScanExit); scanErr != nil {
		s.logger.Warn().Err(scanErr).Int64("reservation_id", reservationID).Msg("exit scan after completion failed")
	}

	_ = s.bus.PublishJSON(events.EventReservationCompleted, events.ReservationEventPayload{
		ReservationID: reservation.ID,
		UserID:        reservation.UserID,
		RoomID:        reservation.RoomID,
		DeskID:        reservation.DeskID,
		Status:        reservation.Status,
		StartTime:     reservation.StartTime.Time,
		EndTime:       reservation.EndTime.Time,
	})

	s.logger.Info().Int64("reservation_id", reservationID).Bool("compliant", wasCompliant).Msg("reservation completed")
	return reservation, nil
}

// Lookup fetches a single reservation by id.
func (s *ReservationService) Lookup(ctx context.Context, reservationID int64) (*models.Reservation, error) {
	return s.backend.Reservation(ctx, reservationID)
}

// Notifications lists the user's notifications, optionally filtered by
// read state.
func (s *ReservationService) Notifications(ctx context.Context, userID int64, isRead *bool) ([]models.Notification, error) {
	return s.backend.UserNotifications(ctx, userID, isRead)
}

// UnreadCount returns the number of unread notifications.
func (s *ReservationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.backend.UnreadCount(ctx, userID)
}

func (s *ReservationService) MarkNotificationRead(ctx context.Context, notificationID int64) error {
	return s.backend.MarkNotificationRead(ctx, notificationID)
}

func (s *ReservationService) MarkAllNotificationsRead(ctx context.Context, userID int64) error {
	return s.backend.MarkAllNotificationsRead(ctx, userID)
}

func (s *ReservationService) DeleteNotification(ctx context.Context, notificationID int64) error {
	return s.backend.DeleteNotification(ctx, notificationID)
}

// EntryScan records an entry. It requires a reservation covering now;
// the turnstile rejects walk-ins.
func (s *ReservationService) EntryScan(ctx context.Context, chatID int64) error {
	active, err := s.ActiveReservation(ctx, chatID)
	if err != nil {
		return err
	}
	if active == nil {
		return ErrNoActiveReservation
	}
	return s.RecordScan(ctx, chatID, models.ScanEntry)
}

// RecordScan posts a raw scan for the chat's student id. The adapter wants
// the numeric part of the id only.
func (s *ReservationService) RecordScan(ctx context.Context, chatID int64, scanType string) error {
	studentID, err := s.auth.StudentID(ctx, chatID)
	if err != nil {
		return err
	}
	numeric, err := numericStudentID(studentID)
	if err != nil {
		return err
	}

	req := models.ScanRequest{
		StudentID: numeric,
		ScanType:  scanType,
		Timestamp: s.now().Format(models.LocalTimeLayout),
	}
	if err := s.backend.Scan(ctx, req); err != nil {
		return err
	}

	_ = s.bus.PublishJSON(events.EventScanRecorded, events.ScanEventPayload{
		StudentID: numeric,
		ScanType:  scanType,
		Timestamp: s.now(),
	})
	return nil
}

func numericStudentID(studentID string) (int64, error) {
	digits := digitsPattern.FindString(studentID)
	if digits == "" {
		return 0, fmt.Errorf("student id %q has no numeric part", studentID)
	}
	return strconv.ParseInt(digits, 10, 64)
}
