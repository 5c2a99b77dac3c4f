package models

import "time"

// User mirrors the backend user entity. All fields are read-only from the
// client's point of view; streaks and score mutate on scan/completion
// events server-side.
type User struct {
	ID                          int64  `json:"id"`
	Email                       string `json:"email"`
	StudentID                   string `json:"studentId"`
	LibraryScore                int    `json:"libraryScore"`
	SuccessfulCompletionsStreak int    `json:"successfulCompletionsStreak"`
	NoShowStreak                int    `json:"noShowStreak"`
	BreakViolationStreak        int    `json:"breakViolationStreak"`
}

// Reservation is the backend reservation entity. StartTime/EndTime are naive
// local timestamps on the wire (see LocalTime).
type Reservation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	RoomID    string    `json:"roomId"`
	DeskID    string    `json:"deskId"`
	StartTime LocalTime `json:"startTime"`
	EndTime   LocalTime `json:"endTime"`
	Status    string    `json:"status"`
	CreatedAt LocalTime `json:"createdAt,omitempty"`
	UpdatedAt LocalTime `json:"updatedAt,omitempty"`
}

// CreateReservationRequest is the POST /api/reservations body.
type CreateReservationRequest struct {
	UserID    int64     `json:"userId"`
	RoomID    string    `json:"roomId"`
	DeskID    string    `json:"deskId"`
	StartTime LocalTime `json:"startTime"`
	EndTime   LocalTime `json:"endTime"`
}

// Notification is a backend notification row. ReservationID/RoomID are weak
// back-references used for lookup only.
type Notification struct {
	ID            int64     `json:"id"`
	Message       string    `json:"message"`
	Type          string    `json:"type"`
	CreatedAt     LocalTime `json:"createdAt"`
	IsRead        bool      `json:"isRead"`
	ReservationID int64     `json:"reservationId,omitempty"`
	RoomID        string    `json:"roomId,omitempty"`
}

// ScanRequest is the POST /adapter/library/scan body. The adapter expects the
// numeric part of the student id, not the formatted string.
type ScanRequest struct {
	StudentID int64  `json:"studentId"`
	ScanType  string `json:"scanType"`
	Timestamp string `json:"timestamp"`
}

// RegisterRequest is the POST /api/users/register body.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	StudentID string `json:"studentId"`
}

// LoginRequest is the POST /api/users/login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Active reports whether the reservation covers the given instant.
func (r *Reservation) Active(now time.Time) bool {
	return !r.StartTime.After(now) && !now.After(r.EndTime.Time)
}

// Overlaps applies half-open interval semantics: [s1,e1) and [s2,e2) overlap
// iff s1 < e2 && s2 < e1. Touching endpoints do not count.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && start.Before(r.EndTime.Time)
}

// Remaining returns time left until the reservation ends, floored at zero.
func (r *Reservation) Remaining(now time.Time) time.Duration {
	d := r.EndTime.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
