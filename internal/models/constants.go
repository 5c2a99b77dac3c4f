package models

// Reservation statuses as reported by the backend. Closed set inferred from
// the reservation lifecycle: PENDING until confirmed, ACTIVE during the slot,
// then COMPLETED/CANCELLED/NO_SHOW.
const (
	StatusPending   = "PENDING"
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusNoShow    = "NO_SHOW"
)

// Scan types for the library adapter.
const (
	ScanEntry = "ENTRY"
	ScanExit  = "EXIT"
)

// Conversation flow steps.
const (
	StateMainMenu        = "main_menu"
	StateLoginEmail      = "login_email"
	StateLoginPassword   = "login_password"
	StateRegisterEmail   = "register_email"
	StateRegisterPass    = "register_password"
	StateRegisterStudent = "register_student_id"
	StateSelectTime      = "select_time"
	StateSelectDuration  = "select_duration"
	StateSelectFloor     = "select_floor"
	StateSelectSeat      = "select_seat"
	StateConfirmation    = "confirmation"
	StateCancelReason    = "cancel_reason"
)

// Session store keys. Opaque strings, no schema versioning (deliberately:
// the backend owns all authoritative state).
const (
	KeyUserID       = "userId"
	KeyUserEmail    = "userEmail"
	KeyStudentID    = "studentId"
	KeySavedEmail   = "savedEmail"
	KeyRememberMe   = "rememberMe"
	KeyUserProfile  = "userProfile"
	KeyUserScore    = "userScore"
	KeyTutorialSeen = "tutorialSeen"

	// Break countdown state for the active reservation.
	KeyBreakStart       = "breakStartedAt"
	KeyBreakUsed        = "breakUsedSeconds"
	KeyBreakReservation = "breakReservationId"
)

const (
	// DefaultRoomID is the single room the floor map covers.
	DefaultRoomID = "ROOM-001"

	// DefaultCancelReason accompanies user-initiated cancellations.
	DefaultCancelReason = "User request"

	// DefaultRedisTTL is the conversation state lifetime in seconds.
	DefaultRedisTTL = 24 * 60 * 60

	// MaxDurationHours caps a single reservation.
	MaxDurationHours = 3

	// MaxAdvance is how far ahead a start time may be picked, in hours.
	MaxAdvanceHours = 36

	// BreakBudget is the break countdown budget in seconds.
	BreakBudgetSeconds = 15 * 60

	// DefaultPaginationSize for inline-keyboard lists.
	DefaultPaginationSize = 8

	// RateLimitMessages / RateLimitWindow bound user message frequency.
	RateLimitMessages = 20
	RateLimitWindow   = 60
)
