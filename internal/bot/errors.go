package bot

import (
	"errors"

	"libseat/internal/backend"
	"libseat/internal/service"
)

// getErrorMessage translates a service or backend error into user-facing
// text. Backend-provided messages win for validation and conflict errors
// since they carry the actual rule that was violated.
func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, service.ErrNotLoggedIn):
		return "🔑 Please log in first."
	case errors.Is(err, service.ErrNoActiveReservation):
		return "⚠️ You have no active reservation right now. Entry requires a reservation covering the current time."
	case errors.Is(err, service.ErrInvalidDuration):
		return "⚠️ Reservations must be between 1 and 3 hours long."
	case errors.Is(err, service.ErrTooFarAhead):
		return "⚠️ You can only reserve up to 36 hours in advance."
	case errors.Is(err, service.ErrStartInPast):
		return "⚠️ The start time has already passed. Please pick a later slot."
	case errors.Is(err, service.ErrAlreadyOnBreak):
		return "☕️ You are already on a break."
	case errors.Is(err, service.ErrNotOnBreak):
		return "⚠️ You are not on a break right now."
	case errors.Is(err, service.ErrBreakExhausted):
		return "⛔️ Your break time for this reservation is used up."
	}

	if b.metrics != nil {
		b.metrics.BackendErrors.WithLabelValues(string(backend.Categorize(err))).Inc()
	}

	var apiErr *backend.APIError
	hasAPIErr := errors.As(err, &apiErr)

	switch backend.Categorize(err) {
	case backend.CategoryConnectivity:
		return "📡 Cannot reach the reservation service. Check your connection and try again."
	case backend.CategoryValidation:
		if hasAPIErr && apiErr.Message != "" {
			return "⚠️ " + apiErr.Message
		}
		return "⚠️ The request was rejected as invalid. Please check your input."
	case backend.CategoryAuth:
		return "🔒 Invalid credentials or your session has expired. Please log in again."
	case backend.CategoryNotFound:
		return "🔍 The requested record was not found. It may have been removed."
	case backend.CategoryConflict:
		if hasAPIErr && apiErr.Message != "" {
			return "⛔️ " + apiErr.Message
		}
		return "⛔️ That seat is already reserved for the selected time. Please pick another seat or slot."
	case backend.CategoryServer:
		return "🛠 The reservation service hit an internal error. Please try again later."
	default:
		return "❌ Something went wrong while processing your request. Please try again."
	}
}
