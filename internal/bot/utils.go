package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"libseat/internal/models"
	"libseat/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Main menu button labels. The callback flows key off these, so the exact
// strings double as routing constants.
const (
	btnReserve       = "📅 Reserve a Seat"
	btnMyRes         = "📋 My Reservations"
	btnNotifications = "🔔 Notifications"
	btnLeaderboard   = "🏆 Leaderboard"
	btnProfile       = "👤 Profile"
	btnEntryScan     = "🎫 Entry Scan"
	btnExitScan      = "🚪 Exit Scan"
	btnLogin         = "🔑 Log In"
	btnRegister      = "📝 Register"
	btnLogout        = "🚪 Log Out"
	btnCancel        = "❌ Cancel"
	btnBackToMenu    = "⬅️ Back to Menu"
	btnExportHist    = "💾 Export History"
	btnStartBreak    = "☕️ Take a Break"
	btnEndBreak      = "🔙 Back from Break"
)

func (b *Bot) setUserState(ctx context.Context, userID int64, step string, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}
	if err := b.stateService.SetUserState(ctx, userID, step, data); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to set user state")
	}
}

func (b *Bot) getUserState(ctx context.Context, userID int64) *models.UserState {
	state, err := b.stateService.GetUserState(ctx, userID)
	if err != nil {
		return nil
	}
	return state
}

func (b *Bot) clearUserState(ctx context.Context, userID int64) {
	if err := b.stateService.ClearUserState(ctx, userID); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to clear user state")
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tgService.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) sendError(chatID int64, err error) {
	b.sendMessage(chatID, b.getErrorMessage(err))
}

// handleMainMenu renders the root keyboard. Its shape depends on whether
// the chat holds a session.
func (b *Bot) handleMainMenu(ctx context.Context, update tgbotapi.Update) {
	chatID := chatIDOf(update)

	var rows [][]tgbotapi.KeyboardButton
	loggedIn := b.isLoggedIn(ctx, chatID)

	if loggedIn {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnReserve),
			tgbotapi.NewKeyboardButton(btnMyRes),
		))
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnEntryScan),
			tgbotapi.NewKeyboardButton(btnExitScan),
		))
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnNotifications),
			tgbotapi.NewKeyboardButton(btnLeaderboard),
		))
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnProfile),
		))
	} else {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnLogin),
			tgbotapi.NewKeyboardButton(btnRegister),
		))
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnLeaderboard),
		))
	}

	text := "📚 Library Seat Reservation\n\nChoose an action:"
	if !loggedIn {
		text = "📚 Library Seat Reservation\n\nLog in or register to reserve a seat."
	}

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	if _, err := b.tgService.SendWithKeyboard(chatID, text, keyboard); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send main menu")
	}

	b.setUserState(ctx, userIDOf(update), models.StateMainMenu, nil)
}

func (b *Bot) isLoggedIn(ctx context.Context, chatID int64) bool {
	_, err := b.auth.CurrentUserID(ctx, chatID)
	return err == nil
}

func chatIDOf(update tgbotapi.Update) int64 {
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}

func userIDOf(update tgbotapi.Update) int64 {
	if update.Message != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

func statusEmoji(status string) string {
	switch status {
	case models.StatusActive:
		return "🟢"
	case models.StatusPending:
		return "⏳"
	case models.StatusCompleted:
		return "🏁"
	case models.StatusCancelled:
		return "❌"
	case models.StatusNoShow:
		return "🚫"
	default:
		return "▫️"
	}
}

func qualityIcon(q models.DataQuality) string {
	switch q {
	case models.QualityLive:
		return "🟢"
	case models.QualityPartial:
		return "🟡"
	default:
		return "🔴"
	}
}

// formatReservation renders one reservation block for list views.
func formatReservation(r models.Reservation, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s *Reservation #%d*\n", statusEmoji(r.Status), r.ID))
	sb.WriteString(fmt.Sprintf("   🪑 Desk %s\n", r.DeskID))
	sb.WriteString(fmt.Sprintf("   📅 %s\n", r.StartTime.Format("02.01.2006")))
	sb.WriteString(fmt.Sprintf("   🕐 %s - %s\n", r.StartTime.Format("15:04"), r.EndTime.Format("15:04")))

	if r.Active(now) {
		sb.WriteString(fmt.Sprintf("   ⏳ %s remaining\n", formatCountdown(r.Remaining(now))))
	}
	return sb.String()
}

// formatBreakLine renders the break countdown shown under an active
// reservation.
func formatBreakLine(state *service.BreakState) string {
	if state == nil {
		return ""
	}
	if state.OnBreak {
		return fmt.Sprintf("   ☕️ On break, %s of break time left\n", formatCountdown(state.Remaining))
	}
	return fmt.Sprintf("   ☕️ Break budget: %s\n", formatCountdown(state.Remaining))
}

func formatCountdown(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
