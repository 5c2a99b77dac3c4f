package bot

import (
	"context"
	"strconv"
	"strings"

	"libseat/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const noopCallback = "noop"

func (b *Bot) handleCallbackQuery(ctx context.Context, update tgbotapi.Update) {
	callback := update.CallbackQuery
	if callback == nil || callback.Message == nil {
		return
	}

	data := callback.Data
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID

	l := zerolog.Ctx(ctx)
	l.Debug().
		Int64("user_id", userID).
		Str("data", data).
		Msg("Handling callback query")

	// Answer immediately to clear the loading spinner.
	if err := b.tgService.AnswerCallback(callback.ID, ""); err != nil {
		b.logger.Debug().Err(err).Msg("Failed to answer callback")
	}

	switch {
	case data == noopCallback:
		return

	case data == "login_saved_email":
		b.handleSavedEmailChosen(ctx, update)

	case strings.HasPrefix(data, "login_remember:"):
		b.finishLogin(ctx, update, data == "login_remember:yes")

	case strings.HasPrefix(data, "res_date:"):
		offset, _ := strconv.Atoi(strings.TrimPrefix(data, "res_date:"))
		b.handleDateSelected(ctx, update, offset)

	case strings.HasPrefix(data, "res_hour:"):
		hour, _ := strconv.Atoi(strings.TrimPrefix(data, "res_hour:"))
		b.handleHourSelected(ctx, update, hour)

	case strings.HasPrefix(data, "res_dur:"):
		duration, _ := strconv.Atoi(strings.TrimPrefix(data, "res_dur:"))
		b.handleDurationSelected(ctx, update, duration)

	case strings.HasPrefix(data, "res_floor:"):
		floor, _ := strconv.Atoi(strings.TrimPrefix(data, "res_floor:"))
		b.handleFloorSelected(ctx, update, floor)

	case strings.HasPrefix(data, "res_tables_page:"):
		page, _ := strconv.Atoi(strings.TrimPrefix(data, "res_tables_page:"))
		b.sendSeatMap(ctx, chatID, userID, page, callback.Message.MessageID)

	case strings.HasPrefix(data, "res_seat:"):
		parts := strings.Split(strings.TrimPrefix(data, "res_seat:"), ":")
		if len(parts) == 2 {
			table, _ := strconv.Atoi(parts[0])
			seat, _ := strconv.Atoi(parts[1])
			b.handleSeatSelected(ctx, update, table, seat)
		}

	case data == "res_confirm":
		b.handleReservationConfirm(ctx, update)

	case data == "res_abort":
		b.clearUserState(ctx, userID)
		b.sendMessage(chatID, "Reservation aborted.")

	case strings.HasPrefix(data, "res_cancel:"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(data, "res_cancel:"), 10, 64)
		b.handleCancelRequested(ctx, update, id)

	case data == "cancel_skip":
		b.finishCancel(ctx, chatID, userID, "")

	case data == "res_break:start":
		b.handleBreakToggle(ctx, update, true)

	case data == "res_break:stop":
		b.handleBreakToggle(ctx, update, false)

	case strings.HasPrefix(data, "res_complete:"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(data, "res_complete:"), 10, 64)
		b.handleComplete(ctx, update, id)

	case data == "exit_confirm":
		b.doExitScan(ctx, chatID)

	case data == "exit_abort":
		b.sendMessage(chatID, "Exit scan skipped.")

	case strings.HasPrefix(data, "notif_read:"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(data, "notif_read:"), 10, 64)
		b.handleNotificationRead(ctx, update, id)

	case data == "notif_read_all":
		b.handleNotificationReadAll(ctx, update)

	case strings.HasPrefix(data, "notif_del:"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(data, "notif_del:"), 10, 64)
		b.handleNotificationDelete(ctx, update, id)

	case strings.HasPrefix(data, "notif_open:"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(data, "notif_open:"), 10, 64)
		b.handleNotificationOpen(ctx, update, id)

	case strings.HasPrefix(data, "notif_filter:"):
		unreadOnly := strings.TrimPrefix(data, "notif_filter:") == "unread"
		b.showNotifications(ctx, chatID, userID, 0, unreadOnly, callback.Message.MessageID)

	case strings.HasPrefix(data, "notif_page:"):
		parts := strings.Split(strings.TrimPrefix(data, "notif_page:"), ":")
		if len(parts) == 2 {
			page, _ := strconv.Atoi(parts[1])
			b.showNotifications(ctx, chatID, userID, page, parts[0] == "unread", callback.Message.MessageID)
		}

	case strings.HasPrefix(data, "rank_tab:"):
		parts := strings.Split(strings.TrimPrefix(data, "rank_tab:"), ":")
		if len(parts) == 2 {
			b.showLeaderboard(ctx, chatID, userID, 0, parts[0], parts[1], callback.Message.MessageID)
		}

	case strings.HasPrefix(data, "rank_page:"):
		parts := strings.Split(strings.TrimPrefix(data, "rank_page:"), ":")
		if len(parts) == 3 {
			page, _ := strconv.Atoi(parts[2])
			b.showLeaderboard(ctx, chatID, userID, page, parts[0], parts[1], callback.Message.MessageID)
		}

	case data == "profile_export":
		b.handleExportHistoryCallback(ctx, update)

	case data == "profile_logout":
		b.handleLogout(ctx, update)
	}
}

// handleSavedEmailChosen short-circuits the email step with the remembered
// address.
func (b *Bot) handleSavedEmailChosen(ctx context.Context, update tgbotapi.Update) {
	chatID := update.CallbackQuery.Message.Chat.ID
	userID := update.CallbackQuery.From.ID

	email := b.auth.SavedEmail(ctx, chatID)
	if email == "" {
		b.sendMessage(chatID, "⚠️ No saved email found. Enter your email:")
		return
	}

	b.setUserState(ctx, userID, models.StateLoginPassword, map[string]interface{}{
		"login_email": email,
	})
	b.sendMessage(chatID, "Enter your password:")
}
