package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"libseat/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func notificationEmoji(kind string) string {
	switch strings.ToUpper(kind) {
	case "REMINDER":
		return "⏰"
	case "WARNING":
		return "⚠️"
	case "BREAK":
		return "☕️"
	default:
		return "🔔"
	}
}

// showNotifications renders one page of the user's notifications, either
// all of them or the unread subset. messageID != 0 edits in place.
func (b *Bot) showNotifications(ctx context.Context, chatID, userID int64, page int, unreadOnly bool, messageID int) {
	backendUserID, err := b.auth.CurrentUserID(ctx, chatID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	var filter *bool
	if unreadOnly {
		f := false
		filter = &f
	}

	notifications, err := b.reservations.Notifications(ctx, backendUserID, filter)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	unread, err := b.reservations.UnreadCount(ctx, backendUserID)
	if err != nil {
		unread = 0
	}

	if len(notifications) == 0 {
		text := "📭 No notifications."
		if unreadOnly {
			text = "📭 No unread notifications."
		}
		b.sendMessage(chatID, text)
		return
	}

	perPage := b.config.Bot.PaginationSize
	if perPage <= 0 {
		perPage = models.DefaultPaginationSize
	}
	totalPages := (len(notifications) + perPage - 1) / perPage
	if page >= totalPages {
		page = totalPages - 1
	}
	if page < 0 {
		page = 0
	}
	startIdx := page * perPage
	endIdx := startIdx + perPage
	if endIdx > len(notifications) {
		endIdx = len(notifications)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔔 *Notifications* (%d unread)\n", unread))
	if totalPages > 1 {
		sb.WriteString(fmt.Sprintf("Page %d of %d\n", page+1, totalPages))
	}
	sb.WriteString("\n")

	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, n := range notifications[startIdx:endIdx] {
		marker := " "
		if !n.IsRead {
			marker = "🆕"
		}
		sb.WriteString(fmt.Sprintf("%s %s %s\n   _%s_\n\n",
			marker, notificationEmoji(n.Type), n.Message,
			n.CreatedAt.Format("02.01 15:04")))

		var row []tgbotapi.InlineKeyboardButton
		if !n.IsRead {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✓ Read #%d", n.ID),
				fmt.Sprintf("notif_read:%d", n.ID)))
		}
		if n.ReservationID != 0 {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				"📋 Reservation",
				fmt.Sprintf("notif_open:%d", n.ReservationID)))
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			"🗑",
			fmt.Sprintf("notif_del:%d", n.ID)))
		keyboard = append(keyboard, row)
	}

	var controls []tgbotapi.InlineKeyboardButton
	if unreadOnly {
		controls = append(controls, tgbotapi.NewInlineKeyboardButtonData("Show all", "notif_filter:all"))
	} else {
		controls = append(controls, tgbotapi.NewInlineKeyboardButtonData("Unread only", "notif_filter:unread"))
	}
	if unread > 0 {
		controls = append(controls, tgbotapi.NewInlineKeyboardButtonData("✓✓ Read all", "notif_read_all"))
	}
	keyboard = append(keyboard, controls)

	var nav []tgbotapi.InlineKeyboardButton
	filterTag := "all"
	if unreadOnly {
		filterTag = "unread"
	}
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Back",
			fmt.Sprintf("notif_page:%s:%d", filterTag, page-1)))
	}
	if endIdx < len(notifications) {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡️",
			fmt.Sprintf("notif_page:%s:%d", filterTag, page+1)))
	}
	if len(nav) > 0 {
		keyboard = append(keyboard, nav)
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)

	if messageID != 0 {
		editMsg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, sb.String(), markup)
		editMsg.ParseMode = "Markdown"
		if _, err := b.tgService.Send(editMsg); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to edit notifications")
		}
		return
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = markup
	if _, err := b.tgService.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send notifications")
	}
}

func (b *Bot) handleNotificationRead(ctx context.Context, update tgbotapi.Update, notificationID int64) {
	chatID := update.CallbackQuery.Message.Chat.ID

	if err := b.reservations.MarkNotificationRead(ctx, notificationID); err != nil {
		b.sendError(chatID, err)
		return
	}
	b.showNotifications(ctx, chatID, update.CallbackQuery.From.ID, 0, false, update.CallbackQuery.Message.MessageID)
}

func (b *Bot) handleNotificationReadAll(ctx context.Context, update tgbotapi.Update) {
	chatID := update.CallbackQuery.Message.Chat.ID

	userID, err := b.auth.CurrentUserID(ctx, chatID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	if err := b.reservations.MarkAllNotificationsRead(ctx, userID); err != nil {
		b.sendError(chatID, err)
		return
	}
	b.showNotifications(ctx, chatID, update.CallbackQuery.From.ID, 0, false, update.CallbackQuery.Message.MessageID)
}

func (b *Bot) handleNotificationDelete(ctx context.Context, update tgbotapi.Update, notificationID int64) {
	chatID := update.CallbackQuery.Message.Chat.ID

	if err := b.reservations.DeleteNotification(ctx, notificationID); err != nil {
		b.sendError(chatID, err)
		return
	}
	b.showNotifications(ctx, chatID, update.CallbackQuery.From.ID, 0, false, update.CallbackQuery.Message.MessageID)
}

// handleNotificationOpen resolves a notification's reservation back-reference.
func (b *Bot) handleNotificationOpen(ctx context.Context, update tgbotapi.Update, reservationID int64) {
	chatID := update.CallbackQuery.Message.Chat.ID

	reservation, err := b.reservations.Lookup(ctx, reservationID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, formatReservation(*reservation, time.Now()))
	msg.ParseMode = "Markdown"
	if _, err := b.tgService.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reservation details")
	}
}
