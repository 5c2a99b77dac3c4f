package bot

import (
	"context"
	"strings"

	"libseat/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	text := update.Message.Text
	l := zerolog.Ctx(ctx)

	l.Debug().
		Int64("user_id", userID).
		Str("username", update.Message.From.UserName).
		Str("text", text).
		Msg("Handling message")

	if b.metrics != nil {
		b.metrics.MessagesProcessed.Inc()
	}

	state := b.getUserState(ctx, userID)

	switch {
	case text == "/start" || strings.EqualFold(text, "reset"):
		b.clearUserState(ctx, userID)
		b.handleStart(ctx, update)

	case text == "/help":
		b.showHelp(ctx, update)

	case text == btnLogin:
		b.startLoginFlow(ctx, update)

	case text == btnRegister:
		b.startRegisterFlow(ctx, update)

	case text == btnReserve:
		b.startReservationFlow(ctx, update)

	case text == btnMyRes:
		b.showMyReservations(ctx, update)

	case text == btnNotifications:
		b.showNotifications(ctx, chatID, userID, 0, false, 0)

	case text == btnLeaderboard:
		b.showLeaderboard(ctx, chatID, userID, 0, rankTabStudents, rankSortScore, 0)

	case text == btnProfile:
		b.showProfile(ctx, update)

	case text == btnEntryScan:
		b.handleEntryScan(ctx, update)

	case text == btnExitScan:
		b.handleExitScan(ctx, update)

	case text == btnExportHist:
		b.handleExportHistory(ctx, update)

	case text == btnCancel || text == btnBackToMenu:
		b.clearUserState(ctx, userID)
		b.handleMainMenu(ctx, update)

	case state != nil && state.Step == models.StateLoginEmail:
		b.handleLoginEmail(ctx, update, text)

	case state != nil && state.Step == models.StateLoginPassword:
		b.handleLoginPassword(ctx, update, text)

	case state != nil && state.Step == models.StateRegisterEmail:
		b.handleRegisterEmail(ctx, update, text)

	case state != nil && state.Step == models.StateRegisterPass:
		b.handleRegisterPassword(ctx, update, text)

	case state != nil && state.Step == models.StateRegisterStudent:
		b.handleRegisterStudentID(ctx, update, text)

	case state != nil && state.Step == models.StateCancelReason:
		b.handleCancelReason(ctx, update, text)

	default:
		b.handleMainMenu(ctx, update)
	}
}

// handleStart greets the chat and walks first-time users through the
// tutorial before showing the menu.
func (b *Bot) handleStart(ctx context.Context, update tgbotapi.Update) {
	chatID := update.Message.Chat.ID

	if !b.auth.TutorialSeen(ctx, chatID) {
		b.showTutorial(ctx, chatID)
	}

	b.handleMainMenu(ctx, update)
}

func (b *Bot) showTutorial(ctx context.Context, chatID int64) {
	tutorial := "👋 *Welcome to the Library Seat Reservation bot!*\n\n" +
		"Here is how it works:\n\n" +
		"1️⃣ *Reserve* - pick a time slot, duration and a seat on the floor map. Slots run up to 3 hours, up to 36 hours ahead.\n" +
		"2️⃣ *Scan in* - use Entry Scan when you arrive. Entry requires an active reservation.\n" +
		"3️⃣ *Take breaks wisely* - you have a 15 minute break budget per session.\n" +
		"4️⃣ *Finish* - complete your session or scan out at the exit. Completing on time grows your library score and streak.\n\n" +
		"🏆 Check the leaderboard to see how you rank against other students!"

	msg := tgbotapi.NewMessage(chatID, tutorial)
	msg.ParseMode = "Markdown"
	if _, err := b.tgService.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send tutorial")
	}

	if err := b.auth.MarkTutorialSeen(ctx, chatID); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to mark tutorial seen")
	}
}

func (b *Bot) showHelp(ctx context.Context, update tgbotapi.Update) {
	help := "📖 Commands:\n\n" +
		"/start - main menu\n" +
		"/help - this message\n\n" +
		"Use the keyboard buttons to reserve seats, manage reservations and scan in or out."
	b.sendMessage(update.Message.Chat.ID, help)
}
