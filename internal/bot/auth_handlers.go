package bot

import (
	"context"
	"fmt"
	"strings"

	"libseat/internal/models"
	"libseat/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) startLoginFlow(ctx context.Context, update tgbotapi.Update) {
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	b.setUserState(ctx, userID, models.StateLoginEmail, nil)

	if saved := b.auth.SavedEmail(ctx, chatID); saved != "" {
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📧 "+saved, "login_saved_email"),
			),
		)
		if _, err := b.tgService.SendWithInlineKeyboard(chatID, "Enter your email, or use the saved one:", keyboard); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to prompt login email")
		}
		return
	}

	b.sendMessage(chatID, "Enter your email:")
}

func (b *Bot) handleLoginEmail(ctx context.Context, update tgbotapi.Update, text string) {
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	email := strings.TrimSpace(text)
	if !strings.Contains(email, "@") {
		b.sendMessage(chatID, "⚠️ That does not look like an email. Try again:")
		return
	}

	b.setUserState(ctx, userID, models.StateLoginPassword, map[string]interface{}{
		"login_email": email,
	})
	b.sendMessage(chatID, "Enter your password:")
}

func (b *Bot) handleLoginPassword(ctx context.Context, update tgbotapi.Update, text string) {
	userID := update.Message.From.ID

	state := b.getUserState(ctx, userID)
	if state == nil || state.GetString("login_email") == "" {
		b.sendMessage(update.Message.Chat.ID, "⚠️ Login flow expired, please start over.")
		b.handleMainMenu(ctx, update)
		return
	}

	state.Data["login_password"] = text
	b.setUserState(ctx, userID, models.StateLoginPassword, state.Data)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💾 Remember my email", "login_remember:yes"),
			tgbotapi.NewInlineKeyboardButtonData("Skip", "login_remember:no"),
		),
	)
	if _, err := b.tgService.SendWithInlineKeyboard(update.Message.Chat.ID, "Remember your email for next time?", keyboard); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", update.Message.Chat.ID).Msg("Failed to prompt remember me")
	}
}

// finishLogin performs the actual login once the remember-me choice lands.
func (b *Bot) finishLogin(ctx context.Context, update tgbotapi.Update, rememberMe bool) {
	callback := update.CallbackQuery
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID

	state := b.getUserState(ctx, userID)
	if state == nil {
		b.sendMessage(chatID, "⚠️ Login flow expired, please start over.")
		return
	}

	email := state.GetString("login_email")
	password := state.GetString("login_password")
	b.clearUserState(ctx, userID)

	user, err := b.auth.Login(ctx, chatID, email, password, rememberMe)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("✅ Welcome back! Logged in as %s (student %s).", user.Email, user.StudentID))
	b.handleMainMenu(ctx, update)
}

func (b *Bot) startRegisterFlow(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	b.setUserState(ctx, userID, models.StateRegisterEmail, nil)
	b.sendMessage(update.Message.Chat.ID, "Let's create your account.\n\nEnter your email:")
}

func (b *Bot) handleRegisterEmail(ctx context.Context, update tgbotapi.Update, text string) {
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	email := strings.TrimSpace(text)
	if !strings.Contains(email, "@") {
		b.sendMessage(chatID, "⚠️ That does not look like an email. Try again:")
		return
	}

	b.setUserState(ctx, userID, models.StateRegisterPass, map[string]interface{}{
		"register_email": email,
	})
	b.sendMessage(chatID, "Choose a password (at least 6 characters):")
}

func (b *Bot) handleRegisterPassword(ctx context.Context, update tgbotapi.Update, text string) {
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	if len(text) < 6 {
		b.sendMessage(chatID, "⚠️ Password too short, at least 6 characters please:")
		return
	}

	state := b.getUserState(ctx, userID)
	if state == nil {
		b.sendMessage(chatID, "⚠️ Registration flow expired, please start over.")
		return
	}

	state.Data["register_password"] = text
	b.setUserState(ctx, userID, models.StateRegisterStudent, state.Data)
	b.sendMessage(chatID, "Enter your 9-digit student number:")
}

func (b *Bot) handleRegisterStudentID(ctx context.Context, update tgbotapi.Update, text string) {
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	studentID := strings.TrimSpace(text)
	if !service.ValidStudentID(studentID) {
		b.sendMessage(chatID, "⚠️ The student number must be exactly 9 digits. Try again:")
		return
	}

	state := b.getUserState(ctx, userID)
	if state == nil {
		b.sendMessage(chatID, "⚠️ Registration flow expired, please start over.")
		return
	}

	email := state.GetString("register_email")
	password := state.GetString("register_password")
	b.clearUserState(ctx, userID)

	user, err := b.auth.Register(ctx, chatID, email, password, studentID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("🎉 Account created! Logged in as %s.", user.Email))
	b.handleMainMenu(ctx, update)
}

func (b *Bot) showProfile(ctx context.Context, update tgbotapi.Update) {
	chatID := update.Message.Chat.ID

	user, err := b.auth.Profile(ctx, chatID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	score, scoreErr := b.auth.Score(ctx, chatID)
	if scoreErr != nil {
		score = user.LibraryScore
	}

	var sb strings.Builder
	sb.WriteString("👤 *Your Profile*\n\n")
	sb.WriteString(fmt.Sprintf("📧 %s\n", user.Email))
	sb.WriteString(fmt.Sprintf("🎓 Student No: %s\n\n", user.StudentID))
	sb.WriteString(fmt.Sprintf("🏆 Library score: %d\n", score))
	sb.WriteString(fmt.Sprintf("🔥 Completion streak: %d\n", user.SuccessfulCompletionsStreak))
	if user.NoShowStreak > 0 {
		sb.WriteString(fmt.Sprintf("🚫 No-show streak: %d\n", user.NoShowStreak))
	}
	if user.BreakViolationStreak > 0 {
		sb.WriteString(fmt.Sprintf("⏰ Break violation streak: %d\n", user.BreakViolationStreak))
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnExportHist, "profile_export"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnLogout, "profile_logout"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboard
	if _, err := b.tgService.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send profile")
	}
}

func (b *Bot) handleLogout(ctx context.Context, update tgbotapi.Update) {
	chatID := update.CallbackQuery.Message.Chat.ID
	userID := update.CallbackQuery.From.ID

	if err := b.auth.Logout(ctx, chatID); err != nil {
		b.sendError(chatID, err)
		return
	}

	b.clearUserState(ctx, userID)
	b.sendMessage(chatID, "👋 Logged out. Your saved email stays for the next login.")
	b.handleMainMenu(ctx, update)
}
