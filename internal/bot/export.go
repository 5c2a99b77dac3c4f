package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleExportHistory(ctx context.Context, update tgbotapi.Update) {
	b.exportHistory(ctx, update.Message.Chat.ID)
}

func (b *Bot) handleExportHistoryCallback(ctx context.Context, update tgbotapi.Update) {
	b.exportHistory(ctx, update.CallbackQuery.Message.Chat.ID)
}

// exportHistory builds an xlsx with the chat's reservation history and
// sends it as a document.
func (b *Bot) exportHistory(ctx context.Context, chatID int64) {
	user, err := b.auth.Profile(ctx, chatID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	groups, err := b.reservations.Grouped(ctx, chatID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	all := append(append(groups.Active, groups.Upcoming...), groups.Past...)
	if len(all) == 0 {
		b.sendMessage(chatID, "📭 Nothing to export yet.")
		return
	}

	filePath, err := b.exporter.ReservationHistory(user, all)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Export failed")
		b.sendMessage(chatID, "❌ Could not build the export file. Please try again later.")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(filePath))
	doc.Caption = "💾 Your reservation history"
	if _, err := b.tgService.Send(doc); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send export document")
	}
}
