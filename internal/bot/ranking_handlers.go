package bot

import (
	"context"
	"fmt"
	"strings"

	"libseat/internal/models"
	"libseat/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	rankTabStudents  = "students"
	rankTabFaculties = "faculties"

	rankSortScore  = "score"
	rankSortStreak = "streak"
)

func medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}

// showLeaderboard renders one page of the students or faculties tab.
// messageID != 0 edits in place on tab switches and page flips.
func (b *Bot) showLeaderboard(ctx context.Context, chatID, userID int64, page int, tab, sortBy string, messageID int) {
	sort := service.SortByScore
	if sortBy == rankSortStreak {
		sort = service.SortByStreak
	}

	board, err := b.ranking.Build(ctx, chatID, sort)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	rows := board.Students
	if tab == rankTabFaculties {
		rows = board.Faculties
	}

	if len(rows) == 0 {
		b.sendMessage(chatID, "📭 The leaderboard is empty.")
		return
	}

	perPage := b.config.Bot.PaginationSize
	if perPage <= 0 {
		perPage = models.DefaultPaginationSize
	}
	totalPages := (len(rows) + perPage - 1) / perPage
	if page >= totalPages {
		page = totalPages - 1
	}
	if page < 0 {
		page = 0
	}
	startIdx := page * perPage
	endIdx := startIdx + perPage
	if endIdx > len(rows) {
		endIdx = len(rows)
	}

	var sb strings.Builder
	sb.WriteString("🏆 *Leaderboard*\n")
	if board.CurrentUserRank > 0 && tab == rankTabStudents {
		sb.WriteString(fmt.Sprintf("Your rank: *#%d*\n", board.CurrentUserRank))
	}
	if totalPages > 1 {
		sb.WriteString(fmt.Sprintf("Page %d of %d\n", page+1, totalPages))
	}
	sb.WriteString("\n")

	for i, row := range rows[startIdx:endIdx] {
		rank := startIdx + i + 1
		switch row.Kind {
		case models.RankStudent:
			st := row.Student
			marker := ""
			if st.IsCurrentUser {
				marker = " ⬅️ you"
			}
			if sortBy == rankSortStreak {
				sb.WriteString(fmt.Sprintf("%s %s - streak %d (score %d)%s\n",
					medal(rank), st.Name, st.Streak, st.Score, marker))
			} else {
				sb.WriteString(fmt.Sprintf("%s %s - %d pts (streak %d)%s\n",
					medal(rank), st.Name, st.Score, st.Streak, marker))
			}
		case models.RankFaculty:
			f := row.Faculty
			sb.WriteString(fmt.Sprintf("%s %s - avg %d pts (%d students)\n",
				medal(rank), f.Name, f.AverageScore, f.StudentCount))
		}
	}

	var keyboard [][]tgbotapi.InlineKeyboardButton

	tabRow := []tgbotapi.InlineKeyboardButton{}
	if tab == rankTabStudents {
		tabRow = append(tabRow,
			tgbotapi.NewInlineKeyboardButtonData("• Students •", noopCallback),
			tgbotapi.NewInlineKeyboardButtonData("Faculties", fmt.Sprintf("rank_tab:%s:%s", rankTabFaculties, sortBy)))
	} else {
		tabRow = append(tabRow,
			tgbotapi.NewInlineKeyboardButtonData("Students", fmt.Sprintf("rank_tab:%s:%s", rankTabStudents, sortBy)),
			tgbotapi.NewInlineKeyboardButtonData("• Faculties •", noopCallback))
	}
	keyboard = append(keyboard, tabRow)

	if tab == rankTabStudents {
		sortRow := []tgbotapi.InlineKeyboardButton{}
		if sortBy == rankSortScore {
			sortRow = append(sortRow,
				tgbotapi.NewInlineKeyboardButtonData("• By score •", noopCallback),
				tgbotapi.NewInlineKeyboardButtonData("By streak", fmt.Sprintf("rank_tab:%s:%s", tab, rankSortStreak)))
		} else {
			sortRow = append(sortRow,
				tgbotapi.NewInlineKeyboardButtonData("By score", fmt.Sprintf("rank_tab:%s:%s", tab, rankSortScore)),
				tgbotapi.NewInlineKeyboardButtonData("• By streak •", noopCallback))
		}
		keyboard = append(keyboard, sortRow)
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Back",
			fmt.Sprintf("rank_page:%s:%s:%d", tab, sortBy, page-1)))
	}
	if endIdx < len(rows) {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡️",
			fmt.Sprintf("rank_page:%s:%s:%d", tab, sortBy, page+1)))
	}
	if len(nav) > 0 {
		keyboard = append(keyboard, nav)
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)

	if messageID != 0 {
		editMsg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, sb.String(), markup)
		editMsg.ParseMode = "Markdown"
		if _, err := b.tgService.Send(editMsg); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to edit leaderboard")
		}
		return
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = markup
	if _, err := b.tgService.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send leaderboard")
	}
}
