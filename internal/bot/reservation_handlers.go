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

// startReservationFlow opens the wizard: day, start hour, duration,
// occupancy check, floor, seat, confirmation.
func (b *Bot) startReservationFlow(ctx context.Context, update tgbotapi.Update) {
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	if !b.isLoggedIn(ctx, chatID) {
		b.sendMessage(chatID, "🔑 Please log in first.")
		return
	}

	b.setUserState(ctx, userID, models.StateSelectTime, nil)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Today", "res_date:0"),
			tgbotapi.NewInlineKeyboardButtonData("📅 Tomorrow", "res_date:1"),
		),
	)
	if _, err := b.tgService.SendWithInlineKeyboard(chatID, "When would you like to study?", keyboard); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to prompt reservation date")
	}
}

func (b *Bot) handleDateSelected(ctx context.Context, update tgbotapi.Update, dayOffset int) {
	chatID := update.CallbackQuery.Message.Chat.ID
	userID := update.CallbackQuery.From.ID

	b.setUserState(ctx, userID, models.StateSelectTime, map[string]interface{}{
		"date_offset": dayOffset,
	})

	now := time.Now()
	firstHour := 9
	if dayOffset == 0 && now.Hour() >= firstHour {
		firstHour = now.Hour() + 1
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for hour := firstHour; hour <= 22; hour++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%02d:00", hour),
			fmt.Sprintf("res_hour:%d", hour),
		))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		b.sendMessage(chatID, "⚠️ No slots left today. Try tomorrow.")
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.tgService.SendWithInlineKeyboard(chatID, "Pick a start time:", keyboard); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to prompt start time")
	}
}

func (b *Bot) handleHourSelected(ctx context.Context, update tgbotapi.Update, hour int) {
	chatID := update.CallbackQuery.Message.Chat.ID
	userID := update.CallbackQuery.From.ID

	state := b.getUserState(ctx, userID)
	if state == nil {
		b.sendMessage(chatID, "⚠️ Session expired, start a new reservation.")
		return
	}

	state.Data["start_hour"] = hour
	b.setUserState(ctx, userID, models.StateSelectDuration, state.Data)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("1 hour", "res_dur:1"),
			tgbotapi.NewInlineKeyboardButtonData("2 hours", "res_dur:2"),
			tgbotapi.NewInlineKeyboardButtonData("3 hours", "res_dur:3"),
		),
	)
	if _, err := b.tgService.SendWithInlineKeyboard(chatID, "How long will you stay?", keyboard); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to prompt duration")
	}
}

// handleDurationSelected runs the occupancy analysis for the chosen window
// and offers a floor.
func (b *Bot) handleDurationSelected(ctx context.Context, update tgbotapi.Update, duration int) {
	chatID := update.CallbackQuery.Message.Chat.ID
	userID := update.CallbackQuery.From.ID

	state := b.getUserState(ctx, userID)
	if state == nil {
		b.sendMessage(chatID, "⚠️ Session expired, start a new reservation.")
		return
	}

	state.Data["duration"] = duration
	b.setUserState(ctx, userID, models.StateSelectFloor, state.Data)

	start, end := b.slotFromState(state, duration)
	analysis := b.estimator.Analyze(ctx, b.config.Bot.RoomID, start, end)

	if b.metrics != nil {
		b.metrics.AvailabilityQuality.WithLabelValues(analysis.Quality.String()).Inc()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s *Occupancy for %s - %s*\n\n",
		qualityIcon(analysis.Quality),
		start.Format("02.01 15:04"),
		end.Format("15:04")))
	sb.WriteString(fmt.Sprintf("🪑 Free seats: %d of %d (%d%% occupied)\n\n",
		analysis.AvailableSeats, analysis.TotalSeats, analysis.OccupancyPercent))
	for _, rec := range analysis.Recommendations {
		sb.WriteString(rec + "\n")
	}
	sb.WriteString("\nPick a floor:")

	var row []tgbotapi.InlineKeyboardButton
	for f := 1; f <= b.config.Bot.Floors; f++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("Floor %d", f),
			fmt.Sprintf("res_floor:%d", f),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(row)

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboard
	if _, err := b.tgService.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send occupancy analysis")
	}
}

func (b *Bot) handleFloorSelected(ctx context.Context, update tgbotapi.Update, floor int) {
	userID := update.CallbackQuery.From.ID

	state := b.getUserState(ctx, userID)
	if state == nil {
		b.sendMessage(update.CallbackQuery.Message.Chat.ID, "⚠️ Session expired, start a new reservation.")
		return
	}

	state.Data["floor"] = floor
	state.Data["tables_page"] = 0
	b.setUserState(ctx, userID, models.StateSelectSeat, state.Data)

	b.sendSeatMap(ctx, update.CallbackQuery.Message.Chat.ID, userID, 0, 0)
}

// sendSeatMap renders one page of the floor's tables as a text grid with
// buttons for the free seats. messageID != 0 edits in place on page flips.
func (b *Bot) sendSeatMap(ctx context.Context, chatID, userID int64, page, messageID int) {
	state := b.getUserState(ctx, userID)
	if state == nil {
		b.sendMessage(chatID, "⚠️ Session expired, start a new reservation.")
		return
	}

	floor := state.GetInt("floor")
	duration := state.GetInt("duration")
	start, end := b.slotFromState(state, duration)

	desks, stats, quality := b.estimator.FloorMap(ctx, b.config.Bot.RoomID, floor, start, end)

	state.Data["tables_page"] = page
	b.setUserState(ctx, userID, models.StateSelectSeat, state.Data)

	// Group desks by table for rendering.
	byTable := make(map[int][]models.Desk)
	var tables []int
	for _, d := range desks {
		if _, seen := byTable[d.Table]; !seen {
			tables = append(tables, d.Table)
		}
		byTable[d.Table] = append(byTable[d.Table], d)
	}

	perPage := b.config.Bot.PaginationSize
	if perPage <= 0 {
		perPage = models.DefaultPaginationSize
	}
	totalPages := (len(tables) + perPage - 1) / perPage
	if page >= totalPages && totalPages > 0 {
		page = totalPages - 1
	}
	startIdx := page * perPage
	endIdx := startIdx + perPage
	if endIdx > len(tables) {
		endIdx = len(tables)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s *Floor %d* - %d free of %d seats\n",
		qualityIcon(quality), floor, stats.AvailableSeats, stats.TotalSeats))
	if quality == models.QualityEstimated {
		sb.WriteString("_Estimated occupancy, live data unavailable._\n")
	}
	if totalPages > 1 {
		sb.WriteString(fmt.Sprintf("Page %d of %d\n", page+1, totalPages))
	}
	sb.WriteString("\n")

	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, table := range tables[startIdx:endIdx] {
		seats := byTable[table]
		sb.WriteString(fmt.Sprintf("Table %d: ", table))

		var seatRow []tgbotapi.InlineKeyboardButton
		for _, d := range seats {
			switch d.State {
			case models.DeskAvailable:
				sb.WriteString("🟢")
				seatRow = append(seatRow, tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("🪑 %s", d.ID),
					fmt.Sprintf("res_seat:%d:%d", d.Table, d.Seat),
				))
			case models.DeskPending:
				sb.WriteString("🟡")
			default:
				sb.WriteString("🔴")
			}
		}
		sb.WriteString("\n")
		if len(seatRow) > 0 {
			keyboard = append(keyboard, seatRow)
		}
	}

	var navButtons []tgbotapi.InlineKeyboardButton
	if page > 0 {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", fmt.Sprintf("res_tables_page:%d", page-1)))
	}
	if endIdx < len(tables) {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", fmt.Sprintf("res_tables_page:%d", page+1)))
	}
	if len(navButtons) > 0 {
		keyboard = append(keyboard, navButtons)
	}
	keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("❌ Abort", "res_abort"),
	})

	markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)

	if messageID != 0 {
		editMsg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, sb.String(), markup)
		editMsg.ParseMode = "Markdown"
		if _, err := b.tgService.Send(editMsg); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to edit seat map")
		}
		return
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = markup
	if _, err := b.tgService.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send seat map")
	}
}

func (b *Bot) handleSeatSelected(ctx context.Context, update tgbotapi.Update, table, seat int) {
	chatID := update.CallbackQuery.Message.Chat.ID
	userID := update.CallbackQuery.From.ID

	state := b.getUserState(ctx, userID)
	if state == nil {
		b.sendMessage(chatID, "⚠️ Session expired, start a new reservation.")
		return
	}

	state.Data["table"] = table
	state.Data["seat"] = seat
	b.setUserState(ctx, userID, models.StateConfirmation, state.Data)

	duration := state.GetInt("duration")
	start, end := b.slotFromState(state, duration)

	summary := fmt.Sprintf("📋 *Reservation Summary*\n\n"+
		"🪑 Desk: %s\n"+
		"📅 Date: %s\n"+
		"🕐 Time: %s - %s (%dh)\n\n"+
		"Confirm?",
		models.DeskID(table, seat),
		start.Format("02.01.2006"),
		start.Format("15:04"), end.Format("15:04"), duration)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", "res_confirm"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Abort", "res_abort"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, summary)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboard
	if _, err := b.tgService.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send summary")
	}
}

func (b *Bot) handleReservationConfirm(ctx context.Context, update tgbotapi.Update) {
	chatID := update.CallbackQuery.Message.Chat.ID
	userID := update.CallbackQuery.From.ID

	state := b.getUserState(ctx, userID)
	if state == nil {
		b.sendMessage(chatID, "⚠️ Session expired, start a new reservation.")
		return
	}

	table := state.GetInt("table")
	seat := state.GetInt("seat")
	duration := state.GetInt("duration")
	start, end := b.slotFromState(state, duration)

	b.clearUserState(ctx, userID)

	reservation, err := b.reservations.Create(ctx, chatID, table, seat, start, end)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	if b.metrics != nil {
		b.metrics.ReservationsCreated.WithLabelValues(reservation.RoomID).Inc()
	}

	b.sendMessage(chatID, fmt.Sprintf(
		"✅ Reservation #%d confirmed!\n\n🪑 Desk %s\n🕐 %s - %s\n\nScan in at the entrance when you arrive.",
		reservation.ID,
		reservation.DeskID,
		reservation.StartTime.Format("02.01 15:04"),
		reservation.EndTime.Format("15:04")))
}

// slotFromState rebuilds the chosen window from the wizard state.
func (b *Bot) slotFromState(state *models.UserState, durationHours int) (time.Time, time.Time) {
	now := time.Now()
	date := now.AddDate(0, 0, state.GetInt("date_offset"))
	if durationHours <= 0 {
		durationHours = 1
	}
	start := time.Date(date.Year(), date.Month(), date.Day(), state.GetInt("start_hour"), 0, 0, 0, time.Local)
	end := start.Add(time.Duration(durationHours) * time.Hour)
	return start, end
}

func (b *Bot) showMyReservations(ctx context.Context, update tgbotapi.Update) {
	chatID := update.Message.Chat.ID

	groups, err := b.reservations.Grouped(ctx, chatID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	now := time.Now()
	var sb strings.Builder
	var keyboard [][]tgbotapi.InlineKeyboardButton

	if len(groups.Active) == 0 && len(groups.Upcoming) == 0 && len(groups.Past) == 0 {
		b.sendMessage(chatID, "📭 You have no reservations yet. Reserve a seat to get started!")
		return
	}

	if len(groups.Active) > 0 {
		breakState, breakErr := b.reservations.BreakState(ctx, chatID)
		if breakErr != nil {
			b.logger.Warn().Err(breakErr).Int64("chat_id", chatID).Msg("Failed to load break state")
		}

		sb.WriteString("▶️ *Active*\n\n")
		for _, r := range groups.Active {
			// While on break the session countdown is frozen at the
			// moment the break started.
			displayNow := now
			if breakState != nil && breakState.OnBreak && breakState.ReservationID == r.ID {
				displayNow = breakState.StartedAt
			}
			sb.WriteString(formatReservation(r, displayNow))
			if breakState != nil && breakState.ReservationID == r.ID {
				sb.WriteString(formatBreakLine(breakState))
			}
			sb.WriteString("\n")

			keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("🏁 Complete #%d", r.ID),
					fmt.Sprintf("res_complete:%d", r.ID)),
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("❌ Cancel #%d", r.ID),
					fmt.Sprintf("res_cancel:%d", r.ID)),
			})
			if breakState != nil && breakState.ReservationID == r.ID {
				switch {
				case breakState.OnBreak:
					keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
						tgbotapi.NewInlineKeyboardButtonData(btnEndBreak, "res_break:stop"),
					})
				case breakState.Remaining > 0:
					keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
						tgbotapi.NewInlineKeyboardButtonData(btnStartBreak, "res_break:start"),
					})
				}
			}
		}
	}

	if len(groups.Upcoming) > 0 {
		sb.WriteString("📅 *Upcoming*\n\n")
		for _, r := range groups.Upcoming {
			sb.WriteString(formatReservation(r, now))
			sb.WriteString("\n")
			keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("❌ Cancel #%d", r.ID),
					fmt.Sprintf("res_cancel:%d", r.ID)),
			})
		}
	}

	if len(groups.Past) > 0 {
		sb.WriteString("🗂 *History*\n\n")
		limit := len(groups.Past)
		if limit > 5 {
			limit = 5
		}
		for _, r := range groups.Past[:limit] {
			sb.WriteString(formatReservation(r, now))
			sb.WriteString("\n")
		}
		keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(btnExportHist, "profile_export"),
		})
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ParseMode = "Markdown"
	if len(keyboard) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	}
	if _, err := b.tgService.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reservations")
	}
}

// handleBreakToggle starts or ends a break on the active reservation.
func (b *Bot) handleBreakToggle(ctx context.Context, update tgbotapi.Update, start bool) {
	chatID := update.CallbackQuery.Message.Chat.ID

	var (
		state *service.BreakState
		err   error
	)
	if start {
		state, err = b.reservations.StartBreak(ctx, chatID)
	} else {
		state, err = b.reservations.EndBreak(ctx, chatID)
	}
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	if start {
		b.sendMessage(chatID, fmt.Sprintf(
			"☕️ Break started. You have %s of break time left. Your seat stays yours.",
			formatCountdown(state.Remaining)))
		return
	}
	b.sendMessage(chatID, fmt.Sprintf(
		"🔙 Welcome back! %s of break time left for this reservation.",
		formatCountdown(state.Remaining)))
}

// handleCancelRequested asks for a cancellation reason with an option to
// skip straight to the default one.
func (b *Bot) handleCancelRequested(ctx context.Context, update tgbotapi.Update, reservationID int64) {
	chatID := update.CallbackQuery.Message.Chat.ID
	userID := update.CallbackQuery.From.ID

	b.setUserState(ctx, userID, models.StateCancelReason, map[string]interface{}{
		"cancel_id": reservationID,
	})

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Skip", "cancel_skip"),
		),
	)
	if _, err := b.tgService.SendWithInlineKeyboard(chatID, "Why are you cancelling? Type a reason or skip:", keyboard); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to prompt cancel reason")
	}
}

func (b *Bot) handleCancelReason(ctx context.Context, update tgbotapi.Update, reason string) {
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	b.finishCancel(ctx, chatID, userID, reason)
}

func (b *Bot) finishCancel(ctx context.Context, chatID, userID int64, reason string) {
	state := b.getUserState(ctx, userID)
	if state == nil {
		b.sendMessage(chatID, "⚠️ Nothing to cancel.")
		return
	}
	reservationID := int64(state.GetInt("cancel_id"))
	b.clearUserState(ctx, userID)

	if _, err := b.reservations.Cancel(ctx, chatID, reservationID, reason); err != nil {
		b.sendError(chatID, err)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("❌ Reservation #%d cancelled.", reservationID))
}

func (b *Bot) handleComplete(ctx context.Context, update tgbotapi.Update, reservationID int64) {
	chatID := update.CallbackQuery.Message.Chat.ID

	reservation, err := b.reservations.Complete(ctx, chatID, reservationID, true)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf(
		"🏁 Reservation #%d completed. Thanks for freeing up desk %s!",
		reservation.ID, reservation.DeskID))
}

func (b *Bot) handleEntryScan(ctx context.Context, update tgbotapi.Update) {
	chatID := update.Message.Chat.ID

	if err := b.reservations.EntryScan(ctx, chatID); err != nil {
		b.sendError(chatID, err)
		return
	}

	if b.metrics != nil {
		b.metrics.ScansTotal.WithLabelValues(models.ScanEntry).Inc()
	}
	b.sendMessage(chatID, "🎫 Entry recorded. Enjoy your study session!")
}

// handleExitScan records an exit. Without an active reservation the exit
// still might be legitimate (overstayed slot), so it asks instead of
// refusing.
func (b *Bot) handleExitScan(ctx context.Context, update tgbotapi.Update) {
	chatID := update.Message.Chat.ID

	active, err := b.reservations.ActiveReservation(ctx, chatID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	if active == nil {
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ Yes, scan out", "exit_confirm"),
				tgbotapi.NewInlineKeyboardButtonData("❌ No", "exit_abort"),
			),
		)
		if _, err := b.tgService.SendWithInlineKeyboard(chatID,
			"You have no active reservation right now. Scan out anyway?", keyboard); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to prompt exit confirmation")
		}
		return
	}

	b.doExitScan(ctx, chatID)
}

func (b *Bot) doExitScan(ctx context.Context, chatID int64) {
	if err := b.reservations.RecordScan(ctx, chatID, models.ScanExit); err != nil {
		b.sendError(chatID, err)
		return
	}

	if b.metrics != nil {
		b.metrics.ScansTotal.WithLabelValues(models.ScanExit).Inc()
	}
	b.sendMessage(chatID, "🚪 Exit recorded. See you next time!")
}
