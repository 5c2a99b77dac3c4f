package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"libseat/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// endingSoonWindow is how close to the end of a slot the reminder fires.
const endingSoonWindow = 15 * time.Minute

// NotificationSource is the backend subset the poller reads from.
type NotificationSource interface {
	UserNotifications(ctx context.Context, userID int64, isRead *bool) ([]models.Notification, error)
	UserReservations(ctx context.Context, userID int64) ([]models.Reservation, error)
}

// SessionIndex lists the chats that currently hold a session.
type SessionIndex interface {
	LoggedInChats(ctx context.Context) (map[int64]int64, error)
}

// Sender pushes messages to Telegram chats.
type Sender interface {
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
}

// NotifyWorker polls the backend for unread notifications and pushes them
// to the owning chats, plus an ending-soon reminder for active slots. The
// backend has no push channel, so polling is the only delivery path.
type NotifyWorker struct {
	source       NotificationSource
	sessions     SessionIndex
	sender       Sender
	redis        *redis.Client
	pollInterval time.Duration
	logger       *zerolog.Logger

	mu       sync.Mutex
	pushed   map[int64]bool
	reminded map[int64]bool
}

func NewNotifyWorker(source NotificationSource, sessions SessionIndex, sender Sender, redisClient *redis.Client, pollInterval time.Duration, logger *zerolog.Logger) *NotifyWorker {
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return &NotifyWorker{
		source:       source,
		sessions:     sessions,
		sender:       sender,
		redis:        redisClient,
		pollInterval: pollInterval,
		logger:       logger,
		pushed:       make(map[int64]bool),
		reminded:     make(map[int64]bool),
	}
}

// Start runs the poll loop until the context is cancelled.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.pollInterval).Msg("notify worker started")
	defer w.logger.Info().Msg("notify worker stopped")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *NotifyWorker) poll(ctx context.Context) {
	chats, err := w.sessions.LoggedInChats(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to list logged-in chats")
		return
	}

	for chatID, userID := range chats {
		w.pushUnread(ctx, chatID, userID)
		w.remindEndingSoon(ctx, chatID, userID)
	}
}

func (w *NotifyWorker) pushUnread(ctx context.Context, chatID, userID int64) {
	unread := false
	notifications, err := w.source.UserNotifications(ctx, userID, &unread)
	if err != nil {
		w.logger.Warn().Err(err).Int64("user_id", userID).Msg("unread notifications poll failed")
		return
	}

	for _, n := range notifications {
		if !w.firstSeen(ctx, "notify:pushed", n.ID) {
			continue
		}
		text := fmt.Sprintf("🔔 %s", n.Message)
		if _, err := w.sender.SendMessage(chatID, text); err != nil {
			w.logger.Error().Err(err).Int64("chat_id", chatID).Int64("notification_id", n.ID).Msg("failed to push notification")
		}
	}
}

func (w *NotifyWorker) remindEndingSoon(ctx context.Context, chatID, userID int64) {
	reservations, err := w.source.UserReservations(ctx, userID)
	if err != nil {
		w.logger.Warn().Err(err).Int64("user_id", userID).Msg("reservations poll failed")
		return
	}

	now := time.Now()
	for _, r := range reservations {
		if !r.Active(now) || r.Remaining(now) > endingSoonWindow {
			continue
		}
		if !w.firstSeen(ctx, "notify:reminded", r.ID) {
			continue
		}
		text := fmt.Sprintf("⏰ Your reservation for desk %s ends at %s. Complete your session or extend your stay.",
			r.DeskID, r.EndTime.Format("15:04"))
		if _, err := w.sender.SendMessage(chatID, text); err != nil {
			w.logger.Error().Err(err).Int64("chat_id", chatID).Int64("reservation_id", r.ID).Msg("failed to send reminder")
		}
	}
}

// firstSeen reports whether the id has not been handled before and marks
// it handled. Redis backs the check when available so restarts don't
// re-push; otherwise an in-process map does.
func (w *NotifyWorker) firstSeen(ctx context.Context, key string, id int64) bool {
	if w.redis != nil {
		added, err := w.redis.SAdd(ctx, key, id).Result()
		if err == nil {
			return added == 1
		}
		w.logger.Debug().Err(err).Str("key", key).Msg("redis dedupe failed, using memory")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	var seen map[int64]bool
	if key == "notify:pushed" {
		seen = w.pushed
	} else {
		seen = w.reminded
	}
	if seen[id] {
		return false
	}
	seen[id] = true
	return true
}
