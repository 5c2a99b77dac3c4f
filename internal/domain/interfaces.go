package domain

import (
	"context"
	"time"

	"libseat/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Backend is the remote reservation service surface the app consumes.
// All conflict detection, scoring, streak tracking and notification
// delivery happen behind it.
type Backend interface {
	Register(ctx context.Context, email, password, studentID string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Profile(ctx context.Context, userID int64) (*models.User, error)
	AllUsers(ctx context.Context) ([]models.User, error)
	Score(ctx context.Context, userID int64) (int, error)

	CreateReservation(ctx context.Context, req models.CreateReservationRequest) (*models.Reservation, error)
	Reservation(ctx context.Context, id int64) (*models.Reservation, error)
	UserReservations(ctx context.Context, userID int64) ([]models.Reservation, error)
	RoomReservations(ctx context.Context, roomID string) ([]models.Reservation, error)
	ActiveReservations(ctx context.Context) ([]models.Reservation, error)
	CancelReservation(ctx context.Context, id int64, reason string) (*models.Reservation, error)
	CompleteReservation(ctx context.Context, id int64, wasCompliant bool) (*models.Reservation, error)
	RoomPendingReservations(ctx context.Context, roomID string, start, end time.Time) ([]models.Reservation, error)
	PendingForTimeSlot(ctx context.Context, start, end time.Time) ([]models.Reservation, error)

	UserNotifications(ctx context.Context, userID int64, isRead *bool) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context, userID int64) error
	DeleteNotification(ctx context.Context, id int64) error

	Scan(ctx context.Context, req models.ScanRequest) error
}

// SessionStore is the device-local key/value store.
type SessionStore interface {
	Get(ctx context.Context, chatID int64, key string) (string, error)
	Set(ctx context.Context, chatID int64, key, value string) error
	Remove(ctx context.Context, chatID int64, key string) error
	MultiRemove(ctx context.Context, chatID int64, keys ...string) error
}

type StateRepository interface {
	GetState(ctx context.Context, userID int64) (*models.UserState, error)
	SetState(ctx context.Context, state *models.UserState) error
	ClearState(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type StateManager interface {
	GetUserState(ctx context.Context, userID int64) (*models.UserState, error)
	SetUserState(ctx context.Context, userID int64, step string, data map[string]interface{}) error
	ClearUserState(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramService interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendWithKeyboard(chatID int64, text string, keyboard tgbotapi.ReplyKeyboardMarkup) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	AnswerCallback(callbackID string, text string) error
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// SheetsWriter publishes the leaderboard to a staff spreadsheet.
type SheetsWriter interface {
	UpdateLeaderboardSheet(ctx context.Context, users []models.User) error
}
