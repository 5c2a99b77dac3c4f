package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"libseat/internal/models"
	"libseat/internal/session"
)

// MockBackend is a mock of the domain.Backend interface.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Register(ctx context.Context, email, password, studentID string) (*models.User, error) {
	args := m.Called(ctx, email, password, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockBackend) Login(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockBackend) Profile(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockBackend) AllUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockBackend) Score(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockBackend) CreateReservation(ctx context.Context, req models.CreateReservationRequest) (*models.Reservation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockBackend) Reservation(ctx context.Context, id int64) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockBackend) UserReservations(ctx context.Context, userID int64) ([]models.Reservation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *MockBackend) RoomReservations(ctx context.Context, roomID string) ([]models.Reservation, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *MockBackend) ActiveReservations(ctx context.Context) ([]models.Reservation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *MockBackend) CancelReservation(ctx context.Context, id int64, reason string) (*models.Reservation, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockBackend) CompleteReservation(ctx context.Context, id int64, wasCompliant bool) (*models.Reservation, error) {
	args := m.Called(ctx, id, wasCompliant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockBackend) RoomPendingReservations(ctx context.Context, roomID string, start, end time.Time) ([]models.Reservation, error) {
	args := m.Called(ctx, roomID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *MockBackend) PendingForTimeSlot(ctx context.Context, start, end time.Time) ([]models.Reservation, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *MockBackend) UserNotifications(ctx context.Context, userID int64, isRead *bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, isRead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockBackend) UnreadCount(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockBackend) MarkNotificationRead(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBackend) MarkAllNotificationsRead(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockBackend) DeleteNotification(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBackend) Scan(ctx context.Context, req models.ScanRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// fakeSessions is an in-memory domain.SessionStore for tests.
type fakeSessions struct {
	mu     sync.Mutex
	values map[int64]map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{values: make(map[int64]map[string]string)}
}

func (f *fakeSessions) Get(ctx context.Context, chatID int64, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if chat, ok := f.values[chatID]; ok {
		if value, ok := chat[key]; ok {
			return value, nil
		}
	}
	return "", session.ErrNotFound
}

func (f *fakeSessions) Set(ctx context.Context, chatID int64, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values[chatID] == nil {
		f.values[chatID] = make(map[string]string)
	}
	f.values[chatID][key] = value
	return nil
}

func (f *fakeSessions) Remove(ctx context.Context, chatID int64, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values[chatID], key)
	return nil
}

func (f *fakeSessions) MultiRemove(ctx context.Context, chatID int64, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.values[chatID], key)
	}
	return nil
}

// recordingBus captures published events.
type recordingBus struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBus) PublishJSON(eventType string, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, eventType)
	return nil
}

func (b *recordingBus) published() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}
