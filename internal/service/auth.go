package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"

	"libseat/internal/domain"
	"libseat/internal/events"
	"libseat/internal/models"
	"libseat/internal/session"

	"github.com/rs/zerolog"
)

var studentIDPattern = regexp.MustCompile(`^\d{9}$`)

// ErrNotLoggedIn is returned when an operation requires a stored session
// and the chat has none.
var ErrNotLoggedIn = errors.New("not logged in")

// ValidStudentID reports whether the id is a nine digit student number.
func ValidStudentID(id string) bool {
	return studentIDPattern.MatchString(id)
}

// AuthService owns login, registration and the per-chat session keys.
type AuthService struct {
	backend  domain.Backend
	sessions domain.SessionStore
	bus      domain.EventPublisher
	logger   *zerolog.Logger
}

func NewAuthService(backend domain.Backend, sessions domain.SessionStore, bus domain.EventPublisher, logger *zerolog.Logger) *AuthService {
	return &AuthService{
		backend:  backend,
		sessions: sessions,
		bus:      bus,
		logger:   logger,
	}
}

// Login authenticates against the backend and persists the session keys.
// With rememberMe set the email is kept for prefill on the next login,
// otherwise both remember keys are dropped.
func (s *AuthService) Login(ctx context.Context, chatID int64, email, password string, rememberMe bool) (*models.User, error) {
	user, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Set(ctx, chatID, models.KeyUserID, strconv.FormatInt(user.ID, 10)); err != nil {
		return nil, err
	}
	if err := s.sessions.Set(ctx, chatID, models.KeyUserEmail, user.Email); err != nil {
		return nil, err
	}
	if err := s.sessions.Set(ctx, chatID, models.KeyStudentID, user.StudentID); err != nil {
		return nil, err
	}

	if rememberMe {
		if err := s.sessions.Set(ctx, chatID, models.KeySavedEmail, email); err != nil {
			return nil, err
		}
		if err := s.sessions.Set(ctx, chatID, models.KeyRememberMe, "true"); err != nil {
			return nil, err
		}
	} else {
		if err := s.sessions.MultiRemove(ctx, chatID, models.KeySavedEmail, models.KeyRememberMe); err != nil {
			return nil, err
		}
	}

	// Profile and score prefetch is best effort, the cached copies only
	// feed offline display.
	s.refreshCache(ctx, chatID, user.ID)

	_ = s.bus.PublishJSON(events.EventUserLoggedIn, map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})

	s.logger.Info().Int64("chat_id", chatID).Int64("user_id", user.ID).Msg("user logged in")
	return user, nil
}

// Register creates an account and logs the chat in with the new identity.
func (s *AuthService) Register(ctx context.Context, chatID int64, email, password, studentID string) (*models.User, error) {
	if !ValidStudentID(studentID) {
		return nil, errors.New("student id must be exactly 9 digits")
	}

	_, err := s.backend.Register(ctx, email, password, studentID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("chat_id", chatID).Str("email", email).Msg("user registered")
	return s.Login(ctx, chatID, email, password, false)
}

// Logout removes only the userId key. Remembered email, cached profile
// and the tutorial flag survive so the next login is prefilled.
func (s *AuthService) Logout(ctx context.Context, chatID int64) error {
	userID, _ := s.CurrentUserID(ctx, chatID)

	if err := s.sessions.MultiRemove(ctx, chatID, models.KeyUserID); err != nil {
		return err
	}

	_ = s.bus.PublishJSON(events.EventUserLoggedOut, map[string]interface{}{"user_id": userID})
	s.logger.Info().Int64("chat_id", chatID).Msg("user logged out")
	return nil
}

// CurrentUserID returns the logged in user id or ErrNotLoggedIn.
func (s *AuthService) CurrentUserID(ctx context.Context, chatID int64) (int64, error) {
	raw, err := s.sessions.Get(ctx, chatID, models.KeyUserID)
	if errors.Is(err, session.ErrNotFound) {
		return 0, ErrNotLoggedIn
	}
	if err != nil {
		return 0, err
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrNotLoggedIn
	}
	return id, nil
}

// StudentID returns the stored student number for the chat.
func (s *AuthService) StudentID(ctx context.Context, chatID int64) (string, error) {
	raw, err := s.sessions.Get(ctx, chatID, models.KeyStudentID)
	if errors.Is(err, session.ErrNotFound) {
		return "", ErrNotLoggedIn
	}
	return raw, err
}

// SavedEmail returns the remembered email, or empty when remember me is off.
func (s *AuthService) SavedEmail(ctx context.Context, chatID int64) string {
	remember, err := s.sessions.Get(ctx, chatID, models.KeyRememberMe)
	if err != nil || remember != "true" {
		return ""
	}
	email, err := s.sessions.Get(ctx, chatID, models.KeySavedEmail)
	if err != nil {
		return ""
	}
	return email
}

// Profile fetches the live profile, refreshing the cached copy on success
// and falling back to the cache when the backend is unreachable.
func (s *AuthService) Profile(ctx context.Context, chatID int64) (*models.User, error) {
	userID, err := s.CurrentUserID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	user, err := s.backend.Profile(ctx, userID)
	if err != nil {
		if cached := s.cachedProfile(ctx, chatID); cached != nil {
			s.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("serving cached profile")
			return cached, nil
		}
		return nil, err
	}

	if raw, merr := json.Marshal(user); merr == nil {
		_ = s.sessions.Set(ctx, chatID, models.KeyUserProfile, string(raw))
	}
	return user, nil
}

// Score fetches the live library score, caching it for offline display.
func (s *AuthService) Score(ctx context.Context, chatID int64) (int, error) {
	userID, err := s.CurrentUserID(ctx, chatID)
	if err != nil {
		return 0, err
	}

	score, err := s.backend.Score(ctx, userID)
	if err != nil {
		if raw, gerr := s.sessions.Get(ctx, chatID, models.KeyUserScore); gerr == nil {
			if cached, perr := strconv.Atoi(raw); perr == nil {
				return cached, nil
			}
		}
		return 0, err
	}

	_ = s.sessions.Set(ctx, chatID, models.KeyUserScore, strconv.Itoa(score))
	return score, nil
}

// TutorialSeen reports whether the chat already walked through the tutorial.
func (s *AuthService) TutorialSeen(ctx context.Context, chatID int64) bool {
	raw, err := s.sessions.Get(ctx, chatID, models.KeyTutorialSeen)
	return err == nil && raw == "true"
}

// MarkTutorialSeen records that the tutorial was shown.
func (s *AuthService) MarkTutorialSeen(ctx context.Context, chatID int64) error {
	return s.sessions.Set(ctx, chatID, models.KeyTutorialSeen, "true")
}

func (s *AuthService) cachedProfile(ctx context.Context, chatID int64) *models.User {
	raw, err := s.sessions.Get(ctx, chatID, models.KeyUserProfile)
	if err != nil {
		return nil
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	return &user
}

func (s *AuthService) refreshCache(ctx context.Context, chatID, userID int64) {
	if user, err := s.backend.Profile(ctx, userID); err == nil {
		if raw, merr := json.Marshal(user); merr == nil {
			_ = s.sessions.Set(ctx, chatID, models.KeyUserProfile, string(raw))
		}
	}
	if score, err := s.backend.Score(ctx, userID); err == nil {
		_ = s.sessions.Set(ctx, chatID, models.KeyUserScore, strconv.Itoa(score))
	}
}
