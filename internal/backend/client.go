package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"libseat/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Client talks to the remote seat-reservation backend. The backend owns all
// business logic; this client only shapes requests and decodes responses.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	redis    *redis.Client
	cacheTTL time.Duration
}

// New constructs a client for baseURL with an outbound rate limiter.
func New(baseURL string, timeout time.Duration, rps float64, burst int) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = int(rps)
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// UseRedisCache configures optional Redis caching for read endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// Register creates a new user account.
func (c *Client) Register(ctx context.Context, email, password, studentID string) (*models.User, error) {
	var user models.User
	body := models.RegisterRequest{Email: email, Password: password, StudentID: studentID}
	if err := c.doPost(ctx, "/api/users/register", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates by email/password and returns the user.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	body := models.LoginRequest{Email: email, Password: password}
	if err := c.doPost(ctx, "/api/users/login", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Profile fetches the user entity.
func (c *Client) Profile(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	endpoint := fmt.Sprintf("/api/users/me?userId=%d", userID)
	if err := c.doGet(ctx, endpoint, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// AllUsers returns every user; feeds the leaderboard.
func (c *Client) AllUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if c.readCache(ctx, "users:all", &users) {
		return users, nil
	}
	if err := c.doGet(ctx, "/api/users/all", &users); err != nil {
		return nil, err
	}
	c.writeCache(ctx, "users:all", users)
	return users, nil
}

// Score returns the user's current library score.
func (c *Client) Score(ctx context.Context, userID int64) (int, error) {
	var score int
	endpoint := fmt.Sprintf("/api/users/me/score?userId=%d", userID)
	if err := c.doGet(ctx, endpoint, &score); err != nil {
		return 0, err
	}
	return score, nil
}

// CreateReservation submits a new reservation. Conflict detection is
// backend-side; a 409 comes back as an APIError with CategoryConflict.
func (c *Client) CreateReservation(ctx context.Context, req models.CreateReservationRequest) (*models.Reservation, error) {
	var created models.Reservation
	if err := c.doPost(ctx, "/api/reservations", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Reservation fetches one reservation by id.
func (c *Client) Reservation(ctx context.Context, id int64) (*models.Reservation, error) {
	var r models.Reservation
	if err := c.doGet(ctx, fmt.Sprintf("/api/reservations/%d", id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UserReservations lists every reservation owned by the user.
func (c *Client) UserReservations(ctx context.Context, userID int64) ([]models.Reservation, error) {
	var list []models.Reservation
	if err := c.doGet(ctx, fmt.Sprintf("/api/reservations/user/%d", userID), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// RoomReservations lists every reservation in a room.
func (c *Client) RoomReservations(ctx context.Context, roomID string) ([]models.Reservation, error) {
	var list []models.Reservation
	endpoint := "/api/reservations/room/" + url.PathEscape(roomID)
	if err := c.doGet(ctx, endpoint, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ActiveReservations lists system-wide active reservations.
func (c *Client) ActiveReservations(ctx context.Context) ([]models.Reservation, error) {
	var list []models.Reservation
	if err := c.doGet(ctx, "/api/reservations/active", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CancelReservation cancels with a reason; the status transition happens
// server-side.
func (c *Client) CancelReservation(ctx context.Context, id int64, reason string) (*models.Reservation, error) {
	var r models.Reservation
	endpoint := fmt.Sprintf("/api/reservations/%d/cancel?cancellationReason=%s", id, url.QueryEscape(reason))
	if err := c.doPost(ctx, endpoint, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CompleteReservation marks the reservation completed.
func (c *Client) CompleteReservation(ctx context.Context, id int64, wasCompliant bool) (*models.Reservation, error) {
	var r models.Reservation
	endpoint := fmt.Sprintf("/api/reservations/%d/complete?wasCompliant=%s", id, strconv.FormatBool(wasCompliant))
	if err := c.doPost(ctx, endpoint, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UserNotifications lists notifications, optionally filtered by read state.
func (c *Client) UserNotifications(ctx context.Context, userID int64, isRead *bool) ([]models.Notification, error) {
	endpoint := fmt.Sprintf("/api/notifications/user/%d", userID)
	if isRead != nil {
		endpoint += "?isRead=" + strconv.FormatBool(*isRead)
	}
	var list []models.Notification
	if err := c.doGet(ctx, endpoint, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// UnreadCount returns the unread notification count.
func (c *Client) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	endpoint := fmt.Sprintf("/api/notifications/user/%d/unread/count", userID)
	if err := c.doGet(ctx, endpoint, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkNotificationRead flips one notification to read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	return c.doPut(ctx, fmt.Sprintf("/api/notifications/%d/read", id))
}

// MarkAllNotificationsRead flips every notification of the user to read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context, userID int64) error {
	return c.doPut(ctx, fmt.Sprintf("/api/notifications/user/%d/read-all", userID))
}

// DeleteNotification removes one notification.
func (c *Client) DeleteNotification(ctx context.Context, id int64) error {
	return c.doDelete(ctx, fmt.Sprintf("/api/notifications/%d", id))
}

// Scan records a library ENTRY/EXIT event through the adapter.
func (c *Client) Scan(ctx context.Context, req models.ScanRequest) error {
	return c.doPost(ctx, "/adapter/library/scan", req, nil)
}

// Ping probes backend reachability for health checks.
func (c *Client) Ping(ctx context.Context) error {
	var list []models.Reservation
	return c.doGet(ctx, "/api/reservations/active", &list)
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, endpoint string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) doPut(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) doDelete(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Message:    extractMessage(body, resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}
