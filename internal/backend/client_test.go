package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libseat/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, 100, 100)
}

func TestClient_CreateReservation_PayloadShape(t *testing.T) {
	var got map[string]interface{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/reservations", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.Reservation{ID: 42, Status: models.StatusPending})
	})

	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local)
	created, err := client.CreateReservation(context.Background(), models.CreateReservationRequest{
		UserID:    7,
		RoomID:    "ROOM-001",
		DeskID:    models.DeskID(12, 3),
		StartTime: models.NewLocalTime(start),
		EndTime:   models.NewLocalTime(start.Add(2 * time.Hour)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)

	assert.Equal(t, float64(7), got["userId"])
	assert.Equal(t, "ROOM-001", got["roomId"])
	assert.Equal(t, "12-3", got["deskId"])
	assert.Equal(t, "2025-06-01T09:00:00", got["startTime"])
	assert.Equal(t, "2025-06-01T11:00:00", got["endTime"])
}

func TestClient_Login(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/login", r.URL.Path)
		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "student@example.edu", req.Email)

		_ = json.NewEncoder(w).Encode(models.User{ID: 7, Email: req.Email, StudentID: "CS2021001"})
	})

	user, err := client.Login(context.Background(), "student@example.edu", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "CS2021001", user.StudentID)
}

func TestClient_CancelReservation_QueryParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reservations/42/cancel", r.URL.Path)
		assert.Equal(t, "User request", r.URL.Query().Get("cancellationReason"))
		_ = json.NewEncoder(w).Encode(models.Reservation{ID: 42, Status: models.StatusCancelled})
	})

	r, err := client.CancelReservation(context.Background(), 42, models.DefaultCancelReason)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, r.Status)
}

func TestClient_CompleteReservation_QueryParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reservations/42/complete", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wasCompliant"))
		_ = json.NewEncoder(w).Encode(models.Reservation{ID: 42, Status: models.StatusCompleted})
	})

	r, err := client.CompleteReservation(context.Background(), 42, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, r.Status)
}

func TestClient_UserNotifications_ReadFilter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notifications/user/7", r.URL.Path)
		switch r.URL.RawQuery {
		case "":
			_ = json.NewEncoder(w).Encode([]models.Notification{{ID: 1}, {ID: 2}})
		case "isRead=false":
			_ = json.NewEncoder(w).Encode([]models.Notification{{ID: 2, IsRead: false}})
		default:
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
	})

	all, err := client.UserNotifications(context.Background(), 7, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	unread := false
	filtered, err := client.UserNotifications(context.Background(), 7, &unread)
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
}

func TestClient_Scan_Payload(t *testing.T) {
	var got models.ScanRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/adapter/library/scan", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	err := client.Scan(context.Background(), models.ScanRequest{
		StudentID: 2021001,
		ScanType:  models.ScanEntry,
		Timestamp: "2025-06-01T09:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2021001), got.StudentID)
	assert.Equal(t, models.ScanEntry, got.ScanType)
}

func TestClient_ErrorExtraction(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"MessageField", 400, `{"message":"start time is in the past"}`, "start time is in the past"},
		{"ErrorField", 409, `{"error":"desk already reserved"}`, "desk already reserved"},
		{"DetailField", 400, `{"detail":"duration too long"}`, "duration too long"},
		{"DetailsField", 400, `{"details":"bad desk id"}`, "bad desk id"},
		{"PlainText", 500, `backend exploded`, "backend exploded"},
		{"EmptyBody", 503, ``, "HTTP 503: Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Profile(context.Background(), 7)
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		status   int
		category Category
	}{
		{400, CategoryValidation},
		{401, CategoryAuth},
		{403, CategoryAuth},
		{404, CategoryNotFound},
		{409, CategoryConflict},
		{500, CategoryServer},
		{503, CategoryServer},
		{418, CategoryUnknown},
	}

	for _, tt := range tests {
		err := &APIError{Status: tt.status, StatusText: http.StatusText(tt.status)}
		assert.Equal(t, tt.category, Categorize(err), "status %d", tt.status)
	}

	assert.Equal(t, CategoryUnknown, Categorize(nil))
	assert.Equal(t, CategoryUnknown, Categorize(assert.AnError))
}

func TestClient_Connectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refused connections from here on

	client := New(srv.URL, time.Second, 100, 100)
	_, err := client.Profile(context.Background(), 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectivity)
	assert.Equal(t, CategoryConnectivity, Categorize(err))
}

func TestClient_RoomPendingReservations_Fallback(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local)
	end := start.Add(2 * time.Hour)

	inWindow := models.Reservation{
		ID: 1, Status: models.StatusPending,
		StartTime: models.NewLocalTime(start.Add(30 * time.Minute)),
		EndTime:   models.NewLocalTime(start.Add(90 * time.Minute)),
	}
	active := models.Reservation{
		ID: 2, Status: models.StatusActive,
		StartTime: models.NewLocalTime(start),
		EndTime:   models.NewLocalTime(end),
	}
	outside := models.Reservation{
		ID: 3, Status: models.StatusPending,
		StartTime: models.NewLocalTime(end),
		EndTime:   models.NewLocalTime(end.Add(time.Hour)),
	}

	t.Run("PrimaryEndpoint", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/reservations/room/ROOM-001/pending", r.URL.Path)
			assert.Equal(t, "2025-06-01T09:00:00", r.URL.Query().Get("startTime"))
			_ = json.NewEncoder(w).Encode([]models.Reservation{inWindow})
		})

		list, err := client.RoomPendingReservations(context.Background(), "ROOM-001", start, end)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("FallbackFilters", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/reservations/room/ROOM-001/pending":
				http.NotFound(w, r)
			case "/api/reservations/room/ROOM-001":
				_ = json.NewEncoder(w).Encode([]models.Reservation{inWindow, active, outside})
			default:
				t.Errorf("unexpected path %q", r.URL.Path)
			}
		})

		list, err := client.RoomPendingReservations(context.Background(), "ROOM-001", start, end)
		require.NoError(t, err)
		// PENDING and overlapping only; ACTIVE and out-of-window dropped.
		require.Len(t, list, 1)
		assert.Equal(t, int64(1), list[0].ID)
	})

	t.Run("BothFail", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.RoomPendingReservations(context.Background(), "ROOM-001", start, end)
		require.Error(t, err)
		var apiErr *APIError
		assert.ErrorAs(t, err, &apiErr)
	})
}

func TestClient_PendingForTimeSlot_Fallback(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local)
	end := start.Add(2 * time.Hour)

	t.Run("FallbackFiltersByOverlap", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/reservations/pending/time-slot":
				http.NotFound(w, r)
			case "/api/reservations/active":
				_ = json.NewEncoder(w).Encode([]models.Reservation{
					{ID: 1, StartTime: models.NewLocalTime(start), EndTime: models.NewLocalTime(end)},
					{ID: 2, StartTime: models.NewLocalTime(end), EndTime: models.NewLocalTime(end.Add(time.Hour))},
				})
			default:
				t.Errorf("unexpected path %q", r.URL.Path)
			}
		})

		list, err := client.PendingForTimeSlot(context.Background(), start, end)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, int64(1), list[0].ID)
	})

	t.Run("BothFail", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.PendingForTimeSlot(context.Background(), start, end)
		assert.Error(t, err)
	})
}

func TestExtractMessage_FieldPrecedence(t *testing.T) {
	body := []byte(`{"message":"first","error":"second"}`)
	assert.Equal(t, "first", extractMessage(body, 400, "Bad Request"))

	body = []byte(`{"error":"second","detail":"third"}`)
	assert.Equal(t, "second", extractMessage(body, 400, "Bad Request"))
}
