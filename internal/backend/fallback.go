package backend

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"libseat/internal/models"
)

// The two pending-reservation endpoints may not exist server-side. A failed
// primary call degrades to a client-side approximation derived from
// endpoints that do exist; only when the approximation also fails does the
// caller see an error.

// RoomPendingReservations returns pending reservations overlapping the
// window in a room. Fallback: all room reservations filtered by
// status=PENDING and overlap.
func (c *Client) RoomPendingReservations(ctx context.Context, roomID string, start, end time.Time) ([]models.Reservation, error) {
	endpoint := fmt.Sprintf("/api/reservations/room/%s/pending?startTime=%s&endTime=%s",
		url.PathEscape(roomID),
		url.QueryEscape(start.Format(models.LocalTimeLayout)),
		url.QueryEscape(end.Format(models.LocalTimeLayout)))

	var list []models.Reservation
	if err := c.doGet(ctx, endpoint, &list); err == nil {
		return list, nil
	}

	all, err := c.RoomReservations(ctx, roomID)
	if err != nil {
		return nil, err
	}

	pending := make([]models.Reservation, 0, len(all))
	for _, r := range all {
		if r.Status == models.StatusPending && r.Overlaps(start, end) {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

// PendingForTimeSlot returns pending reservations overlapping the window
// system-wide. Fallback: active reservations filtered by overlap.
func (c *Client) PendingForTimeSlot(ctx context.Context, start, end time.Time) ([]models.Reservation, error) {
	endpoint := fmt.Sprintf("/api/reservations/pending/time-slot?startTime=%s&endTime=%s",
		url.QueryEscape(start.Format(models.LocalTimeLayout)),
		url.QueryEscape(end.Format(models.LocalTimeLayout)))

	var list []models.Reservation
	if err := c.doGet(ctx, endpoint, &list); err == nil {
		return list, nil
	}

	active, err := c.ActiveReservations(ctx)
	if err != nil {
		return nil, err
	}

	overlapping := make([]models.Reservation, 0, len(active))
	for _, r := range active {
		if r.Overlaps(start, end) {
			overlapping = append(overlapping, r)
		}
	}
	return overlapping, nil
}
