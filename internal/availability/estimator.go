// Package availability computes best-effort seat availability for a room
// and time window. It is a presentation heuristic, not a correctness
// mechanism: the backend alone decides conflicts at reservation time.
package availability

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"libseat/internal/models"

	"github.com/rs/zerolog"
)

// ReservationSource is the subset of the backend client the estimator needs.
type ReservationSource interface {
	RoomReservations(ctx context.Context, roomID string) ([]models.Reservation, error)
	RoomPendingReservations(ctx context.Context, roomID string, start, end time.Time) ([]models.Reservation, error)
	PendingForTimeSlot(ctx context.Context, start, end time.Time) ([]models.Reservation, error)
}

// Layout describes the floor map geometry.
type Layout struct {
	Floors         int
	TablesPerFloor int
	SeatsPerTable  int
}

func (l Layout) TotalSeats() int {
	return l.Floors * l.TablesPerFloor * l.SeatsPerTable
}

// Estimator fans out availability queries and degrades to a deterministic
// model when the backend is unreachable.
type Estimator struct {
	source ReservationSource
	layout Layout
	logger *zerolog.Logger
}

func New(source ReservationSource, layout Layout, logger *zerolog.Logger) *Estimator {
	if layout.Floors == 0 {
		layout = Layout{Floors: 4, TablesPerFloor: 50, SeatsPerTable: 4}
	}
	return &Estimator{source: source, layout: layout, logger: logger}
}

// Analysis is the room-level occupancy picture for a window.
type Analysis struct {
	Quality          models.DataQuality
	ConflictCount    int
	TotalSeats       int
	AvailableSeats   int
	OccupancyPercent int
	Recommendations  []string
}

// Analyze issues up to three independent queries for the window. Each is
// attempted regardless of the others; any subset may fail without aborting
// the analysis.
func (e *Estimator) Analyze(ctx context.Context, roomID string, start, end time.Time) *Analysis {
	var (
		wg sync.WaitGroup

		confirmed     []models.Reservation
		roomPending   []models.Reservation
		slotPending   []models.Reservation
		confirmedOK   bool
		roomPendingOK bool
		slotPendingOK bool
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		list, err := e.source.RoomReservations(ctx, roomID)
		if err != nil {
			e.logger.Warn().Err(err).Str("room_id", roomID).Msg("room reservations query failed")
			return
		}
		confirmed, confirmedOK = list, true
	}()
	go func() {
		defer wg.Done()
		list, err := e.source.RoomPendingReservations(ctx, roomID, start, end)
		if err != nil {
			e.logger.Warn().Err(err).Str("room_id", roomID).Msg("room pending query failed")
			return
		}
		roomPending, roomPendingOK = list, true
	}()
	go func() {
		defer wg.Done()
		list, err := e.source.PendingForTimeSlot(ctx, start, end)
		if err != nil {
			e.logger.Warn().Err(err).Msg("time-slot pending query failed")
			return
		}
		slotPending, slotPendingOK = list, true
	}()
	wg.Wait()

	totalSeats := e.layout.TotalSeats()
	succeeded := 0
	for _, ok := range []bool{confirmedOK, roomPendingOK, slotPendingOK} {
		if ok {
			succeeded++
		}
	}

	var conflicts int
	if succeeded == 0 {
		conflicts = estimatedConflicts(start, totalSeats)
	} else {
		for _, r := range confirmed {
			if r.Overlaps(start, end) {
				conflicts++
			}
		}
		conflicts += len(roomPending) + len(slotPending)
	}

	available := totalSeats - conflicts
	if available < 0 {
		available = 0
	}

	analysis := &Analysis{
		Quality:          quality(succeeded, 3),
		ConflictCount:    conflicts,
		TotalSeats:       totalSeats,
		AvailableSeats:   available,
		OccupancyPercent: OccupancyPercent(conflicts, totalSeats),
	}
	analysis.Recommendations = recommendations(analysis, start, end)
	return analysis
}

// OccupancyPercent is round(100*occupied/total) clamped to [0,100].
func OccupancyPercent(occupied, total int) int {
	if total <= 0 {
		return 0
	}
	percent := int(math.Round(float64(occupied) / float64(total) * 100))
	if percent > 100 {
		return 100
	}
	if percent < 0 {
		return 0
	}
	return percent
}

// estimatedConflicts is the room-level fallback: a time-of-day occupancy
// share of the whole room.
func estimatedConflicts(start time.Time, totalSeats int) int {
	hour := start.Hour()
	switch {
	case hour >= 9 && hour <= 17:
		return totalSeats * 70 / 100
	case hour >= 18 && hour <= 22:
		return totalSeats * 50 / 100
	default:
		return totalSeats * 20 / 100
	}
}

func quality(succeeded, attempted int) models.DataQuality {
	switch {
	case succeeded == attempted:
		return models.QualityLive
	case succeeded > 0:
		return models.QualityPartial
	default:
		return models.QualityEstimated
	}
}

func recommendations(a *Analysis, start, end time.Time) []string {
	var recs []string

	switch a.Quality {
	case models.QualityEstimated:
		recs = append(recs, "📊 Showing estimated occupancy - live data is unavailable.")
	case models.QualityPartial:
		recs = append(recs, "📊 Occupancy computed from partial data.")
	}

	switch {
	case a.OccupancyPercent > 80:
		recs = append(recs, "🔴 Very busy time slot. Consider an alternative time.")
	case a.OccupancyPercent > 60:
		recs = append(recs, "🟡 Moderately busy. Reserving early is recommended.")
	case a.OccupancyPercent < 30:
		recs = append(recs, "🟢 Ideal time slot! Plenty of seats available.")
	}

	hour := start.Hour()
	switch {
	case hour >= 9 && hour <= 17:
		recs = append(recs, "📚 Study hours - expect a quiet environment.")
	case hour >= 18 && hour <= 22:
		recs = append(recs, "🌆 Evening hours - a popular time slot.")
	default:
		recs = append(recs, "🌙 Night/morning hours - calm environment.")
	}

	if end.Sub(start) >= time.Duration(models.MaxDurationHours)*time.Hour {
		recs = append(recs, fmt.Sprintf("⏰ Maximum duration (%dh) selected. Remember to plan your breaks.", models.MaxDurationHours))
	}

	return recs
}
