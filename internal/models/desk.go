package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Desk availability classes. Precedence when live data exists:
// reserved > pending > available.
type DeskState int

const (
	DeskAvailable DeskState = iota
	DeskPending
	DeskReserved
)

// Desk is a client-local view model of a single reservable seat, identified
// as "{table}-{seat}". Not a server entity.
type Desk struct {
	ID        string
	Table     int
	Seat      int
	State     DeskState
	Estimated bool
}

func (d Desk) Available() bool { return d.State == DeskAvailable }

// DeskID renders the composite "{table}-{seat}" identifier.
func DeskID(table, seat int) string {
	return fmt.Sprintf("%d-%d", table, seat)
}

// ParseDeskID splits a composite desk id into table and seat numbers.
func ParseDeskID(id string) (table, seat int, err error) {
	parts := strings.SplitN(id, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid desk id %q", id)
	}
	table, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid desk id %q: %w", id, err)
	}
	seat, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid desk id %q: %w", id, err)
	}
	return table, seat, nil
}

// FloorStats summarizes one floor of the map.
type FloorStats struct {
	TotalSeats     int
	AvailableSeats int
	ReservedSeats  int
	PendingSeats   int
}

// DataQuality says how much of the availability picture came from the
// backend. Estimated results must never be presented as authoritative.
type DataQuality int

const (
	QualityEstimated DataQuality = iota
	QualityPartial
	QualityLive
)

func (q DataQuality) String() string {
	switch q {
	case QualityLive:
		return "live"
	case QualityPartial:
		return "partial"
	default:
		return "estimated"
	}
}
