package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalTime_MarshalJSON(t *testing.T) {
	lt := NewLocalTime(time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local))

	data, err := json.Marshal(lt)
	require.NoError(t, err)
	assert.Equal(t, `"2025-06-01T09:00:00"`, string(data))

	t.Run("NoZoneSuffix", func(t *testing.T) {
		// Even a UTC-constructed value must serialize without "Z".
		utc := NewLocalTime(time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC))
		data, err := json.Marshal(utc)
		require.NoError(t, err)
		assert.Equal(t, `"2025-06-01T09:30:00"`, string(data))
	})

	t.Run("NoMilliseconds", func(t *testing.T) {
		frac := NewLocalTime(time.Date(2025, 6, 1, 9, 0, 0, 123456789, time.Local))
		data, err := json.Marshal(frac)
		require.NoError(t, err)
		assert.Equal(t, `"2025-06-01T09:00:00"`, string(data))
	})
}

func TestLocalTime_UnmarshalJSON(t *testing.T) {
	t.Run("WireLayout", func(t *testing.T) {
		var lt LocalTime
		require.NoError(t, json.Unmarshal([]byte(`"2025-06-01T09:00:00"`), &lt))
		assert.Equal(t, 2025, lt.Year())
		assert.Equal(t, 9, lt.Hour())
	})

	t.Run("FractionalSeconds", func(t *testing.T) {
		var lt LocalTime
		require.NoError(t, json.Unmarshal([]byte(`"2025-06-01T09:00:00.123456"`), &lt))
		assert.Equal(t, 9, lt.Hour())
	})

	t.Run("RFC3339Tolerated", func(t *testing.T) {
		var lt LocalTime
		require.NoError(t, json.Unmarshal([]byte(`"2025-06-01T09:00:00Z"`), &lt))
		assert.False(t, lt.IsZero())
	})

	t.Run("NullAndEmpty", func(t *testing.T) {
		var lt LocalTime
		require.NoError(t, json.Unmarshal([]byte(`null`), &lt))
		assert.True(t, lt.IsZero())

		require.NoError(t, json.Unmarshal([]byte(`""`), &lt))
		assert.True(t, lt.IsZero())
	})

	t.Run("Garbage", func(t *testing.T) {
		var lt LocalTime
		assert.Error(t, json.Unmarshal([]byte(`"not-a-time"`), &lt))
	})
}

func TestLocalTime_RoundTrip(t *testing.T) {
	orig := NewLocalTime(time.Date(2025, 12, 31, 23, 59, 59, 0, time.Local))

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var back LocalTime
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, orig.Equal(back.Time))
}

func TestParseLocalTime(t *testing.T) {
	lt, err := ParseLocalTime("2025-06-01T14:30:00")
	require.NoError(t, err)
	assert.Equal(t, 14, lt.Hour())
	assert.Equal(t, 30, lt.Minute())

	_, err = ParseLocalTime("2025-06-01 14:30")
	assert.Error(t, err)
}

func reservationAt(start, end time.Time) *Reservation {
	return &Reservation{
		StartTime: NewLocalTime(start),
		EndTime:   NewLocalTime(end),
	}
}

func TestReservation_Overlaps(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local)
	r := reservationAt(base, base.Add(2*time.Hour)) // 10:00-12:00

	t.Run("FullyInside", func(t *testing.T) {
		assert.True(t, r.Overlaps(base.Add(30*time.Minute), base.Add(time.Hour)))
	})

	t.Run("PartialOverlap", func(t *testing.T) {
		assert.True(t, r.Overlaps(base.Add(-time.Hour), base.Add(time.Hour)))
		assert.True(t, r.Overlaps(base.Add(time.Hour), base.Add(3*time.Hour)))
	})

	t.Run("Covering", func(t *testing.T) {
		assert.True(t, r.Overlaps(base.Add(-time.Hour), base.Add(3*time.Hour)))
	})

	t.Run("TouchingEndpointsDoNotOverlap", func(t *testing.T) {
		// [08:00,10:00) against [10:00,12:00): back to back is fine.
		assert.False(t, r.Overlaps(base.Add(-2*time.Hour), base))
		// [12:00,14:00) starts exactly where r ends.
		assert.False(t, r.Overlaps(base.Add(2*time.Hour), base.Add(4*time.Hour)))
	})

	t.Run("Disjoint", func(t *testing.T) {
		assert.False(t, r.Overlaps(base.Add(-3*time.Hour), base.Add(-time.Hour)))
		assert.False(t, r.Overlaps(base.Add(5*time.Hour), base.Add(6*time.Hour)))
	})
}

func TestReservation_Active(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local)
	r := reservationAt(base, base.Add(2*time.Hour))

	assert.False(t, r.Active(base.Add(-time.Minute)))
	assert.True(t, r.Active(base))
	assert.True(t, r.Active(base.Add(time.Hour)))
	assert.True(t, r.Active(base.Add(2*time.Hour)))
	assert.False(t, r.Active(base.Add(2*time.Hour+time.Second)))
}

func TestReservation_Remaining(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local)
	r := reservationAt(base, base.Add(2*time.Hour))

	assert.Equal(t, 2*time.Hour, r.Remaining(base))
	assert.Equal(t, 30*time.Minute, r.Remaining(base.Add(90*time.Minute)))
	assert.Equal(t, time.Duration(0), r.Remaining(base.Add(3*time.Hour)))
}

func TestDeskID(t *testing.T) {
	assert.Equal(t, "12-3", DeskID(12, 3))
	assert.Equal(t, "1-1", DeskID(1, 1))
}

func TestParseDeskID(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		table, seat, err := ParseDeskID("12-3")
		require.NoError(t, err)
		assert.Equal(t, 12, table)
		assert.Equal(t, 3, seat)
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, id := range []string{"", "12", "a-3", "12-b", "--"} {
			_, _, err := ParseDeskID(id)
			assert.Error(t, err, "id %q", id)
		}
	})
}

func TestDataQuality_String(t *testing.T) {
	assert.Equal(t, "live", QualityLive.String())
	assert.Equal(t, "partial", QualityPartial.String())
	assert.Equal(t, "estimated", QualityEstimated.String())
}

func TestUserState_Getters(t *testing.T) {
	state := &UserState{
		Data: map[string]interface{}{
			"str":   "hello",
			"int":   7,
			"int64": int64(8),
			"float": 9.0, // JSON round-trips numbers as float64
		},
	}

	t.Run("NilData", func(t *testing.T) {
		empty := &UserState{}
		assert.Equal(t, "", empty.GetString("any"))
		assert.Equal(t, 0, empty.GetInt("any"))
	})

	t.Run("GetString", func(t *testing.T) {
		assert.Equal(t, "hello", state.GetString("str"))
		assert.Equal(t, "", state.GetString("int"))
		assert.Equal(t, "", state.GetString("missing"))
	})

	t.Run("GetInt", func(t *testing.T) {
		assert.Equal(t, 7, state.GetInt("int"))
		assert.Equal(t, 8, state.GetInt("int64"))
		assert.Equal(t, 9, state.GetInt("float"))
		assert.Equal(t, 0, state.GetInt("str"))
		assert.Equal(t, 0, state.GetInt("missing"))
	})
}

func TestReservation_JSONShape(t *testing.T) {
	raw := `{
		"id": 42,
		"userId": 7,
		"roomId": "ROOM-001",
		"deskId": "12-3",
		"startTime": "2025-06-01T09:00:00",
		"endTime": "2025-06-01T11:00:00",
		"status": "ACTIVE"
	}`

	var r Reservation
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	assert.Equal(t, int64(42), r.ID)
	assert.Equal(t, "ROOM-001", r.RoomID)
	assert.Equal(t, "12-3", r.DeskID)
	assert.Equal(t, StatusActive, r.Status)
	assert.Equal(t, 9, r.StartTime.Hour())
	assert.Equal(t, 11, r.EndTime.Hour())
}
