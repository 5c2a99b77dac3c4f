package models

import (
	"fmt"
	"strings"
	"time"
)

// LocalTimeLayout is the wire format the backend expects for reservation
// bounds: local civil time, no timezone suffix, no milliseconds.
const LocalTimeLayout = "2006-01-02T15:04:05"

// LocalTime wraps time.Time so reservation timestamps always serialize as
// naive local time. The backend treats them as wall-clock values.
type LocalTime struct {
	time.Time
}

func NewLocalTime(t time.Time) LocalTime {
	return LocalTime{Time: t}
}

func (t LocalTime) String() string {
	return t.Format(LocalTimeLayout)
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(LocalTimeLayout) + `"`), nil
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}

	// The backend normally sends the naive layout, but tolerate RFC3339
	// and fractional seconds from older deployments.
	for _, layout := range []string{LocalTimeLayout, "2006-01-02T15:04:05.999999999", time.RFC3339} {
		parsed, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}

	return fmt.Errorf("invalid local time %q", s)
}

// ParseLocalTime parses the backend wire format in the local zone.
func ParseLocalTime(s string) (LocalTime, error) {
	parsed, err := time.ParseInLocation(LocalTimeLayout, s, time.Local)
	if err != nil {
		return LocalTime{}, err
	}
	return LocalTime{Time: parsed}, nil
}
