package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event is a single tracked event as stored in ClickHouse and returned by GET /api/events.
type Event struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id"`
	ProductID *string   `json:"product_id,omitempty"`
	Timestamp EventTime `json:"timestamp"`
}

// EventsResponse is the body of GET /api/events.
type EventsResponse struct {
	Events []Event `json:"events"`
	Count  int     `json:"count"`
}

// eventTimeLayouts are tried in order when decoding a timestamp string.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// EventTime is an event instant that may be missing or unparseable on the wire.
// Decoding never fails on a bad value; it yields Valid == false instead, so one
// broken record does not reject a whole response.
type EventTime struct {
	Time  time.Time
	Valid bool
}

func NewEventTime(t time.Time) EventTime {
	return EventTime{Time: t, Valid: !t.IsZero()}
}

// ParseEventTime parses ISO-8601 variants. Values without a zone are read as UTC.
func ParseEventTime(s string) EventTime {
	s = strings.TrimSpace(s)
	if s == "" {
		return EventTime{}
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return EventTime{Time: t, Valid: true}
		}
	}
	return EventTime{}
}

func (t EventTime) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

func (t *EventTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = EventTime{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode event timestamp: %w", err)
		}
		*t = ParseEventTime(s)
	default:
		// Numeric timestamps are epoch milliseconds.
		var ms json.Number
		if err := json.Unmarshal(data, &ms); err != nil {
			*t = EventTime{}
			return nil
		}
		n, err := ms.Int64()
		if err != nil {
			*t = EventTime{}
			return nil
		}
		*t = EventTime{Time: time.UnixMilli(n).UTC(), Valid: true}
	}
	return nil
}

func (t EventTime) String() string {
	if !t.Valid {
		return "N/A"
	}
	return t.Time.UTC().Format(time.RFC3339)
}

// DailyBucket aggregates the events of one calendar day (UTC).
type DailyBucket struct {
	Date      string         `json:"date"`
	Label     string         `json:"formatted_date"`
	Timestamp time.Time      `json:"timestamp"`
	Count     int            `json:"count"`
	ByType    map[string]int `json:"by_type"`
}

// EventCount is one row of an interval statistics query.
type EventCount struct {
	Time      time.Time `json:"time"`
	EventType *string   `json:"event_type,omitempty"`
	Count     uint64    `json:"count"`
}
