package dataview

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	ParamEventType = "event_type"
	ParamUserID    = "user_id"
	ParamStartTime = "start_time"
	ParamEndTime   = "end_time"

	// QueryTimeLayout is the canonical UTC form sent for start/end instants.
	QueryTimeLayout = "2006-01-02T15:04:05.000Z"
)

// EventQuery holds the optional filters of an event fetch. Empty strings and
// nil instants mean "not filtered".
type EventQuery struct {
	EventType string
	UserID    string
	Start     *time.Time
	End       *time.Time
}

func (q EventQuery) IsZero() bool {
	return q.EventType == "" && q.UserID == "" && q.Start == nil && q.End == nil
}

// Values returns only the filters that are present.
func (q EventQuery) Values() url.Values {
	v := url.Values{}
	if q.EventType != "" {
		v.Set(ParamEventType, q.EventType)
	}
	if q.UserID != "" {
		v.Set(ParamUserID, q.UserID)
	}
	if q.Start != nil {
		v.Set(ParamStartTime, q.Start.UTC().Format(QueryTimeLayout))
	}
	if q.End != nil {
		v.Set(ParamEndTime, q.End.UTC().Format(QueryTimeLayout))
	}
	return v
}

// Encode returns the query string without the leading "?", or "" when no
// filter is set.
func (q EventQuery) Encode() string {
	return q.Values().Encode()
}

// ParseEventQuery reads the filters sent by Values. Blank parameters are
// treated as absent.
func ParseEventQuery(v url.Values) (EventQuery, error) {
	q := EventQuery{
		EventType: strings.TrimSpace(v.Get(ParamEventType)),
		UserID:    strings.TrimSpace(v.Get(ParamUserID)),
	}
	var err error
	if q.Start, err = parseInstant(v.Get(ParamStartTime)); err != nil {
		return EventQuery{}, fmt.Errorf("invalid %s: %w", ParamStartTime, err)
	}
	if q.End, err = parseInstant(v.Get(ParamEndTime)); err != nil {
		return EventQuery{}, fmt.Errorf("invalid %s: %w", ParamEndTime, err)
	}
	if q.Start != nil && q.End != nil && q.End.Before(*q.Start) {
		return EventQuery{}, fmt.Errorf("%s is before %s", ParamEndTime, ParamStartTime)
	}
	return q, nil
}

func parseInstant(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
