package dataview

import (
	"slices"

	"mabletask/admin/models"
)

const (
	DayLayout     = "2006-01-02"
	LabelLayout   = "Jan 2, 2006"
	TooltipLayout = "Mon, Jan 2, 2006"
)

// Aggregation is the chart-ready view of an event list.
type Aggregation struct {
	Buckets    []models.DailyBucket `json:"buckets"`
	EventTypes []string             `json:"event_types"`
	UserIDs    []string             `json:"user_ids"`
	Skipped    int                  `json:"skipped"`
}

// AggregateEvents groups events into UTC calendar-day buckets ordered by day.
// Events without a usable timestamp are counted in Skipped and left out of the
// buckets. The event types and user ids cover every input record and are
// sorted. The input slice is not modified.
func AggregateEvents(events []models.Event) Aggregation {
	agg := Aggregation{
		Buckets:    []models.DailyBucket{},
		EventTypes: DistinctEventTypes(events),
		UserIDs:    DistinctUserIDs(events),
	}

	timed := make([]models.Event, 0, len(events))
	for _, e := range events {
		if !e.Timestamp.Valid {
			agg.Skipped++
			continue
		}
		timed = append(timed, e)
	}
	slices.SortStableFunc(timed, func(a, b models.Event) int {
		return a.Timestamp.Time.Compare(b.Timestamp.Time)
	})

	index := make(map[string]int)
	for _, e := range timed {
		ts := e.Timestamp.Time.UTC()
		day := ts.Format(DayLayout)
		i, ok := index[day]
		if !ok {
			agg.Buckets = append(agg.Buckets, models.DailyBucket{
				Date:      day,
				Label:     ts.Format(LabelLayout),
				Timestamp: ts,
				ByType:    make(map[string]int),
			})
			i = len(agg.Buckets) - 1
			index[day] = i
		}
		b := &agg.Buckets[i]
		b.Count++
		b.ByType[e.EventType]++
	}
	return agg
}

func DistinctEventTypes(events []models.Event) []string {
	return distinct(events, func(e models.Event) string { return e.EventType })
}

func DistinctUserIDs(events []models.Event) []string {
	return distinct(events, func(e models.Event) string { return e.UserID })
}

func distinct(events []models.Event, key func(models.Event) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, e := range events {
		k := key(e)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Series returns the per-day count of eventType, zero where the day has none.
func Series(buckets []models.DailyBucket, eventType string) []int {
	out := make([]int, len(buckets))
	for i, b := range buckets {
		out[i] = b.ByType[eventType]
	}
	return out
}

// TooltipLabel formats the representative instant of a bucket for chart tooltips.
func TooltipLabel(b models.DailyBucket) string {
	return b.Timestamp.Format(TooltipLayout)
}
