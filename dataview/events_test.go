package dataview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mabletask/admin/models"
)

func ev(id, ts, typ, user string) models.Event {
	return models.Event{EventID: id, Timestamp: models.ParseEventTime(ts), EventType: typ, UserID: user}
}

func TestAggregateEventsMixedBatch(t *testing.T) {
	events := []models.Event{
		ev("1", "2024-01-01T10:00Z", "VIEW", "u1"),
		ev("2", "2024-01-01T12:00Z", "CLICK", "u2"),
		ev("3", "2024-01-02T09:00Z", "VIEW", "u1"),
	}

	agg := AggregateEvents(events)

	require.Len(t, agg.Buckets, 2)
	assert.Equal(t, "2024-01-01", agg.Buckets[0].Date)
	assert.Equal(t, "Jan 1, 2024", agg.Buckets[0].Label)
	assert.Equal(t, 2, agg.Buckets[0].Count)
	assert.Equal(t, map[string]int{"VIEW": 1, "CLICK": 1}, agg.Buckets[0].ByType)

	assert.Equal(t, "2024-01-02", agg.Buckets[1].Date)
	assert.Equal(t, 1, agg.Buckets[1].Count)
	assert.Equal(t, map[string]int{"VIEW": 1}, agg.Buckets[1].ByType)

	assert.Equal(t, []string{"CLICK", "VIEW"}, agg.EventTypes)
	assert.Equal(t, []string{"u1", "u2"}, agg.UserIDs)
	assert.Zero(t, agg.Skipped)
}

func TestAggregateEventsEmpty(t *testing.T) {
	agg := AggregateEvents(nil)
	assert.NotNil(t, agg.Buckets)
	assert.Empty(t, agg.Buckets)
	assert.Empty(t, agg.EventTypes)
	assert.Empty(t, agg.UserIDs)
}

func TestAggregateEventsUnsortedInputAndSkips(t *testing.T) {
	events := []models.Event{
		ev("a", "2024-03-05T23:30:00Z", "PURCHASE", "u3"),
		ev("b", "garbage", "VIEW", "u1"),
		ev("c", "2024-03-04T08:00:00Z", "VIEW", "u1"),
		ev("d", "2024-03-05T01:00:00+03:00", "VIEW", "u2"), // 2024-03-04 22:00 UTC
		{EventID: "e", EventType: "LOGIN", UserID: "u4"},
		ev("f", "2024-03-05T00:15:00Z", "VIEW", "u2"),
	}
	original := append([]models.Event(nil), events...)

	agg := AggregateEvents(events)

	assert.Equal(t, original, events, "input must not be modified")
	assert.Equal(t, 2, agg.Skipped)
	require.Len(t, agg.Buckets, 2)

	day1 := agg.Buckets[0]
	assert.Equal(t, "2024-03-04", day1.Date)
	assert.Equal(t, 2, day1.Count)
	assert.Equal(t, map[string]int{"VIEW": 2}, day1.ByType)
	assert.True(t, day1.Timestamp.Equal(time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)), "first-seen instant")

	day2 := agg.Buckets[1]
	assert.Equal(t, "2024-03-05", day2.Date)
	assert.Equal(t, 2, day2.Count)
	assert.Equal(t, map[string]int{"VIEW": 1, "PURCHASE": 1}, day2.ByType)
	assert.True(t, day2.Timestamp.Equal(time.Date(2024, 3, 5, 0, 15, 0, 0, time.UTC)))

	// Types and users include records that were skipped for lack of a timestamp.
	assert.Equal(t, []string{"LOGIN", "PURCHASE", "VIEW"}, agg.EventTypes)
	assert.Equal(t, []string{"u1", "u2", "u3", "u4"}, agg.UserIDs)
}

func TestAggregateEventsInvariants(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	types := []string{"VIEW", "CLICK", "PURCHASE", "LOGIN"}
	var events []models.Event
	for i := 0; i < 200; i++ {
		ts := base.Add(time.Duration(i*i%997) * 37 * time.Minute)
		e := models.Event{EventID: "x", EventType: types[i%len(types)], UserID: "u", Timestamp: models.NewEventTime(ts)}
		if i%13 == 0 {
			e.Timestamp = models.EventTime{}
		}
		events = append(events, e)
	}

	agg := AggregateEvents(events)

	total := 0
	for i, b := range agg.Buckets {
		sum := 0
		for _, n := range b.ByType {
			sum += n
		}
		assert.Equal(t, b.Count, sum, "bucket %s", b.Date)
		total += b.Count
		if i > 0 {
			assert.Less(t, agg.Buckets[i-1].Date, b.Date)
		}
	}
	assert.Equal(t, len(events)-agg.Skipped, total)

	assert.Equal(t, agg, AggregateEvents(events), "aggregation must be deterministic")
}

func TestSeriesAndTooltip(t *testing.T) {
	agg := AggregateEvents([]models.Event{
		ev("1", "2024-01-01T10:00Z", "VIEW", "u1"),
		ev("2", "2024-01-02T12:00Z", "CLICK", "u2"),
		ev("3", "2024-01-02T13:00Z", "CLICK", "u2"),
	})

	assert.Equal(t, []int{1, 0}, Series(agg.Buckets, "VIEW"))
	assert.Equal(t, []int{0, 2}, Series(agg.Buckets, "CLICK"))
	assert.Equal(t, []int{0, 0}, Series(agg.Buckets, "LOGIN"))
	assert.Equal(t, "Mon, Jan 1, 2024", TooltipLabel(agg.Buckets[0]))
}
