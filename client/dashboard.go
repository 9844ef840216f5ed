package client

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"mabletask/admin/dataview"
	"mabletask/admin/models"
)

// DashboardSnapshot is everything the event dashboard renders.
type DashboardSnapshot struct {
	Filter      dataview.EventQuery
	Events      []models.Event
	Total       int
	Aggregation dataview.Aggregation
	Loading     bool
	Err         error
}

// EventDashboard holds the filter state and the last fetched events.
type EventDashboard struct {
	client   *Client
	notifier Notifier
	logger   *zap.Logger
	seq      Sequencer

	mu       sync.RWMutex
	filter   dataview.EventQuery
	snapshot DashboardSnapshot
}

func NewEventDashboard(c *Client, notifier Notifier) *EventDashboard {
	return &EventDashboard{
		client:   c,
		notifier: notifier,
		logger:   c.logger,
		snapshot: DashboardSnapshot{
			Events:      []models.Event{},
			Aggregation: dataview.AggregateEvents(nil),
		},
	}
}

// SetFilter replaces the pending filter. It takes effect on the next Refresh.
func (d *EventDashboard) SetFilter(q dataview.EventQuery) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filter = q
}

func (d *EventDashboard) Filter() dataview.EventQuery {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.filter
}

// Refresh fetches events for the current filter. A refresh overtaken by a
// newer one is cancelled and its result discarded.
func (d *EventDashboard) Refresh(ctx context.Context) error {
	filter := d.Filter()
	ctx, gen := d.seq.Begin(ctx)
	defer d.seq.End(gen)

	d.seq.Apply(gen, func() {
		d.mu.Lock()
		d.snapshot.Loading = true
		d.mu.Unlock()
	})

	resp, err := d.client.ListEvents(ctx, filter)
	if err != nil {
		if !d.seq.Apply(gen, func() {
			d.mu.Lock()
			d.snapshot.Loading = false
			d.snapshot.Err = err
			d.mu.Unlock()
		}) {
			return nil
		}
		d.logger.Error("Error fetching events", zap.String("filter", filter.Encode()), zap.Error(err))
		d.notifier.Notify(Notification{Title: "Error fetching data", Description: err.Error(), Severity: SeverityError})
		return err
	}

	agg := dataview.AggregateEvents(resp.Events)
	d.seq.Apply(gen, func() {
		d.mu.Lock()
		d.snapshot = DashboardSnapshot{
			Filter:      filter,
			Events:      resp.Events,
			Total:       resp.Count,
			Aggregation: agg,
		}
		d.mu.Unlock()
	})
	if agg.Skipped > 0 {
		d.logger.Warn("Events without a usable timestamp left out of the chart", zap.Int("skipped", agg.Skipped))
	}
	return nil
}

// ResetFilters clears every filter and refreshes.
func (d *EventDashboard) ResetFilters(ctx context.Context) error {
	d.SetFilter(dataview.EventQuery{})
	return d.Refresh(ctx)
}

func (d *EventDashboard) Snapshot() DashboardSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshot
}

// Recent returns up to n of the fetched events and the server's total count.
func (d *EventDashboard) Recent(n int) ([]models.Event, int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	events := d.snapshot.Events
	if n < 0 {
		n = 0
	}
	if n < len(events) {
		events = events[:n]
	}
	return append([]models.Event(nil), events...), d.snapshot.Total
}
