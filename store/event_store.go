package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mabletask/admin/dataview"
	"mabletask/admin/models"
	"mabletask/admin/utils"
)

// EventStore reads and writes the ClickHouse events table.
type EventStore struct {
	db      *sql.DB
	maxRows int
	logger  *zap.Logger
}

func NewEventStore(db *sql.DB, maxRows int, logger *zap.Logger) *EventStore {
	return &EventStore{db: db, maxRows: maxRows, logger: logger}
}

// InsertEvents writes events in one batch. Events must carry an id and a valid timestamp.
func (s *EventStore) InsertEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (event_id, event_type, user_id, product_id, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		if _, err := stmt.ExecContext(ctx,
			event.EventID,
			event.EventType,
			event.UserID,
			event.ProductID,
			event.Timestamp.Time.UTC(),
		); err != nil {
			return fmt.Errorf("failed to append event %s to batch: %w", event.EventID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	s.logger.Info("Inserted events", zap.Int("count", len(events)))
	return nil
}

// ListEvents returns the events matching q, newest first, capped at the
// store's row limit.
func (s *EventStore) ListEvents(ctx context.Context, q dataview.EventQuery) ([]models.Event, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if q.EventType != "" {
		conditions = append(conditions, "event_type = ?")
		args = append(args, q.EventType)
	}
	if q.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, q.UserID)
	}
	if q.Start != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, q.Start.UTC())
	}
	if q.End != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, q.End.UTC())
	}

	query := "SELECT event_id, event_type, user_id, product_id, timestamp FROM events"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, s.maxRows)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var (
			e         models.Event
			productID sql.NullString
			ts        time.Time
		)
		if err := rows.Scan(&e.EventID, &e.EventType, &e.UserID, &productID, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if productID.Valid {
			e.ProductID = &productID.String
		}
		e.Timestamp = models.NewEventTime(ts.UTC())
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during events query: %w", err)
	}
	return events, nil
}

// EventCountsOverTime counts events per interval bucket. With an event type
// filter the rows are also split by type.
func (s *EventStore) EventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventType string) ([]models.EventCount, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	selectCols := fmt.Sprintf("toStartOf%s(timestamp) AS time_bucket, count() AS total_events", interval)
	groupBy := "time_bucket"
	where := "WHERE timestamp >= ? AND timestamp <= ?"
	orderBy := "time_bucket ASC"
	args := []interface{}{start, end}

	byType := eventType != ""
	if byType {
		selectCols += ", event_type"
		groupBy += ", event_type"
		where += " AND event_type = ?"
		orderBy += ", event_type ASC"
		args = append(args, eventType)
	}

	query := fmt.Sprintf("SELECT %s FROM events %s GROUP BY %s ORDER BY %s", selectCols, where, groupBy, orderBy)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts over time: %w", err)
	}
	defer rows.Close()

	results := make([]models.EventCount, 0)
	for rows.Next() {
		var (
			bucket time.Time
			count  uint64
			typ    string
			row    models.EventCount
		)
		if byType {
			if err := rows.Scan(&bucket, &count, &typ); err != nil {
				return nil, fmt.Errorf("failed to scan event count: %w", err)
			}
			row.EventType = &typ
		} else if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		row.Time = bucket.UTC()
		row.Count = count
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event counts query: %w", err)
	}
	return results, nil
}

func (s *EventStore) UniqueUsersOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.EventCount, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	query := fmt.Sprintf(`SELECT toStartOf%s(timestamp) AS time_bucket, uniq(user_id) AS unique_users FROM events WHERE timestamp >= ? AND timestamp <= ? GROUP BY time_bucket ORDER BY time_bucket ASC`, interval)

	rows, err := s.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query unique users over time: %w", err)
	}
	defer rows.Close()

	results := make([]models.EventCount, 0)
	for rows.Next() {
		var (
			bucket time.Time
			users  uint64
		)
		if err := rows.Scan(&bucket, &users); err != nil {
			return nil, fmt.Errorf("failed to scan unique users: %w", err)
		}
		results = append(results, models.EventCount{Time: bucket.UTC(), Count: users})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for unique users: %w", err)
	}
	return results, nil
}
