package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mabletask/admin/apperrors"
	"mabletask/admin/dataview"
	"mabletask/admin/models"
	"mabletask/admin/utils"
)

const (
	insertTimeout = 15 * time.Second
	queryTimeout  = 10 * time.Second
)

type EventHandlers struct {
	events EventRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewEventHandlers(events EventRepository, logger *zap.Logger) *EventHandlers {
	return &EventHandlers{events: events, logger: logger, now: time.Now}
}

// DashboardResponse is the body of GET /api/dashboard/events.
type DashboardResponse struct {
	dataview.Aggregation
	Count int `json:"count"`
}

// TrackEvent ingests a batch of events. Missing ids and timestamps are filled in.
func (h *EventHandlers) TrackEvent(c *gin.Context) {
	var incoming []models.Event
	if err := c.ShouldBindJSON(&incoming); err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid request body", err))
		return
	}
	if len(incoming) == 0 {
		c.JSON(http.StatusOK, gin.H{"count": 0})
		return
	}

	now := h.now().UTC()
	for i := range incoming {
		e := &incoming[i]
		e.EventType = strings.TrimSpace(e.EventType)
		e.UserID = strings.TrimSpace(e.UserID)
		if e.EventType == "" || e.UserID == "" {
			apperrors.Respond(c, apperrors.BadRequest("Invalid event",
				fmt.Errorf("event %d: event_type and user_id are required", i)))
			return
		}
		if e.EventID == "" {
			e.EventID = uuid.NewString()
		}
		if !e.Timestamp.Valid {
			e.Timestamp = models.NewEventTime(now)
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), insertTimeout)
	defer cancel()

	if err := h.events.InsertEvents(ctx, incoming); err != nil {
		h.logger.Error("Failed to insert events", zap.Int("count", len(incoming)), zap.Error(err))
		apperrors.Respond(c, apperrors.Internal("Failed to record events", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(incoming)})
}

func (h *EventHandlers) listFiltered(c *gin.Context) ([]models.Event, bool) {
	q, err := dataview.ParseEventQuery(c.Request.URL.Query())
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid filter", err))
		return nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	events, err := h.events.ListEvents(ctx, q)
	if err != nil {
		h.logger.Error("Failed to list events", zap.String("query", q.Encode()), zap.Error(err))
		apperrors.Respond(c, apperrors.Internal("Failed to fetch events", err))
		return nil, false
	}
	return events, true
}

func (h *EventHandlers) ListEvents(c *gin.Context) {
	events, ok := h.listFiltered(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.EventsResponse{Events: events, Count: len(events)})
}

// Dashboard returns the filtered events already grouped by day.
func (h *EventHandlers) Dashboard(c *gin.Context) {
	events, ok := h.listFiltered(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, DashboardResponse{
		Aggregation: dataview.AggregateEvents(events),
		Count:       len(events),
	})
}

func (h *EventHandlers) statsRange(c *gin.Context) (string, time.Time, time.Time, bool) {
	interval := c.Query("interval")
	if interval == "" {
		apperrors.Respond(c, apperrors.BadRequest("interval query parameter is required (e.g. 'Day', 'Hour')", nil))
		return "", time.Time{}, time.Time{}, false
	}
	if !utils.IsValidInterval(interval) {
		apperrors.Respond(c, apperrors.BadRequest("Invalid interval", fmt.Errorf("unsupported interval %q", interval)))
		return "", time.Time{}, time.Time{}, false
	}
	start, end, err := utils.ParseTimeRange(c.Query("start"), c.Query("end"), h.now())
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid time range", err))
		return "", time.Time{}, time.Time{}, false
	}
	return interval, start, end, true
}

func (h *EventHandlers) GetEventCountsOverTime(c *gin.Context) {
	interval, start, end, ok := h.statsRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	results, err := h.events.EventCountsOverTime(ctx, interval, start, end, c.Query(dataview.ParamEventType))
	if err != nil {
		h.logger.Error("Failed to get event counts over time", zap.Error(err))
		apperrors.Respond(c, apperrors.Internal("Failed to retrieve event statistics", err))
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *EventHandlers) GetUniqueUsersOverTime(c *gin.Context) {
	interval, start, end, ok := h.statsRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	results, err := h.events.UniqueUsersOverTime(ctx, interval, start, end)
	if err != nil {
		h.logger.Error("Failed to get unique users over time", zap.Error(err))
		apperrors.Respond(c, apperrors.Internal("Failed to retrieve unique user statistics", err))
		return
	}
	c.JSON(http.StatusOK, results)
}
