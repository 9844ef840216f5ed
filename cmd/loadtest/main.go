// Command loadtest drives the public event endpoints and, with an API key,
// the ingestion endpoint, then prints a latency report.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	vegeta "github.com/tsenart/vegeta/v12/lib"
	"go.uber.org/zap"

	"mabletask/admin/dataview"
	"mabletask/admin/middleware"
	"mabletask/admin/models"
)

type options struct {
	baseURL   string
	rate      int
	duration  time.Duration
	timeout   time.Duration
	eventType string
	userID    string
	apiKey    string
	batch     int
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "url", envOr("LOADTEST_URL", "http://localhost:8080"), "API base URL")
	flag.IntVar(&opts.rate, "rate", 50, "requests per second")
	flag.DurationVar(&opts.duration, "duration", 10*time.Second, "attack duration")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Second, "per-request timeout")
	flag.StringVar(&opts.eventType, "event-type", "", "event_type filter for read targets")
	flag.StringVar(&opts.userID, "user-id", "", "user_id filter for read targets")
	flag.StringVar(&opts.apiKey, "api-key", os.Getenv("AUTH_DEFAULT"), "API key; enables the ingestion target")
	flag.IntVar(&opts.batch, "batch", 10, "events per ingestion request")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if opts.rate <= 0 || opts.duration <= 0 {
		logger.Fatal("rate and duration must be positive", zap.Int("rate", opts.rate), zap.Duration("duration", opts.duration))
	}

	targeter, count := newTargeter(opts, time.Now)

	logger.Info("Starting attack",
		zap.String("url", opts.baseURL),
		zap.Int("rate", opts.rate),
		zap.Duration("duration", opts.duration),
		zap.Int("targets", count))

	attacker := vegeta.NewAttacker(vegeta.Timeout(opts.timeout))
	pace := vegeta.Rate{Freq: opts.rate, Per: time.Second}

	var metrics vegeta.Metrics
	for res := range attacker.Attack(targeter, pace, opts.duration, "mable-admin") {
		metrics.Add(res)
	}
	metrics.Close()

	if err := vegeta.NewTextReporter(&metrics).Report(os.Stdout); err != nil {
		logger.Fatal("writing report", zap.Error(err))
	}
	if metrics.Success < 0.99 {
		logger.Warn("Success ratio below 99%", zap.Float64("success", metrics.Success), zap.Strings("errors", metrics.Errors))
		os.Exit(1)
	}
}

// readTargets returns the GET targets for the configured filter over the week before now.
func readTargets(opts options, now time.Time) []vegeta.Target {
	base := strings.TrimRight(opts.baseURL, "/")
	start := now.Add(-7 * 24 * time.Hour)
	q := dataview.EventQuery{EventType: opts.eventType, UserID: opts.userID, Start: &start, End: &now}
	query := "?" + q.Encode()

	return []vegeta.Target{
		{Method: http.MethodGet, URL: base + "/api/events" + query},
		{Method: http.MethodGet, URL: base + "/api/dashboard/events" + query},
	}
}

// newTargeter cycles through the read targets and, when an API key is set, an
// ingestion target whose batch is generated fresh on every hit so event ids
// never repeat. It also returns the number of targets in one cycle.
func newTargeter(opts options, now func() time.Time) (vegeta.Targeter, int) {
	reads := readTargets(opts, now())
	total := len(reads)

	var header http.Header
	if opts.apiKey != "" {
		header = http.Header{}
		header.Set("Content-Type", "application/json")
		header.Set(middleware.APIKeyHeader, opts.apiKey)
		total++
	}
	ingestURL := strings.TrimRight(opts.baseURL, "/") + "/api/events"

	var hits atomic.Uint64
	return func(tgt *vegeta.Target) error {
		if tgt == nil {
			return vegeta.ErrNilTarget
		}
		i := int((hits.Add(1) - 1) % uint64(total))
		if i < len(reads) {
			*tgt = reads[i]
			return nil
		}

		body, err := json.Marshal(syntheticEvents(opts.batch, now()))
		if err != nil {
			return fmt.Errorf("encoding events: %w", err)
		}
		*tgt = vegeta.Target{
			Method: http.MethodPost,
			URL:    ingestURL,
			Body:   body,
			Header: header.Clone(),
		}
		return nil
	}, total
}

var syntheticTypes = []string{"VIEW", "LOGIN", "ADD_TO_CART", "PURCHASE"}

func syntheticEvents(n int, now time.Time) []models.Event {
	events := make([]models.Event, n)
	for i := range events {
		events[i] = models.Event{
			EventID:   uuid.NewString(),
			EventType: syntheticTypes[i%len(syntheticTypes)],
			UserID:    fmt.Sprintf("loadtest-%d", i%5),
			Timestamp: models.NewEventTime(now.Add(-time.Duration(i) * time.Minute)),
		}
	}
	return events
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
