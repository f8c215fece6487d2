// Package coordinator runs the eco2mix update cycle: fetch the latest record,
// derive a snapshot, persist it, and fall back to the cached snapshot when the
// API misbehaves.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/jgoulah/eco2mix/internal/metrics"
	"github.com/jgoulah/eco2mix/pkg/models"
)

// escalateEvery is how many consecutive failures separate two error-level reports.
const escalateEvery = 5

// ErrNoDataAvailable is returned when a cycle fails and no snapshot was ever cached.
var ErrNoDataAvailable = errors.New("no data available: API unreachable and no cached snapshot")

// errInvalidRecord flags a record that breaks the deriver's input contract.
var errInvalidRecord = errors.New("invalid record")

// Fetcher returns the most recent usable record
type Fetcher interface {
	FetchLatest(ctx context.Context) (*models.RawRecord, error)
}

// Cache is a durable single-slot snapshot store
type Cache interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snapshot *models.Snapshot) error
}

// Status is a point-in-time view of the coordinator's bookkeeping
type Status struct {
	ConsecutiveFailures int
	LastSuccess         time.Time
	LastTimestamp       string
	HasSnapshot         bool
}

// Coordinator owns one integration's update cycle state
type Coordinator struct {
	fetcher Fetcher
	cache   Cache
	logger  logrus.FieldLogger
	now     func() time.Time

	flight singleflight.Group

	mu                  sync.Mutex
	lastTimestamp       string
	lastSnapshot        *models.Snapshot
	consecutiveFailures int
	lastSuccess         time.Time
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithClock overrides the wall clock (tests)
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// New creates a coordinator
func New(fetcher Fetcher, cache Cache, logger logrus.FieldLogger, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher: fetcher,
		cache:   cache,
		logger:  logger.WithField("component", "coordinator"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunCycle performs one update. It only fails with ErrNoDataAvailable; every
// other failure is absorbed by returning the last good snapshot.
// Concurrent callers share the cycle already in flight, and with it the ctx of
// the caller that started it: cancelling that ctx aborts the fetch for all of
// them, which then fall back to the cache like any other fetch failure.
func (c *Coordinator) RunCycle(ctx context.Context) (*models.Snapshot, error) {
	v, err, _ := c.flight.Do("cycle", func() (interface{}, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.runCycle(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Snapshot), nil
}

// Status returns the current bookkeeping
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		ConsecutiveFailures: c.consecutiveFailures,
		LastSuccess:         c.lastSuccess,
		LastTimestamp:       c.lastTimestamp,
		HasSnapshot:         c.lastSnapshot != nil,
	}
}

func (c *Coordinator) runCycle(ctx context.Context) (*models.Snapshot, error) {
	rec, err := c.fetcher.FetchLatest(ctx)
	if err != nil {
		return c.handleFailure(ctx, fmt.Errorf("fetching latest record: %w", err))
	}

	if err := validate(rec); err != nil {
		return c.handleFailure(ctx, fmt.Errorf("deriving snapshot: %w", err))
	}

	if rec.Timestamp == c.lastTimestamp && c.lastSnapshot != nil {
		c.logger.WithField("timestamp", rec.Timestamp).Debug("Data unchanged since last update")
		return c.lastSnapshot, nil
	}

	snapshot := metrics.Derive(rec)

	c.consecutiveFailures = 0
	c.lastSuccess = c.now()
	c.lastTimestamp = rec.Timestamp

	// Cache I/O outlives cancellation so a shutdown mid-cycle still persists
	if err := c.cache.Save(context.WithoutCancel(ctx), snapshot); err != nil {
		c.logger.WithError(err).Warn("Failed to persist snapshot")
	}
	c.lastSnapshot = snapshot

	c.logger.WithFields(logrus.Fields{
		"timestamp":        snapshot.Timestamp,
		"total_production": snapshot.TotalProduction,
	}).Info("Snapshot updated")

	return snapshot, nil
}

func (c *Coordinator) handleFailure(ctx context.Context, cause error) (*models.Snapshot, error) {
	c.consecutiveFailures++
	log := c.logger.WithError(cause).WithField("attempt", c.consecutiveFailures)

	switch {
	case c.consecutiveFailures == 1:
		log.Warn("First API failure, falling back to cached data")
	case c.consecutiveFailures%escalateEvery == 0:
		downtime := "never"
		if !c.lastSuccess.IsZero() {
			downtime = humanize.RelTime(c.lastSuccess, c.now(), "ago", "")
		}
		log.WithField("since_last_success", downtime).
			Errorf("API has been unavailable for %d attempts", c.consecutiveFailures)
	default:
		log.Info("API still unavailable")
	}

	if c.lastSnapshot == nil {
		cached, err := c.cache.Load(context.WithoutCancel(ctx))
		if err != nil {
			c.logger.WithError(err).Warn("Failed to load cached snapshot")
		}
		if cached != nil {
			c.lastSnapshot = cached
		}
	}

	if c.lastSnapshot != nil {
		c.logger.WithField("timestamp", c.lastSnapshot.Timestamp).Debug("Using cached snapshot")
		return c.lastSnapshot, nil
	}

	return nil, fmt.Errorf("%w (last failure: %w)", ErrNoDataAvailable, cause)
}

func validate(rec *models.RawRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", errInvalidRecord)
	}
	if rec.Timestamp == "" {
		return fmt.Errorf("%w: missing timestamp", errInvalidRecord)
	}
	if rec.Consumption == nil {
		return fmt.Errorf("%w: missing consumption", errInvalidRecord)
	}
	return nil
}
