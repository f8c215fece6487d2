package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jgoulah/eco2mix/pkg/models"
)

type countingSink struct {
	published   atomic.Int32
	unavailable atomic.Int32
	err         error
}

func (s *countingSink) Publish(ctx context.Context, snapshot *models.Snapshot) error {
	s.published.Add(1)
	return s.err
}

func (s *countingSink) MarkUnavailable(ctx context.Context) error {
	s.unavailable.Add(1)
	return s.err
}

func TestPublishAll(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}

	err := publishAll(context.Background(), []sink{a, b}, &models.Snapshot{Timestamp: "2024-01-15T14:30:00+00:00"})
	assert.NoError(t, err)
	assert.Equal(t, int32(1), a.published.Load())
	assert.Equal(t, int32(1), b.published.Load())
}

func TestPublishAllReportsFailure(t *testing.T) {
	boom := errors.New("broker down")
	ok, failing := &countingSink{}, &countingSink{err: boom}

	err := publishAll(context.Background(), []sink{ok, failing}, &models.Snapshot{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), ok.published.Load())
}

func TestMarkAllUnavailable(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}

	assert.NoError(t, markAllUnavailable(context.Background(), []sink{a, b}))
	assert.Equal(t, int32(1), a.unavailable.Load())
	assert.Equal(t, int32(1), b.unavailable.Load())
}

func TestPublishAllNoSinks(t *testing.T) {
	assert.NoError(t, publishAll(context.Background(), nil, &models.Snapshot{}))
}
